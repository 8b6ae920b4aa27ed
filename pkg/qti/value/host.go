package value

import (
	"fmt"
	"math"
	"strconv"
)

// ConformanceError reports a value whose shape disagrees with a declaration.
type ConformanceError struct {
	Cardinality Cardinality
	BaseType    BaseType
	Reason      string
}

// Error returns the error message.
func (e *ConformanceError) Error() string {
	return fmt.Sprintf("value does not conform to %s %s: %s", e.Cardinality, e.BaseType, e.Reason)
}

// Conform checks v against a declared cardinality and base type and returns
// it adapted for storage. NULL always conforms. Integers are widened to
// float (and duration) targets and a single value is wrapped when the target
// is a container; every other mismatch is an error.
func Conform(v Value, card Cardinality, bt BaseType) (Value, error) {
	fail := func(format string, args ...any) (Value, error) {
		return Value{}, &ConformanceError{Cardinality: card, BaseType: bt, Reason: fmt.Sprintf(format, args...)}
	}

	if v.IsNull() {
		return v, nil
	}

	if card == CardinalityRecord {
		if v.kind != KindRecord {
			return fail("got %s value", v.kind)
		}
		return v, nil
	}

	items := v.Items()
	switch {
	case v.kind == KindRecord:
		return fail("got record value")
	case card == CardinalitySingle && v.kind != KindSingle:
		if len(items) != 1 {
			return fail("got %s value with %d items", v.kind, len(items))
		}
	case card == CardinalityOrdered && v.kind == KindMultiple && len(items) > 1:
		return fail("got unordered container")
	}

	for i, s := range items {
		c, err := conformScalar(s, bt)
		if err != nil {
			return fail("item %d: %v", i, err)
		}
		items[i] = c
	}

	if card == CardinalitySingle {
		return NewSingle(items[0]), nil
	}
	return NewContainer(card, bt, items...), nil
}

func conformScalar(s Scalar, bt BaseType) (Scalar, error) {
	if s.typ == bt {
		return s, nil
	}
	switch {
	case s.typ == BaseTypeInteger && (bt == BaseTypeFloat || bt == BaseTypeDuration):
		return Scalar{typ: bt, f: float64(s.i)}, nil
	case s.typ == BaseTypeFloat && bt == BaseTypeDuration:
		return NewDuration(s.f), nil
	case s.typ == BaseTypeDuration && bt == BaseTypeFloat:
		return NewFloat(s.f), nil
	case s.typ == BaseTypeIdentifier && bt == BaseTypeIntOrIdentifier,
		s.typ == BaseTypeIntOrIdentifier && bt == BaseTypeIdentifier:
		return ParseScalar(bt, s.text)
	case s.typ == BaseTypeInteger && bt == BaseTypeIntOrIdentifier:
		return Scalar{typ: bt, text: strconv.FormatInt(s.i, 10)}, nil
	}
	return Scalar{}, fmt.Errorf("base type %s is not %s", s.typ, bt)
}

// FromHost converts a host-level Go value (as decoded from JSON or YAML, or
// built by a caller) into a Value conforming to the declaration. Strings are
// parsed under the declared base type; numbers, booleans and slices are
// mapped directly. A Value passes through Conform.
func FromHost(card Cardinality, bt BaseType, v any) (Value, error) {
	fail := func(format string, args ...any) (Value, error) {
		return Value{}, &ConformanceError{Cardinality: card, BaseType: bt, Reason: fmt.Sprintf(format, args...)}
	}

	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return Conform(x, card, bt)
	}

	if card == CardinalityRecord {
		m, ok := v.(map[string]any)
		if !ok {
			return fail("record values must be maps, got %T", v)
		}
		fields := make(map[string]Value, len(m))
		for k, fv := range m {
			s, err := hostScalar(inferBaseType(fv), fv)
			if err != nil {
				return fail("field %q: %v", k, err)
			}
			fields[k] = NewSingle(s)
		}
		return NewRecord(fields), nil
	}

	list, isList := hostList(v)
	if card == CardinalitySingle {
		if isList {
			if len(list) != 1 {
				return fail("single values cannot hold %d items", len(list))
			}
			v = list[0]
		}
		s, err := hostScalar(bt, v)
		if err != nil {
			return fail("%v", err)
		}
		return NewSingle(s), nil
	}

	if !isList {
		list = []any{v}
	}
	items := make([]Scalar, 0, len(list))
	for i, e := range list {
		s, err := hostScalar(bt, e)
		if err != nil {
			return fail("item %d: %v", i, err)
		}
		items = append(items, s)
	}
	return NewContainer(card, bt, items...), nil
}

func hostList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func inferBaseType(v any) BaseType {
	switch v.(type) {
	case bool:
		return BaseTypeBoolean
	case int, int32, int64:
		return BaseTypeInteger
	case float32, float64:
		return BaseTypeFloat
	}
	return BaseTypeString
}

func hostScalar(bt BaseType, v any) (Scalar, error) {
	switch x := v.(type) {
	case Scalar:
		return conformScalar(x, bt)
	case string:
		return ParseScalar(bt, x)
	case bool:
		if bt != BaseTypeBoolean {
			return Scalar{}, fmt.Errorf("boolean given for %s", bt)
		}
		return NewBoolean(x), nil
	case int:
		return numericScalar(bt, float64(x), true)
	case int32:
		return numericScalar(bt, float64(x), true)
	case int64:
		return numericScalar(bt, float64(x), true)
	case float32:
		return numericScalar(bt, float64(x), false)
	case float64:
		return numericScalar(bt, x, false)
	case Point:
		if bt != BaseTypePoint {
			return Scalar{}, fmt.Errorf("point given for %s", bt)
		}
		return NewPoint(x.X, x.Y), nil
	}
	return Scalar{}, fmt.Errorf("unsupported host type %T", v)
}

func numericScalar(bt BaseType, f float64, integral bool) (Scalar, error) {
	switch bt {
	case BaseTypeInteger, BaseTypeIntOrIdentifier:
		if !integral && f != math.Trunc(f) {
			return Scalar{}, fmt.Errorf("%v is not an integer", f)
		}
		if bt == BaseTypeIntOrIdentifier {
			return Scalar{typ: bt, text: strconv.FormatInt(int64(f), 10)}, nil
		}
		return NewInteger(int64(f)), nil
	case BaseTypeFloat:
		return NewFloat(f), nil
	case BaseTypeDuration:
		return NewDuration(f), nil
	}
	return Scalar{}, fmt.Errorf("number given for %s", bt)
}

// Host converts v to plain Go data: nil for NULL, a native scalar for single
// values, []any for containers and map[string]any for records.
func (v Value) Host() any {
	switch v.kind {
	case KindSingle:
		return v.scalar.host()
	case KindMultiple, KindOrdered:
		out := make([]any, len(v.items))
		for i, s := range v.items {
			out[i] = s.host()
		}
		return out
	case KindRecord:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Host()
		}
		return out
	}
	return nil
}

func (s Scalar) host() any {
	switch s.typ {
	case BaseTypeInteger:
		return s.i
	case BaseTypeFloat, BaseTypeDuration:
		return s.f
	case BaseTypeBoolean:
		return s.b
	}
	return s.String()
}
