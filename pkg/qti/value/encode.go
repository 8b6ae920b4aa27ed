package value

import "fmt"

// Encoded is the serialisable form of a Value. Scalars are stored as their
// canonical literals so they round-trip through ParseScalar.
type Encoded struct {
	Cardinality Cardinality        `json:"cardinality,omitempty" yaml:"cardinality,omitempty"`
	BaseType    BaseType           `json:"baseType,omitempty" yaml:"baseType,omitempty"`
	Null        bool               `json:"null,omitempty" yaml:"null,omitempty"`
	Values      []string           `json:"values,omitempty" yaml:"values,omitempty"`
	Fields      map[string]Encoded `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Encode converts v to its serialisable form.
func Encode(v Value) Encoded {
	switch v.kind {
	case KindNull:
		return Encoded{Null: true, BaseType: v.baseType}
	case KindRecord:
		fields := make(map[string]Encoded, len(v.fields))
		for k, f := range v.fields {
			fields[k] = Encode(f)
		}
		return Encoded{Cardinality: CardinalityRecord, Fields: fields}
	}
	items := v.Items()
	vals := make([]string, len(items))
	for i, s := range items {
		vals[i] = s.String()
	}
	return Encoded{Cardinality: v.Cardinality(), BaseType: v.baseType, Values: vals}
}

// Decode rebuilds a Value from its serialisable form.
func Decode(e Encoded) (Value, error) {
	if e.Null {
		return Null(), nil
	}
	switch e.Cardinality {
	case CardinalityRecord:
		fields := make(map[string]Value, len(e.Fields))
		for k, fe := range e.Fields {
			f, err := Decode(fe)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = f
		}
		return NewRecord(fields), nil
	case CardinalitySingle, CardinalityMultiple, CardinalityOrdered:
	default:
		return Value{}, fmt.Errorf("unknown cardinality %q", e.Cardinality)
	}

	if _, ok := ParseBaseType(string(e.BaseType)); !ok {
		return Value{}, fmt.Errorf("unknown base type %q", e.BaseType)
	}
	items := make([]Scalar, 0, len(e.Values))
	for _, lit := range e.Values {
		s, err := ParseScalar(e.BaseType, lit)
		if err != nil {
			return Value{}, err
		}
		items = append(items, s)
	}
	if e.Cardinality == CardinalitySingle {
		if len(items) != 1 {
			return Value{}, fmt.Errorf("single value needs exactly one literal, got %d", len(items))
		}
		return NewSingle(items[0]), nil
	}
	return NewContainer(e.Cardinality, e.BaseType, items...), nil
}
