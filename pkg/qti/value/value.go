package value

import (
	"sort"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindSingle
	KindMultiple
	KindOrdered
	KindRecord
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindMultiple:
		return "multiple"
	case KindOrdered:
		return "ordered"
	case KindRecord:
		return "record"
	}
	return "null"
}

// Value is the runtime value of a QTI variable: NULL, a single scalar, an
// unordered multiset, an ordered sequence or a record. NULL is distinct from
// an empty container. Values are immutable once built.
type Value struct {
	kind     Kind
	baseType BaseType
	scalar   Scalar
	items    []Scalar
	fields   map[string]Value
}

// Null returns the NULL value.
func Null() Value { return Value{} }

// NewSingle wraps a scalar.
func NewSingle(s Scalar) Value {
	if !s.Valid() {
		return Null()
	}
	return Value{kind: KindSingle, baseType: s.typ, scalar: s}
}

// NewMultiple builds an unordered container. Items are copied.
func NewMultiple(bt BaseType, items ...Scalar) Value {
	return Value{kind: KindMultiple, baseType: bt, items: append([]Scalar(nil), items...)}
}

// NewOrdered builds an ordered container. Items are copied.
func NewOrdered(bt BaseType, items ...Scalar) Value {
	return Value{kind: KindOrdered, baseType: bt, items: append([]Scalar(nil), items...)}
}

// NewContainer builds a multiple or ordered container depending on card.
func NewContainer(card Cardinality, bt BaseType, items ...Scalar) Value {
	if card == CardinalityOrdered {
		return NewOrdered(bt, items...)
	}
	return NewMultiple(bt, items...)
}

// NewRecord builds a record. Fields are copied.
func NewRecord(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindRecord, fields: cp}
}

// Convenience constructors for single values.

func Identifier(s string) Value { return NewSingle(NewIdentifier(s)) }

func String(s string) Value { return NewSingle(NewString(s)) }

func Integer(i int64) Value { return NewSingle(NewInteger(i)) }

func Float(f float64) Value { return NewSingle(NewFloat(f)) }

func Boolean(b bool) Value { return NewSingle(NewBoolean(b)) }

func Duration(secs float64) Value { return NewSingle(NewDuration(secs)) }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the NULL value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports whether v carries no data: NULL, an empty container, an
// empty record or an empty string.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindMultiple, KindOrdered:
		return len(v.items) == 0
	case KindRecord:
		return len(v.fields) == 0
	case KindSingle:
		return v.scalar.typ == BaseTypeString && v.scalar.text == ""
	}
	return false
}

// Cardinality returns the cardinality matching the variant, or "" for NULL.
func (v Value) Cardinality() Cardinality {
	switch v.kind {
	case KindSingle:
		return CardinalitySingle
	case KindMultiple:
		return CardinalityMultiple
	case KindOrdered:
		return CardinalityOrdered
	case KindRecord:
		return CardinalityRecord
	}
	return ""
}

// BaseType returns the base type of a single value or container.
func (v Value) BaseType() BaseType { return v.baseType }

// Scalar returns the payload of a single value.
func (v Value) Scalar() (Scalar, bool) {
	return v.scalar, v.kind == KindSingle
}

// Items returns a copy of a container's items. A single value yields a
// one-element slice so operators can treat both uniformly.
func (v Value) Items() []Scalar {
	switch v.kind {
	case KindSingle:
		return []Scalar{v.scalar}
	case KindMultiple, KindOrdered:
		return append([]Scalar(nil), v.items...)
	}
	return nil
}

// Len returns the number of items held.
func (v Value) Len() int {
	switch v.kind {
	case KindSingle:
		return 1
	case KindMultiple, KindOrdered:
		return len(v.items)
	case KindRecord:
		return len(v.fields)
	}
	return 0
}

// Field returns a record field.
func (v Value) Field(name string) (Value, bool) {
	f, ok := v.fields[name]
	return f, ok
}

// FieldNames returns the record's field names in sorted order.
func (v Value) FieldNames() []string {
	names := make([]string, 0, len(v.fields))
	for k := range v.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy that shares no backing storage with v.
func (v Value) Clone() Value {
	out := v
	if v.items != nil {
		out.items = append([]Scalar(nil), v.items...)
	}
	if v.fields != nil {
		out.fields = make(map[string]Value, len(v.fields))
		for k, f := range v.fields {
			out.fields[k] = f.Clone()
		}
	}
	return out
}

// Contains reports whether the value holds a scalar equal to s.
func (v Value) Contains(s Scalar) bool {
	for _, it := range v.Items() {
		if it.Equal(s) {
			return true
		}
	}
	return false
}

// Equal compares two values by cardinality: multiset equality for multiple,
// positional equality for ordered, field-wise for records and scalar equality
// for single values. Two NULLs are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindSingle:
		return v.scalar.Equal(o.scalar)
	case KindOrdered:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindMultiple:
		return multisetEqual(v.items, o.items)
	case KindRecord:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for k, f := range v.fields {
			g, ok := o.fields[k]
			if !ok || !f.Equal(g) {
				return false
			}
		}
		return true
	}
	return false
}

func multisetEqual(a, b []Scalar) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s.key()]++
	}
	for _, s := range b {
		k := s.key()
		if counts[k] == 0 {
			return false
		}
		counts[k]--
	}
	return true
}

// Distinct returns the items with duplicates removed, keeping first occurrence order.
func (v Value) Distinct() []Scalar {
	seen := make(map[string]bool)
	var out []Scalar
	for _, s := range v.Items() {
		k := s.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

// String renders the value for logs and CLI output.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindSingle:
		return v.scalar.String()
	case KindMultiple, KindOrdered:
		parts := make([]string, len(v.items))
		for i, s := range v.items {
			parts[i] = s.String()
		}
		if v.kind == KindOrdered {
			return "<" + strings.Join(parts, ", ") + ">"
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindRecord:
		parts := make([]string, 0, len(v.fields))
		for _, k := range v.FieldNames() {
			parts = append(parts, k+": "+v.fields[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}
