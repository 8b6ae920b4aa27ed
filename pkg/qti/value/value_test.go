package value

import (
	"errors"
	"math"
	"testing"
)

func TestParseScalar(t *testing.T) {
	tests := []struct {
		name      string
		baseType  BaseType
		text      string
		want      Scalar
		wantError bool
	}{
		{"integer", BaseTypeInteger, " 42 ", NewInteger(42), false},
		{"integer rejects float", BaseTypeInteger, "4.2", Scalar{}, true},
		{"float", BaseTypeFloat, "2.5", NewFloat(2.5), false},
		{"float infinity", BaseTypeFloat, "INF", NewFloat(math.Inf(1)), false},
		{"float garbage", BaseTypeFloat, "abc", Scalar{}, true},
		{"boolean true", BaseTypeBoolean, "true", NewBoolean(true), false},
		{"boolean numeric", BaseTypeBoolean, "0", NewBoolean(false), false},
		{"boolean garbage", BaseTypeBoolean, "yes", Scalar{}, true},
		{"identifier", BaseTypeIdentifier, "ChoiceA", NewIdentifier("ChoiceA"), false},
		{"identifier with space", BaseTypeIdentifier, "Choice A", Scalar{}, true},
		{"empty identifier", BaseTypeIdentifier, "  ", Scalar{}, true},
		{"string keeps whitespace", BaseTypeString, " a b ", NewString(" a b "), false},
		{"point", BaseTypePoint, "10 20", NewPoint(10, 20), false},
		{"point missing coordinate", BaseTypePoint, "10", Scalar{}, true},
		{"pair", BaseTypePair, "A B", NewPair("A", "B"), false},
		{"directed pair", BaseTypeDirectedPair, "A B", NewDirectedPair("A", "B"), false},
		{"duration seconds", BaseTypeDuration, "90", NewDuration(90), false},
		{"duration iso", BaseTypeDuration, "PT1M30S", NewDuration(90), false},
		{"duration days", BaseTypeDuration, "P1D", NewDuration(86400), false},
		{"duration garbage", BaseTypeDuration, "PT", Scalar{}, true},
		{"unknown base type", BaseType("money"), "1", Scalar{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScalar(tt.baseType, tt.text)
			if (err != nil) != tt.wantError {
				t.Fatalf("ParseScalar() error = %v, wantError %v", err, tt.wantError)
			}
			if tt.wantError {
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Errorf("ParseScalar() error type = %T, want *ParseError", err)
				}
				return
			}
			if got.Type() != tt.want.Type() || !got.Equal(tt.want) {
				t.Errorf("ParseScalar() = %v (%s), want %v (%s)", got, got.Type(), tt.want, tt.want.Type())
			}
		})
	}
}

func TestFloatToInt(t *testing.T) {
	tests := []struct {
		in     float64
		want   int64
		wantOK bool
	}{
		{2.9, 2, true},
		{-2.9, -2, true},
		{-9223372036854775808, math.MinInt64, true},
		{9223372036854775807, 0, false}, // rounds to 2^63
		{1e300, 0, false},
		{-1e300, 0, false},
		{math.Inf(1), 0, false},
		{math.NaN(), 0, false},
	}
	for _, tt := range tests {
		got, ok := FloatToInt(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("FloatToInt(%v) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
	if got := NewFloat(1e300).Int(); got != 0 {
		t.Errorf("Int() of an out-of-range float = %d, want 0", got)
	}
}

func TestScalarEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Scalar
		want bool
	}{
		{"integer and float", NewInteger(2), NewFloat(2), true},
		{"different integers", NewInteger(2), NewInteger(3), false},
		{"identifier and string", NewIdentifier("A"), NewString("A"), true},
		{"pair unordered", NewPair("A", "B"), NewPair("B", "A"), true},
		{"directed pair ordered", NewDirectedPair("A", "B"), NewDirectedPair("B", "A"), false},
		{"boolean vs integer", NewBoolean(true), NewInteger(1), false},
		{"points", NewPoint(1, 2), NewPoint(1, 2), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueEqual(t *testing.T) {
	a, b, c := NewIdentifier("A"), NewIdentifier("B"), NewIdentifier("C")

	tests := []struct {
		name string
		x, y Value
		want bool
	}{
		{"multiple ignores order", NewMultiple(BaseTypeIdentifier, a, b), NewMultiple(BaseTypeIdentifier, b, a), true},
		{"multiple counts duplicates", NewMultiple(BaseTypeIdentifier, a, a, b), NewMultiple(BaseTypeIdentifier, a, b, b), false},
		{"ordered is positional", NewOrdered(BaseTypeIdentifier, a, b, c), NewOrdered(BaseTypeIdentifier, c, b, a), false},
		{"ordered same", NewOrdered(BaseTypeIdentifier, a, b), NewOrdered(BaseTypeIdentifier, a, b), true},
		{"null equals null", Null(), Null(), true},
		{"null differs from empty", Null(), NewMultiple(BaseTypeIdentifier), false},
		{"single", Identifier("A"), Identifier("A"), true},
		{"records", NewRecord(map[string]Value{"x": Integer(1)}), NewRecord(map[string]Value{"x": Integer(1)}), true},
		{"records differ", NewRecord(map[string]Value{"x": Integer(1)}), NewRecord(map[string]Value{"x": Integer(2)}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.x.Equal(tt.y); got != tt.want {
				t.Errorf("%v.Equal(%v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), true},
		{"empty container", NewMultiple(BaseTypeString), true},
		{"empty string", String(""), true},
		{"zero integer", Integer(0), false},
		{"identifier", Identifier("A"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConform(t *testing.T) {
	tests := []struct {
		name      string
		v         Value
		card      Cardinality
		bt        BaseType
		want      Value
		wantError bool
	}{
		{"null always conforms", Null(), CardinalitySingle, BaseTypeFloat, Null(), false},
		{"integer widens to float", Integer(3), CardinalitySingle, BaseTypeFloat, Float(3), false},
		{"single wraps into multiple", Identifier("A"), CardinalityMultiple, BaseTypeIdentifier, NewMultiple(BaseTypeIdentifier, NewIdentifier("A")), false},
		{"float does not narrow", Float(1.5), CardinalitySingle, BaseTypeInteger, Value{}, true},
		{"container into single", NewMultiple(BaseTypeIdentifier, NewIdentifier("A"), NewIdentifier("B")), CardinalitySingle, BaseTypeIdentifier, Value{}, true},
		{"record into single", NewRecord(nil), CardinalitySingle, BaseTypeInteger, Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Conform(tt.v, tt.card, tt.bt)
			if (err != nil) != tt.wantError {
				t.Fatalf("Conform() error = %v, wantError %v", err, tt.wantError)
			}
			if tt.wantError {
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("Conform() = %v, want %v", got, tt.want)
			}
			if got.BaseType() != tt.want.BaseType() {
				t.Errorf("Conform() base type = %s, want %s", got.BaseType(), tt.want.BaseType())
			}
		})
	}
}

func TestFromHost(t *testing.T) {
	tests := []struct {
		name      string
		card      Cardinality
		bt        BaseType
		in        any
		want      Value
		wantError bool
	}{
		{"nil is null", CardinalitySingle, BaseTypeIdentifier, nil, Null(), false},
		{"identifier string", CardinalitySingle, BaseTypeIdentifier, "ChoiceA", Identifier("ChoiceA"), false},
		{"json number to integer", CardinalitySingle, BaseTypeInteger, float64(3), Integer(3), false},
		{"fractional number to integer", CardinalitySingle, BaseTypeInteger, 3.5, Value{}, true},
		{"list to multiple", CardinalityMultiple, BaseTypeIdentifier, []any{"A", "B"}, NewMultiple(BaseTypeIdentifier, NewIdentifier("A"), NewIdentifier("B")), false},
		{"string list to ordered", CardinalityOrdered, BaseTypeIdentifier, []string{"B", "A"}, NewOrdered(BaseTypeIdentifier, NewIdentifier("B"), NewIdentifier("A")), false},
		{"scalar into multiple", CardinalityMultiple, BaseTypeInteger, 1, NewMultiple(BaseTypeInteger, NewInteger(1)), false},
		{"list into single", CardinalitySingle, BaseTypeIdentifier, []any{"A", "B"}, Value{}, true},
		{"boolean for integer", CardinalitySingle, BaseTypeInteger, true, Value{}, true},
		{"point string", CardinalitySingle, BaseTypePoint, "3 4", NewSingle(NewPoint(3, 4)), false},
		{"unparseable literal", CardinalitySingle, BaseTypeFloat, "abc", Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromHost(tt.card, tt.bt, tt.in)
			if (err != nil) != tt.wantError {
				t.Fatalf("FromHost() error = %v, wantError %v", err, tt.wantError)
			}
			if tt.wantError {
				var ce *ConformanceError
				if !errors.As(err, &ce) {
					t.Errorf("FromHost() error type = %T, want *ConformanceError", err)
				}
				return
			}
			if !got.Equal(tt.want) || got.Kind() != tt.want.Kind() {
				t.Errorf("FromHost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	values := []Value{
		Null(),
		Identifier("ChoiceA"),
		Float(2.5),
		Duration(12),
		NewOrdered(BaseTypeIdentifier, NewIdentifier("B"), NewIdentifier("A")),
		NewMultiple(BaseTypePair, NewPair("A", "B")),
		NewRecord(map[string]Value{"x": Integer(1), "y": String("two words")}),
	}

	for _, v := range values {
		t.Run(v.String(), func(t *testing.T) {
			got, err := Decode(Encode(v))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !got.Equal(v) {
				t.Errorf("Decode(Encode(%v)) = %v", v, got)
			}
		})
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		in   Encoded
	}{
		{"unknown cardinality", Encoded{Cardinality: "bag", BaseType: BaseTypeInteger, Values: []string{"1"}}},
		{"unknown base type", Encoded{Cardinality: CardinalitySingle, BaseType: "money", Values: []string{"1"}}},
		{"single with two values", Encoded{Cardinality: CardinalitySingle, BaseType: BaseTypeInteger, Values: []string{"1", "2"}}},
		{"bad literal", Encoded{Cardinality: CardinalityMultiple, BaseType: BaseTypeInteger, Values: []string{"x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.in); err == nil {
				t.Error("Decode() expected error, got nil")
			}
		})
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	orig := NewMultiple(BaseTypeIdentifier, NewIdentifier("A"))
	items := orig.Items()
	items[0] = NewIdentifier("Z")

	if !orig.Contains(NewIdentifier("A")) {
		t.Error("Items() returned a slice aliasing the value's storage")
	}

	rec := NewRecord(map[string]Value{"x": Integer(1)})
	cp := rec.Clone()
	if !cp.Equal(rec) {
		t.Errorf("Clone() = %v, want %v", cp, rec)
	}
}
