package expr

import (
	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/value"
)

// truth reads a boolean argument. known is false for NULL and non-boolean values.
func truth(v value.Value) (val, known bool) {
	s, ok := v.Scalar()
	if !ok || s.Type() != value.BaseTypeBoolean {
		return false, false
	}
	return s.Bool(), true
}

// and is false if any argument is false, NULL if any is unknown, true otherwise.
func and(args []value.Value) value.Value {
	unknown := false
	for _, a := range args {
		b, ok := truth(a)
		switch {
		case !ok:
			unknown = true
		case !b:
			return value.Boolean(false)
		}
	}
	if unknown {
		return value.Null()
	}
	return value.Boolean(true)
}

// or is true if any argument is true, NULL if any is unknown, false otherwise.
func or(args []value.Value) value.Value {
	unknown := false
	for _, a := range args {
		b, ok := truth(a)
		switch {
		case !ok:
			unknown = true
		case b:
			return value.Boolean(true)
		}
	}
	if unknown {
		return value.Null()
	}
	return value.Boolean(false)
}

func (c *call) not(e *ast.Expr, v value.Value) (value.Value, error) {
	if v.IsNull() {
		return value.Null(), nil
	}
	b, ok := truth(v)
	if !ok {
		return value.Null(), c.fail(e, nil, "expected a boolean, got %s", v)
	}
	return value.Boolean(!b), nil
}

// anyN is true when between min and max arguments are true. It is NULL when
// the NULL arguments make the outcome undecidable.
func (c *call) anyN(e *ast.Expr, args []value.Value) (value.Value, error) {
	min, err := c.intAttr(e, "min", 0, true)
	if err != nil {
		return value.Null(), err
	}
	max, err := c.intAttr(e, "max", 0, true)
	if err != nil {
		return value.Null(), err
	}

	var trues, nulls int64
	for _, a := range args {
		b, ok := truth(a)
		switch {
		case !ok:
			nulls++
		case b:
			trues++
		}
	}

	switch {
	case trues >= min && trues <= max && nulls == 0:
		return value.Boolean(true), nil
	case trues > max || trues+nulls < min:
		return value.Boolean(false), nil
	case trues >= min && trues+nulls <= max:
		return value.Boolean(true), nil
	}
	return value.Null(), nil
}

// IsTrue reports whether a condition value counts as true. NULL and
// non-boolean values are false.
func IsTrue(v value.Value) bool {
	b, ok := truth(v)
	return ok && b
}
