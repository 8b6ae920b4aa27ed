package expr

import (
	"math"
	"strconv"
	"strings"

	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/value"
)

// match compares two values of the same cardinality: multiset equality for
// multiple, positional equality for ordered and scalar equality for single.
func (c *call) match(e *ast.Expr, a, b value.Value) (value.Value, error) {
	if a.IsNull() || b.IsNull() {
		return value.Null(), nil
	}
	if a.Cardinality() != b.Cardinality() {
		return value.Null(), c.fail(e, nil, "cannot match %s against %s", a.Cardinality(), b.Cardinality())
	}
	return value.Boolean(a.Equal(b)), nil
}

// compare implements gt, gte, lt and lte over numeric single values.
func (c *call) compare(e *ast.Expr, a, b value.Value) (value.Value, error) {
	if a.IsNull() || b.IsNull() {
		return value.Null(), nil
	}
	x, err := c.number(e, a)
	if err != nil {
		return value.Null(), err
	}
	y, err := c.number(e, b)
	if err != nil {
		return value.Null(), err
	}
	return value.Boolean(ordered(e.Op, x, y)), nil
}

func ordered(op ast.Operator, x, y value.Scalar) bool {
	if x.Type() == value.BaseTypeInteger && y.Type() == value.BaseTypeInteger {
		a, b := x.Int(), y.Int()
		switch op {
		case ast.OpGt:
			return a > b
		case ast.OpGte:
			return a >= b
		case ast.OpLt:
			return a < b
		}
		return a <= b
	}
	a, b := x.Float(), y.Float()
	switch op {
	case ast.OpGt:
		return a > b
	case ast.OpGte:
		return a >= b
	case ast.OpLt:
		return a < b
	}
	return a <= b
}

func (c *call) compareDuration(e *ast.Expr, a, b value.Value) (value.Value, error) {
	if a.IsNull() || b.IsNull() {
		return value.Null(), nil
	}
	x, err := c.number(e, a)
	if err != nil {
		return value.Null(), err
	}
	y, err := c.number(e, b)
	if err != nil {
		return value.Null(), err
	}
	if e.Op == ast.OpDurationLT {
		return value.Boolean(x.Float() < y.Float()), nil
	}
	return value.Boolean(x.Float() >= y.Float()), nil
}

// equal compares two numbers, optionally within an absolute or relative tolerance.
func (c *call) equal(e *ast.Expr, a, b value.Value) (value.Value, error) {
	if a.IsNull() || b.IsNull() {
		return value.Null(), nil
	}
	xs, err := c.number(e, a)
	if err != nil {
		return value.Null(), err
	}
	ys, err := c.number(e, b)
	if err != nil {
		return value.Null(), err
	}
	x, y := xs.Float(), ys.Float()

	mode := e.AttrOr("toleranceMode", "exact")
	if mode == "exact" {
		return value.Boolean(x == y), nil
	}

	t0, t1, err := c.tolerance(e)
	if err != nil {
		return value.Null(), err
	}
	includeLower, err := c.boolAttr(e, "includeLowerBound", true)
	if err != nil {
		return value.Null(), err
	}
	includeUpper, err := c.boolAttr(e, "includeUpperBound", true)
	if err != nil {
		return value.Null(), err
	}

	var lo, hi float64
	switch mode {
	case "absolute":
		lo, hi = y-t0, y+t1
	case "relative":
		lo, hi = y*(1-t0/100), y*(1+t1/100)
	default:
		return value.Null(), c.fail(e, nil, "unknown toleranceMode %q", mode)
	}

	above := x > lo || (includeLower && x == lo)
	below := x < hi || (includeUpper && x == hi)
	return value.Boolean(above && below), nil
}

// tolerance reads one or two tolerance values; a single value is used for both bounds.
func (c *call) tolerance(e *ast.Expr) (float64, float64, error) {
	raw, ok := e.Attr("tolerance")
	if !ok {
		return 0, 0, c.fail(e, nil, "missing attribute %q", "tolerance")
	}
	var vals []float64
	for _, f := range strings.Fields(raw) {
		text := f
		if len(f) > 2 && f[0] == '{' && f[len(f)-1] == '}' {
			v, found := c.b.Lookup(f[1 : len(f)-1])
			s, single := v.Scalar()
			if !found || !single {
				return 0, 0, c.fail(e, nil, "tolerance refers to %s, which holds no single value", f)
			}
			text = s.Text()
		}
		t, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, 0, c.fail(e, err, "tolerance must be numeric, got %q", f)
		}
		vals = append(vals, t)
	}
	switch len(vals) {
	case 1:
		return vals[0], vals[0], nil
	case 2:
		return vals[0], vals[1], nil
	}
	return 0, 0, c.fail(e, nil, "tolerance needs one or two values, got %q", raw)
}

// equalRounded compares two numbers after rounding both to a number of
// significant figures or decimal places.
func (c *call) equalRounded(e *ast.Expr, a, b value.Value) (value.Value, error) {
	if a.IsNull() || b.IsNull() {
		return value.Null(), nil
	}
	xs, err := c.number(e, a)
	if err != nil {
		return value.Null(), err
	}
	ys, err := c.number(e, b)
	if err != nil {
		return value.Null(), err
	}
	figures, err := c.intAttr(e, "figures", 0, true)
	if err != nil {
		return value.Null(), err
	}

	mode := e.AttrOr("roundingMode", "significantFigures")
	switch mode {
	case "significantFigures":
		if figures < 1 {
			return value.Null(), c.fail(e, nil, "figures must be at least 1 for significantFigures, got %d", figures)
		}
		return value.Boolean(roundSignificant(xs.Float(), int(figures)) == roundSignificant(ys.Float(), int(figures))), nil
	case "decimalPlaces":
		if figures < 0 {
			return value.Null(), c.fail(e, nil, "figures must not be negative for decimalPlaces, got %d", figures)
		}
		return value.Boolean(roundDecimal(xs.Float(), int(figures)) == roundDecimal(ys.Float(), int(figures))), nil
	}
	return value.Null(), c.fail(e, nil, "unknown roundingMode %q", mode)
}

func roundDecimal(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Floor(x*p+0.5) / p
}

func roundSignificant(x float64, figures int) float64 {
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	// Formatting in exponent form rounds to the requested significant figures.
	f, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'e', figures-1, 64), 64)
	return f
}
