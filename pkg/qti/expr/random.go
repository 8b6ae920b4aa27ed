package expr

import (
	"errors"

	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/value"
)

var errNoRandomSource = errors.New("no random source")

// randomInteger draws uniformly from min, min+step, ... up to max inclusive.
func (c *call) randomInteger(e *ast.Expr) (value.Value, error) {
	min, err := c.intAttr(e, "min", 0, true)
	if err != nil {
		return value.Null(), err
	}
	max, err := c.intAttr(e, "max", 0, true)
	if err != nil {
		return value.Null(), err
	}
	step, err := c.intAttr(e, "step", 1, false)
	if err != nil {
		return value.Null(), err
	}
	if max < min {
		return value.Null(), c.fail(e, nil, "max %d is below min %d", max, min)
	}
	if step < 1 {
		return value.Null(), c.fail(e, nil, "step must be positive, got %d", step)
	}
	if c.rng == nil {
		return value.Null(), c.fail(e, errNoRandomSource, "cannot draw")
	}

	n := (max-min)/step + 1
	return value.Integer(min + c.rng.Int64N(n)*step), nil
}

// randomFloat draws uniformly from [min, max].
func (c *call) randomFloat(e *ast.Expr) (value.Value, error) {
	min, err := c.floatAttr(e, "min", 0, true)
	if err != nil {
		return value.Null(), err
	}
	max, err := c.floatAttr(e, "max", 0, true)
	if err != nil {
		return value.Null(), err
	}
	if max < min {
		return value.Null(), c.fail(e, nil, "max %g is below min %g", max, min)
	}
	if c.rng == nil {
		return value.Null(), c.fail(e, errNoRandomSource, "cannot draw")
	}
	return value.Float(min + c.rng.Float64()*(max-min)), nil
}

// random picks one item of a container uniformly. An empty container is NULL.
func (c *call) random(e *ast.Expr, a value.Value) (value.Value, error) {
	if a.IsNull() {
		return value.Null(), nil
	}
	if a.Kind() == value.KindRecord {
		return value.Null(), c.fail(e, nil, "expected a container, got record")
	}
	items := a.Items()
	if len(items) == 0 {
		return value.Null(), nil
	}
	if c.rng == nil {
		return value.Null(), c.fail(e, errNoRandomSource, "cannot draw")
	}
	return value.NewSingle(items[c.rng.IntN(len(items))]), nil
}
