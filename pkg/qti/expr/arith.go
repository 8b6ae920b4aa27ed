package expr

import (
	"math"

	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/value"
)

// numbers flattens numeric operands. allInt reports whether every operand is
// an integer, which decides the result type of sum, product, min and max.
func (c *call) numbers(e *ast.Expr, args []value.Value) (nums []value.Scalar, allInt bool, err error) {
	allInt = true
	for _, a := range args {
		if a.Kind() == value.KindRecord {
			return nil, false, c.fail(e, nil, "records cannot take part in arithmetic")
		}
		for _, s := range a.Items() {
			if !s.IsNumeric() {
				return nil, false, c.fail(e, nil, "expected numeric operands, got %s", s.Type())
			}
			if s.Type() != value.BaseTypeInteger {
				allInt = false
			}
			nums = append(nums, s)
		}
	}
	return nums, allInt, nil
}

// finite wraps a float result, turning NaN and infinities into NULL.
func finite(f float64) value.Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return value.Null()
	}
	return value.Float(f)
}

func (c *call) sumProduct(e *ast.Expr, args []value.Value) (value.Value, error) {
	if anyNull(args) {
		return value.Null(), nil
	}
	nums, allInt, err := c.numbers(e, args)
	if err != nil {
		return value.Null(), err
	}

	if allInt {
		var acc int64
		if e.Op == ast.OpProduct {
			acc = 1
		}
		for _, n := range nums {
			if e.Op == ast.OpSum {
				acc += n.Int()
			} else {
				acc *= n.Int()
			}
		}
		return value.Integer(acc), nil
	}

	acc := 0.0
	if e.Op == ast.OpProduct {
		acc = 1
	}
	for _, n := range nums {
		if e.Op == ast.OpSum {
			acc += n.Float()
		} else {
			acc *= n.Float()
		}
	}
	return finite(acc), nil
}

func (c *call) subtract(e *ast.Expr, a, b value.Value) (value.Value, error) {
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
	if x.Type() == value.BaseTypeInteger && y.Type() == value.BaseTypeInteger {
		return value.Integer(x.Int() - y.Int()), nil
	}
	return finite(x.Float() - y.Float()), nil
}

// divide always yields a float. Division by zero is NULL.
func (c *call) divide(e *ast.Expr, a, b value.Value) (value.Value, error) {
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
	if y.Float() == 0 {
		return value.Null(), nil
	}
	return finite(x.Float() / y.Float()), nil
}

func (c *call) power(e *ast.Expr, a, b value.Value) (value.Value, error) {
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
	return finite(math.Pow(x.Float(), y.Float())), nil
}

// integerDivide implements integerDivide (rounding towards negative infinity)
// and integerModulus. A zero divisor is NULL.
func (c *call) integerDivide(e *ast.Expr, a, b value.Value) (value.Value, error) {
	if a.IsNull() || b.IsNull() {
		return value.Null(), nil
	}
	x, err := c.integer(e, a)
	if err != nil {
		return value.Null(), err
	}
	y, err := c.integer(e, b)
	if err != nil {
		return value.Null(), err
	}
	if y == 0 {
		return value.Null(), nil
	}

	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	if e.Op == ast.OpIntegerDivide {
		return value.Integer(q), nil
	}
	return value.Integer(x - q*y), nil
}

func (c *call) integer(e *ast.Expr, v value.Value) (int64, error) {
	s, err := c.single(e, v)
	if err != nil {
		return 0, err
	}
	if s.Type() != value.BaseTypeInteger {
		return 0, c.fail(e, nil, "expected an integer, got %s", s.Type())
	}
	return s.Int(), nil
}

// truncateRound implements truncate (towards zero) and round (half up).
func (c *call) truncateRound(e *ast.Expr, a value.Value) (value.Value, error) {
	if a.IsNull() {
		return value.Null(), nil
	}
	x, err := c.number(e, a)
	if err != nil {
		return value.Null(), err
	}
	f := math.Floor(x.Float() + 0.5)
	if e.Op == ast.OpTruncate {
		f = math.Trunc(x.Float())
	}
	i, ok := value.FloatToInt(f)
	if !ok {
		return value.Null(), nil
	}
	return value.Integer(i), nil
}

func (c *call) integerToFloat(e *ast.Expr, a value.Value) (value.Value, error) {
	if a.IsNull() {
		return value.Null(), nil
	}
	i, err := c.integer(e, a)
	if err != nil {
		return value.Null(), err
	}
	return value.Float(float64(i)), nil
}

func (c *call) minMax(e *ast.Expr, args []value.Value) (value.Value, error) {
	if anyNull(args) {
		return value.Null(), nil
	}
	nums, allInt, err := c.numbers(e, args)
	if err != nil {
		return value.Null(), err
	}
	if len(nums) == 0 {
		return value.Null(), nil
	}

	best := nums[0]
	for _, n := range nums[1:] {
		if (e.Op == ast.OpMin && n.Float() < best.Float()) || (e.Op == ast.OpMax && n.Float() > best.Float()) {
			best = n
		}
	}
	if allInt {
		return value.Integer(best.Int()), nil
	}
	return value.Float(best.Float()), nil
}

func (c *call) gcdLcm(e *ast.Expr, args []value.Value) (value.Value, error) {
	if anyNull(args) {
		return value.Null(), nil
	}
	nums, allInt, err := c.numbers(e, args)
	if err != nil {
		return value.Null(), err
	}
	if !allInt {
		return value.Null(), c.fail(e, nil, "expected integer operands")
	}
	if len(nums) == 0 {
		return value.Null(), nil
	}

	acc := abs(nums[0].Int())
	for _, n := range nums[1:] {
		x := abs(n.Int())
		if e.Op == ast.OpGcd {
			acc = gcd(acc, x)
			continue
		}
		if acc == 0 || x == 0 {
			return value.Integer(0), nil
		}
		acc = acc / gcd(acc, x) * x
	}
	return value.Integer(acc), nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(i int64) int64 {
	if i < 0 {
		return -i
	}
	return i
}
