package expr

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"

	"mercator-hq/itemengine/pkg/qti/ast"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
	"mercator-hq/itemengine/pkg/qti/value"
)

// Bindings is the read side of a session as seen by expressions.
type Bindings interface {
	// Lookup returns the current value of a variable.
	Lookup(id string) (value.Value, bool)

	// Declaration returns the declaration of a variable, or nil.
	Declaration(id string) *ast.Declaration

	// Correct returns the correct response of a response variable.
	Correct(id string) value.Value

	// Default returns the default value of a variable.
	Default(id string) value.Value
}

// OperatorError is an evaluation error raised by a specific operator.
// It unwraps to the underlying *errors.Error.
type OperatorError struct {
	Op  ast.Operator
	Err *qtiErrors.Error
}

// Error returns the error message.
func (e *OperatorError) Error() string { return e.Err.Error() }

// Unwrap returns the evaluation error.
func (e *OperatorError) Unwrap() error { return e.Err }

// Evaluator evaluates expression trees. It holds no per-call state and may be
// shared; randomness comes from the *rand.Rand passed to each call.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator creates an evaluator. A nil logger uses slog.Default().
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{logger: logger}
}

// Evaluate computes the value of e. Comparisons and arithmetic propagate
// NULL instead of failing; an error is returned only for malformed literals,
// type mismatches and operators that cannot be dispatched.
func (ev *Evaluator) Evaluate(e *ast.Expr, b Bindings, rng *rand.Rand) (value.Value, error) {
	c := &call{b: b, rng: rng}
	v, err := c.eval(e)
	if err != nil {
		ev.logger.Debug("expression evaluation failed",
			"operator", e.Op.String(),
			"location", e.Location.String(),
			"error", err,
		)
		return value.Null(), err
	}
	return v, nil
}

// call carries the inputs of one Evaluate call.
type call struct {
	b   Bindings
	rng *rand.Rand
}

func (c *call) fail(e *ast.Expr, cause error, format string, args ...any) error {
	msg := fmt.Sprintf("<%s>: %s", e.Op, fmt.Sprintf(format, args...))
	return &OperatorError{Op: e.Op, Err: qtiErrors.Evaluation(e.Location, cause, "%s", msg)}
}

// children evaluates every child of e in order.
func (c *call) children(e *ast.Expr) ([]value.Value, error) {
	out := make([]value.Value, len(e.Children))
	for i, child := range e.Children {
		v, err := c.eval(child)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func anyNull(vals []value.Value) bool {
	for _, v := range vals {
		if v.IsNull() {
			return true
		}
	}
	return false
}

func (c *call) eval(e *ast.Expr) (value.Value, error) {
	if e == nil {
		return value.Null(), nil
	}

	switch e.Op {
	case ast.OpBaseValue:
		s, err := value.ParseScalar(e.BaseType, e.Text)
		if err != nil {
			return value.Null(), c.fail(e, err, "unparseable literal")
		}
		return value.NewSingle(s), nil
	case ast.OpNull:
		return value.Null(), nil
	case ast.OpVariable:
		v, ok := c.b.Lookup(e.Identifier)
		if !ok {
			return value.Null(), nil
		}
		return v, nil
	case ast.OpCorrect:
		return c.b.Correct(e.Identifier), nil
	case ast.OpDefault:
		return c.b.Default(e.Identifier), nil
	case ast.OpMapResponse:
		return c.mapResponse(e)
	case ast.OpMapResponsePoint:
		return c.mapResponsePoint(e)
	case ast.OpRandomInteger:
		return c.randomInteger(e)
	case ast.OpRandomFloat:
		return c.randomFloat(e)
	}

	args, err := c.children(e)
	if err != nil {
		return value.Null(), err
	}
	if min, max := e.Op.Arity(); len(args) < min || (max >= 0 && len(args) > max) {
		return value.Null(), c.fail(e, nil, "wrong number of operands: %d", len(args))
	}

	switch e.Op {
	case ast.OpAnd:
		return and(args), nil
	case ast.OpOr:
		return or(args), nil
	case ast.OpNot:
		return c.not(e, args[0])
	case ast.OpAnyN:
		return c.anyN(e, args)

	case ast.OpMatch:
		return c.match(e, args[0], args[1])
	case ast.OpEqual:
		return c.equal(e, args[0], args[1])
	case ast.OpEqualRounded:
		return c.equalRounded(e, args[0], args[1])
	case ast.OpGt, ast.OpGte, ast.OpLt, ast.OpLte:
		return c.compare(e, args[0], args[1])
	case ast.OpDurationLT, ast.OpDurationGTE:
		return c.compareDuration(e, args[0], args[1])
	case ast.OpIsNull:
		return value.Boolean(args[0].IsEmpty()), nil
	case ast.OpInside:
		return c.inside(e, args[0])

	case ast.OpSum, ast.OpProduct:
		return c.sumProduct(e, args)
	case ast.OpSubtract:
		return c.subtract(e, args[0], args[1])
	case ast.OpDivide:
		return c.divide(e, args[0], args[1])
	case ast.OpPower:
		return c.power(e, args[0], args[1])
	case ast.OpIntegerDivide, ast.OpIntegerModulus:
		return c.integerDivide(e, args[0], args[1])
	case ast.OpTruncate, ast.OpRound:
		return c.truncateRound(e, args[0])
	case ast.OpIntegerToFloat:
		return c.integerToFloat(e, args[0])
	case ast.OpMin, ast.OpMax:
		return c.minMax(e, args)
	case ast.OpGcd, ast.OpLcm:
		return c.gcdLcm(e, args)

	case ast.OpMultiple, ast.OpOrdered:
		return c.container(e, args)
	case ast.OpContainerSize:
		return c.containerSize(e, args[0])
	case ast.OpMember:
		return c.member(e, args[0], args[1])
	case ast.OpContains:
		return c.contains(e, args[0], args[1])
	case ast.OpDelete:
		return c.delete(e, args[0], args[1])
	case ast.OpIndex:
		return c.index(e, args[0])
	case ast.OpRandom:
		return c.random(e, args[0])
	case ast.OpFieldValue:
		return c.fieldValue(e, args[0])

	case ast.OpStringMatch:
		return c.stringMatch(e, args[0], args[1])
	case ast.OpSubstring:
		return c.substring(e, args[0], args[1])
	case ast.OpPatternMatch:
		return c.patternMatch(e, args[0])
	}

	return value.Null(), c.fail(e, qtiErrors.ErrUnknownOperator, "cannot be evaluated")
}

// attrRef resolves an attribute that may hold a literal or a {VAR} reference.
// ok is false when the attribute is absent.
func (c *call) attrRef(e *ast.Expr, name string) (text string, ok bool, err error) {
	raw, ok := e.Attr(name)
	if !ok {
		return "", false, nil
	}
	raw = strings.TrimSpace(raw)
	if len(raw) > 2 && strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
		id := raw[1 : len(raw)-1]
		v, found := c.b.Lookup(id)
		s, single := v.Scalar()
		if !found || !single {
			return "", true, c.fail(e, qtiErrors.ErrNotFound, "attribute %q refers to %q, which holds no single value", name, id)
		}
		return s.Text(), true, nil
	}
	return raw, true, nil
}

func (c *call) intAttr(e *ast.Expr, name string, def int64, required bool) (int64, error) {
	text, ok, err := c.attrRef(e, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		if required {
			return 0, c.fail(e, nil, "missing attribute %q", name)
		}
		return def, nil
	}
	i, perr := strconv.ParseInt(text, 10, 64)
	if perr != nil {
		if f, ferr := strconv.ParseFloat(text, 64); ferr == nil && f == float64(int64(f)) {
			return int64(f), nil
		}
		return 0, c.fail(e, perr, "attribute %q must be an integer, got %q", name, text)
	}
	return i, nil
}

func (c *call) floatAttr(e *ast.Expr, name string, def float64, required bool) (float64, error) {
	text, ok, err := c.attrRef(e, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		if required {
			return 0, c.fail(e, nil, "missing attribute %q", name)
		}
		return def, nil
	}
	f, perr := strconv.ParseFloat(text, 64)
	if perr != nil {
		return 0, c.fail(e, perr, "attribute %q must be a number, got %q", name, text)
	}
	return f, nil
}

func (c *call) boolAttr(e *ast.Expr, name string, def bool) (bool, error) {
	text, ok, err := c.attrRef(e, name)
	if err != nil || !ok {
		return def, err
	}
	switch text {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return def, c.fail(e, nil, "attribute %q must be true or false, got %q", name, text)
}

// single returns the scalar of a single-cardinality argument.
func (c *call) single(e *ast.Expr, v value.Value) (value.Scalar, error) {
	s, ok := v.Scalar()
	if !ok {
		return value.Scalar{}, c.fail(e, nil, "expected a single value, got %s", v.Kind())
	}
	return s, nil
}

// number returns the numeric payload of a single numeric argument.
func (c *call) number(e *ast.Expr, v value.Value) (value.Scalar, error) {
	s, err := c.single(e, v)
	if err != nil {
		return s, err
	}
	if !s.IsNumeric() {
		return s, c.fail(e, nil, "expected a numeric value, got %s", s.Type())
	}
	return s, nil
}
