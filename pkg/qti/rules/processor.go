package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"mercator-hq/itemengine/pkg/qti/ast"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
	"mercator-hq/itemengine/pkg/qti/expr"
	"mercator-hq/itemengine/pkg/qti/value"
)

// ErrContextCancelled indicates processing stopped because its context was done.
var ErrContextCancelled = errors.New("processing context cancelled")

// State is the mutable session state rules write to. Values handed to the
// setters already conform to the target declaration.
type State interface {
	expr.Bindings

	// Set replaces the current value of a variable.
	Set(id string, v value.Value) error

	// SetCorrect replaces the correct response of a response variable.
	SetCorrect(id string, v value.Value) error

	// SetDefault replaces the default value of a variable.
	SetDefault(id string, v value.Value) error
}

// Write records one variable assignment made during a processing call.
type Write struct {
	Rule       ast.RuleType
	Identifier string
	Value      value.Value
}

// Result summarises one processing call.
type Result struct {
	// RulesExecuted counts every rule run, nested rules included.
	RulesExecuted int

	// Writes lists the assignments in the order they were committed.
	Writes []Write

	// Exited is true when an exit rule stopped processing early.
	Exited bool

	// Tries is the number of template passes (templateConstraint retries + 1).
	Tries int
}

// flow tells the caller how to continue after a rule.
type flow int

const (
	flowNext flow = iota
	flowExit
	flowRestart
)

// runner executes one processing call against a state.
type runner struct {
	ev     *expr.Evaluator
	logger *slog.Logger
	state  State
	rng    *rand.Rand
	result *Result

	// allowed reports whether a rule type may appear in this block.
	allowed func(ast.RuleType) bool
	block   string

	// enforceConstraints is false once template retries are exhausted.
	enforceConstraints bool
	constraintIgnored  bool
}

func (r *runner) runAll(ctx context.Context, rules []*ast.Rule) (flow, error) {
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return flowExit, fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}
		f, err := r.run(ctx, rule)
		if err != nil || f != flowNext {
			return f, err
		}
	}
	return flowNext, nil
}

func (r *runner) run(ctx context.Context, rule *ast.Rule) (flow, error) {
	if !r.allowed(rule.Type) {
		return flowExit, qtiErrors.Evaluation(rule.Location, nil, "<%s> is not allowed in %s", rule.Type, r.block)
	}
	r.result.RulesExecuted++

	switch rule.Type {
	case ast.RuleSetOutcomeValue, ast.RuleSetTemplateValue:
		return flowNext, r.assign(rule, r.state.Set)
	case ast.RuleSetCorrectResponse:
		return flowNext, r.assign(rule, r.state.SetCorrect)
	case ast.RuleSetDefaultValue:
		return flowNext, r.assign(rule, r.state.SetDefault)
	case ast.RuleLookupOutcomeValue:
		return flowNext, r.lookupOutcome(rule)

	case ast.RuleResponseCondition, ast.RuleTemplateCondition:
		for _, branch := range rule.Branches {
			cond, err := r.ev.Evaluate(branch.Condition, r.state, r.rng)
			if err != nil {
				return flowExit, err
			}
			if expr.IsTrue(cond) {
				return r.runAll(ctx, branch.Rules)
			}
		}
		if rule.HasElse {
			return r.runAll(ctx, rule.Else)
		}
		return flowNext, nil

	case ast.RuleProcessingFragment:
		return r.runAll(ctx, rule.Rules)

	case ast.RuleTemplateConstraint:
		cond, err := r.ev.Evaluate(rule.Expr, r.state, r.rng)
		if err != nil {
			return flowExit, err
		}
		if !expr.IsTrue(cond) {
			if r.enforceConstraints {
				return flowRestart, nil
			}
			r.constraintIgnored = true
		}
		return flowNext, nil

	case ast.RuleExitResponse, ast.RuleExitTemplate:
		r.result.Exited = true
		return flowExit, nil
	}

	return flowExit, qtiErrors.Evaluation(rule.Location, nil, "unsupported rule <%s>", rule.Type)
}

// assign evaluates a setter rule, checks the value against the target
// declaration and commits it.
func (r *runner) assign(rule *ast.Rule, set func(string, value.Value) error) error {
	v, err := r.ev.Evaluate(rule.Expr, r.state, r.rng)
	if err != nil {
		return err
	}
	return r.commit(rule, v, set)
}

func (r *runner) commit(rule *ast.Rule, v value.Value, set func(string, value.Value) error) error {
	decl := r.state.Declaration(rule.Identifier)
	if decl == nil {
		return qtiErrors.Evaluation(rule.Location, qtiErrors.ErrNotFound, "<%s> targets undeclared variable %q", rule.Type, rule.Identifier)
	}
	conformed, err := value.Conform(v, decl.Cardinality, decl.BaseType)
	if err != nil {
		return qtiErrors.Evaluation(rule.Location, err, "<%s> cannot assign %s to %q", rule.Type, v, rule.Identifier)
	}
	if err := set(rule.Identifier, conformed); err != nil {
		return qtiErrors.Evaluation(rule.Location, err, "<%s> failed to write %q", rule.Type, rule.Identifier)
	}

	r.result.Writes = append(r.result.Writes, Write{Rule: rule.Type, Identifier: rule.Identifier, Value: conformed})
	r.logger.Debug("variable assigned",
		"rule", string(rule.Type),
		"identifier", rule.Identifier,
		"base_type", string(decl.BaseType),
	)
	return nil
}

// lookupOutcome sets an outcome from its declaration's match or
// interpolation table. A NULL or unmatched source yields the table default.
func (r *runner) lookupOutcome(rule *ast.Rule) error {
	decl := r.state.Declaration(rule.Identifier)
	if decl == nil || decl.Lookup == nil {
		return qtiErrors.Evaluation(rule.Location, nil, "<%s> target %q has no lookup table", rule.Type, rule.Identifier)
	}
	src, err := r.ev.Evaluate(rule.Expr, r.state, r.rng)
	if err != nil {
		return err
	}
	out, err := LookupTable(decl.Lookup, src)
	if err != nil {
		return qtiErrors.Evaluation(rule.Location, err, "<%s> cannot look up %s", rule.Type, src)
	}
	return r.commit(rule, out, r.state.Set)
}

// LookupTable maps a source value through a match or interpolation table.
func LookupTable(t *ast.LookupTable, src value.Value) (value.Value, error) {
	if src.IsNull() {
		return t.Default, nil
	}
	s, ok := src.Scalar()
	if !ok || !s.IsNumeric() {
		return value.Null(), fmt.Errorf("lookup source must be a single number, got %s", src)
	}

	if t.Match != nil {
		if s.Type() != value.BaseTypeInteger {
			return value.Null(), fmt.Errorf("matchTable source must be an integer, got %s", s.Type())
		}
		for _, entry := range t.Match {
			if entry.Source == s.Int() {
				return value.NewSingle(entry.Target), nil
			}
		}
		return t.Default, nil
	}

	x := s.Float()
	for _, entry := range t.Interpolation {
		if x > entry.Source || (entry.IncludeBoundary && x == entry.Source) {
			return value.NewSingle(entry.Target), nil
		}
	}
	return t.Default, nil
}
