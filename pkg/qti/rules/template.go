package rules

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/expr"
)

// DefaultConstraintRetries is the number of template passes attempted while
// a templateConstraint keeps failing.
const DefaultConstraintRetries = 100

// TemplateProcessor runs an item's templateProcessing block.
type TemplateProcessor struct {
	ev      *expr.Evaluator
	logger  *slog.Logger
	retries int
}

// NewTemplateProcessor creates a template processor. retries <= 0 uses
// DefaultConstraintRetries.
func NewTemplateProcessor(ev *expr.Evaluator, retries int, logger *slog.Logger) *TemplateProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	if ev == nil {
		ev = expr.NewEvaluator(logger)
	}
	if retries <= 0 {
		retries = DefaultConstraintRetries
	}
	return &TemplateProcessor{ev: ev, logger: logger, retries: retries}
}

func allowedInTemplate(t ast.RuleType) bool {
	switch t {
	case ast.RuleSetTemplateValue, ast.RuleSetCorrectResponse, ast.RuleSetDefaultValue,
		ast.RuleTemplateCondition, ast.RuleTemplateConstraint, ast.RuleExitTemplate:
		return true
	}
	return false
}

// Run executes the rules in document order. When a templateConstraint is
// false or NULL the whole block starts over; after the retry limit the
// constraint is ignored and the values of the final pass are kept. Writes
// commit rule by rule, so a failing rule leaves earlier writes in place.
func (p *TemplateProcessor) Run(ctx context.Context, rules []*ast.Rule, state State, rng *rand.Rand) (*Result, error) {
	result := &Result{}
	if len(rules) == 0 {
		return result, nil
	}

	r := &runner{
		ev:      p.ev,
		logger:  p.logger,
		state:   state,
		rng:     rng,
		result:  result,
		allowed: allowedInTemplate,
		block:   "templateProcessing",
	}

	for try := 1; ; try++ {
		result.Tries = try
		result.Exited = false
		result.Writes = result.Writes[:0]
		r.enforceConstraints = try < p.retries

		f, err := r.runAll(ctx, rules)
		if err != nil {
			return result, err
		}
		if f != flowRestart {
			break
		}
		p.logger.Debug("template constraint failed, restarting", "try", try)
	}

	if r.constraintIgnored {
		p.logger.Warn("template constraint retries exhausted, keeping last values",
			"retries", p.retries,
		)
	}
	return result, nil
}
