package rules

import (
	"context"
	"log/slog"

	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/expr"
)

// ResponseProcessor runs an item's responseProcessing block.
type ResponseProcessor struct {
	ev     *expr.Evaluator
	logger *slog.Logger
}

// NewResponseProcessor creates a response processor.
func NewResponseProcessor(ev *expr.Evaluator, logger *slog.Logger) *ResponseProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	if ev == nil {
		ev = expr.NewEvaluator(logger)
	}
	return &ResponseProcessor{ev: ev, logger: logger}
}

func allowedInResponse(t ast.RuleType) bool {
	switch t {
	case ast.RuleSetOutcomeValue, ast.RuleLookupOutcomeValue, ast.RuleResponseCondition,
		ast.RuleExitResponse, ast.RuleProcessingFragment:
		return true
	}
	return false
}

// Run executes the rules in document order. Conditions take the first branch
// whose guard is true; a NULL guard counts as false. An absent rule set is a
// no-op. Each write commits immediately: when a rule fails, processing stops,
// the error is returned and writes made before it remain.
//
// Response processing never draws random numbers.
func (p *ResponseProcessor) Run(ctx context.Context, rules []*ast.Rule, state State) (*Result, error) {
	result := &Result{Tries: 1}
	if len(rules) == 0 {
		return result, nil
	}

	r := &runner{
		ev:      p.ev,
		logger:  p.logger,
		state:   state,
		result:  result,
		allowed: allowedInResponse,
		block:   "responseProcessing",
	}
	if _, err := r.runAll(ctx, rules); err != nil {
		p.logger.Debug("response processing aborted",
			"rules_executed", result.RulesExecuted,
			"writes", len(result.Writes),
			"error", err,
		)
		return result, err
	}
	return result, nil
}
