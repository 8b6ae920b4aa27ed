package session

import (
	"context"
	"errors"
	"log/slog"

	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/content"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
	"mercator-hq/itemengine/pkg/qti/rules"
	"mercator-hq/itemengine/pkg/qti/value"
)

// ScoreIdentifier is the conventional outcome reported as an attempt's score.
const ScoreIdentifier = "SCORE"

// RenderedFeedback is a modal feedback entry selected for display.
type RenderedFeedback struct {
	Identifier        string `json:"identifier"`
	OutcomeIdentifier string `json:"outcomeIdentifier"`
	Title             string `json:"title,omitempty"`
	HTML              string `json:"html"`
}

// ProcessResult reports the outcome of one response processing call.
type ProcessResult struct {
	CompletionStatus Status                 `json:"completionStatus"`
	Outcomes         map[string]value.Value `json:"-"`
	RulesExecuted    int                    `json:"rulesExecuted"`
	Writes           int                    `json:"writes"`

	// Removed counts markup the sanitizer stripped from feedback.
	Removed content.Report `json:"-"`
}

// AttemptResult reports the outcome of one submitted attempt.
type AttemptResult struct {
	NumAttempts      int64                  `json:"numAttempts"`
	CompletionStatus Status                 `json:"completionStatus"`
	CanContinue      bool                   `json:"canContinue"`
	Score            *float64               `json:"score,omitempty"`
	Outcomes         map[string]value.Value `json:"-"`
	Feedback         []RenderedFeedback     `json:"feedback,omitempty"`
	RulesExecuted    int                    `json:"rulesExecuted"`

	// Removed counts markup the sanitizer stripped from feedback.
	Removed content.Report `json:"-"`
}

// Controller drives the attempt lifecycle of one item session.
//
// Controller is not safe for concurrent use.
type Controller struct {
	item      *ast.Item
	state     *State
	processor *rules.ResponseProcessor
	renderer  *content.Renderer
	logger    *slog.Logger
}

// NewController creates a controller over state. Nil processor and renderer
// use the package defaults.
func NewController(item *ast.Item, state *State, processor *rules.ResponseProcessor, renderer *content.Renderer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if processor == nil {
		processor = rules.NewResponseProcessor(nil, logger)
	}
	if renderer == nil {
		renderer = content.NewRenderer(nil, logger)
	}
	return &Controller{
		item:      item,
		state:     state,
		processor: processor,
		renderer:  renderer,
		logger:    logger,
	}
}

// State returns the session state the controller writes to.
func (c *Controller) State() *State { return c.state }

// Process runs response processing once against the stored responses
// without counting an attempt.
func (c *Controller) Process(ctx context.Context) (*ProcessResult, error) {
	if c.state.Status().IsTerminal() {
		return nil, qtiErrors.AlreadyCompleted()
	}

	res, err := c.run(ctx)
	if err != nil {
		return nil, err
	}
	return &ProcessResult{
		CompletionStatus: c.state.Status(),
		Outcomes:         c.state.Values(ast.KindOutcome),
		RulesExecuted:    res.RulesExecuted,
		Writes:           len(res.Writes),
	}, nil
}

// Submit ends an attempt. A counted attempt increments numAttempts and, on
// the first one, moves the session out of not_attempted. A completed session
// rejects the call without touching state. When response processing fails
// the attempt does not count: numAttempts and completionStatus go back to
// their values before the call.
func (c *Controller) Submit(ctx context.Context, countAttempt bool) (*AttemptResult, error) {
	if c.state.Status().IsTerminal() {
		return nil, qtiErrors.AlreadyCompleted()
	}

	attempts, status := c.state.NumAttempts(), c.state.Status()
	if countAttempt {
		c.state.setNumAttempts(attempts + 1)
		if status == StatusNotAttempted {
			c.state.setStatus(StatusUnknown)
		}
	}

	res, err := c.run(ctx)
	if err != nil {
		c.state.setNumAttempts(attempts)
		c.state.setStatus(status)
		return nil, err
	}

	status = c.state.Status()
	result := &AttemptResult{
		NumAttempts:      c.state.NumAttempts(),
		CompletionStatus: status,
		CanContinue:      !status.IsTerminal(),
		Outcomes:         c.state.Values(ast.KindOutcome),
		RulesExecuted:    res.RulesExecuted,
	}
	if s, ok := result.Outcomes[ScoreIdentifier].Scalar(); ok && s.IsNumeric() {
		score := s.Float()
		result.Score = &score
	}
	result.Feedback, result.Removed = c.Feedback()

	c.logger.Info("attempt submitted",
		"item_id", c.item.Identifier,
		"num_attempts", result.NumAttempts,
		"completion_status", string(status),
		"feedback", len(result.Feedback),
	)
	return result, nil
}

// run executes response processing and applies the guarded status
// transition to whatever the rules wrote into completionStatus.
func (c *Controller) run(ctx context.Context) (*rules.Result, error) {
	before := c.state.Status()
	if !c.item.Adaptive {
		c.state.ResetOutcomes()
	}

	res, err := c.processor.Run(ctx, c.item.ResponseProcessing, c.state)
	if err != nil {
		if errors.Is(err, rules.ErrContextCancelled) {
			c.logger.Warn("response processing cancelled", "item_id", c.item.Identifier)
		}
		c.guardStatus(before)
		return nil, err
	}
	c.guardStatus(before)
	return res, nil
}

// guardStatus restores completionStatus when the rules moved it backwards
// or wrote a value that is not a status.
func (c *Controller) guardStatus(before Status) {
	written := c.state.Get(ast.CompletionStatus)
	text := ""
	if s, ok := written.Scalar(); ok {
		text = s.Text()
	}
	next, ok := ParseStatus(text)
	if !ok {
		c.logger.Warn("ignored invalid completion status",
			"item_id", c.item.Identifier,
			"value", text,
		)
		c.state.setStatus(before)
		return
	}
	if _, err := before.Transition(next); err != nil {
		c.logger.Warn("refused completion status change",
			"item_id", c.item.Identifier,
			"from", string(before),
			"to", string(next),
		)
		c.state.setStatus(before)
	}
}

// Feedback renders the modal feedback entries visible under the current
// outcome values, in document order.
func (c *Controller) Feedback() ([]RenderedFeedback, content.Report) {
	var out []RenderedFeedback
	var removed content.Report
	for _, mf := range c.item.ModalFeedbacks {
		v := c.state.Get(mf.OutcomeIdentifier)
		if !content.Visible(v, mf.Identifier, mf.ShowHide) {
			continue
		}
		html, report := c.renderer.RenderChildren(mf.Content, c.state)
		removed.Add(report)
		out = append(out, RenderedFeedback{
			Identifier:        mf.Identifier,
			OutcomeIdentifier: mf.OutcomeIdentifier,
			Title:             mf.Title,
			HTML:              html,
		})
	}
	return out, removed
}
