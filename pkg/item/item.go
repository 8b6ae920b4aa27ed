package item

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/content"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
	"mercator-hq/itemengine/pkg/qti/expr"
	"mercator-hq/itemengine/pkg/qti/interaction"
	"mercator-hq/itemengine/pkg/qti/rules"
	"mercator-hq/itemengine/pkg/qti/session"
	"mercator-hq/itemengine/pkg/qti/value"
	"mercator-hq/itemengine/pkg/telemetry/logging"
	"mercator-hq/itemengine/pkg/telemetry/metrics"
	"mercator-hq/itemengine/pkg/telemetry/tracing"
)

// Processing phases used as metric labels.
const (
	phaseTemplate = "template"
	phaseResponse = "response"
)

// Item is one candidate session over a compiled item.
//
// Item is not safe for concurrent use.
type Item struct {
	def      *Definition
	id       string
	state    *session.State
	ctrl     *session.Controller
	renderer *content.Renderer
	rng      *rand.Rand

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// New compiles source and starts a session over it.
func New(source []byte, opts ...Option) (*Item, error) {
	o := newOptions(opts)
	def, err := compile(context.Background(), source, o)
	if err != nil {
		return nil, err
	}
	return newSession(def, o)
}

// NewSession starts a session over a compiled item. Without WithSnapshot the
// item's templateProcessing runs once with the session's random source.
func NewSession(def *Definition, opts ...Option) (*Item, error) {
	return newSession(def, newOptions(opts))
}

func newSession(def *Definition, o *options) (it *Item, err error) {
	id := o.sessionID
	if id == "" && o.snapshot != nil {
		id = o.snapshot.SessionID
	}
	if id == "" {
		id = uuid.NewString()
	}

	ctx, span := o.tracer.Start(context.Background(), tracing.SpanSession,
		trace.WithAttributes(tracing.ItemAttributes(def.Identifier(), def.IsAdaptive())...),
	)
	defer func() { tracing.End(span, err) }()

	logger := o.logger.With("session_id", id)
	ev := expr.NewEvaluator(logger)
	renderer := content.NewRenderer(o.sanitizer, logger)
	state := session.NewState(def.item.Declarations)

	it = &Item{
		def:      def,
		id:       id,
		state:    state,
		ctrl:     session.NewController(def.item, state, rules.NewResponseProcessor(ev, logger), renderer, logger),
		renderer: renderer,
		rng:      o.newRand(),
		logger:   logger,
		metrics:  o.metrics,
		tracer:   o.tracer,
	}

	restored := o.snapshot != nil
	if restored {
		if err := it.restore(o.snapshot); err != nil {
			return nil, err
		}
	} else if err := it.initTemplates(ctx, ev, o.retries); err != nil {
		return nil, err
	}
	if err := it.initChoiceOrders(); err != nil {
		return nil, err
	}

	if o.responses != nil {
		if err := it.SetResponses(o.responses); err != nil {
			return nil, err
		}
	}

	o.metrics.RecordSessionStarted(def.Identifier(), restored)
	tracing.SetSessionAttributes(span, id, state.NumAttempts(), string(state.Status()))
	logger.InfoContext(logContext(ctx), "session started",
		"item_id", def.Identifier(),
		"restored", restored,
	)
	return it, nil
}

func (it *Item) restore(snap *session.Snapshot) error {
	if snap.ItemIdentifier != "" && snap.ItemIdentifier != it.def.Identifier() {
		return qtiErrors.New(qtiErrors.ErrorTypeValidation,
			"snapshot belongs to item %q, not %q", snap.ItemIdentifier, it.def.Identifier())
	}
	return it.state.Restore(snap)
}

// initTemplates runs templateProcessing and then resets responses and
// outcomes to the defaults it may have changed.
func (it *Item) initTemplates(ctx context.Context, ev *expr.Evaluator, retries int) (err error) {
	if !it.def.item.HasTemplateProcessing() {
		return nil
	}

	ctx, span := it.tracer.Start(ctx, tracing.SpanTemplate)
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	proc := rules.NewTemplateProcessor(ev, retries, it.logger)
	res, err := proc.Run(ctx, it.def.item.TemplateProcessing, it.state, it.rng)
	if res != nil {
		it.metrics.RecordProcessing(phaseTemplate, time.Since(start), res.RulesExecuted)
		it.metrics.RecordTemplateTries(res.Tries)
		tracing.SetProcessingAttributes(span, res.RulesExecuted, len(res.Writes))
		span.SetAttributes(attribute.Int(tracing.AttrTemplateTries, res.Tries))
	}
	if err != nil {
		it.recordError(span, phaseTemplate, err)
		return err
	}

	for _, d := range it.def.item.Declarations.ByKind(ast.KindResponse) {
		if d.BuiltIn {
			continue
		}
		if err := it.state.Set(d.Identifier, it.state.Default(d.Identifier)); err != nil {
			return err
		}
	}
	it.state.ResetOutcomes()
	return nil
}

// initChoiceOrders fixes the delivery order of every shuffled interaction
// once per session. Orders carried by a restored snapshot are kept.
func (it *Item) initChoiceOrders() error {
	seen := make(map[string]bool)
	for _, in := range it.def.catalog.ResponseBearing() {
		rid := in.ResponseIdentifier
		if !in.Shuffle || seen[rid] || it.state.Declaration(rid) == nil {
			continue
		}
		seen[rid] = true

		if order, ok := it.state.ChoiceOrder(rid); ok {
			if _, ok := in.ArrangedChoices(order); !ok {
				return qtiErrors.New(qtiErrors.ErrorTypeValidation,
					"snapshot choice order for %q does not match the choices of its interaction", rid)
			}
			continue
		}
		order := interaction.ChoiceIdentifiers(in.ShuffledChoices(it.rng))
		if err := it.state.SetChoiceOrder(rid, order); err != nil {
			return err
		}
	}
	return nil
}

func (it *Item) recordError(span trace.Span, phase string, err error) {
	errType := errorType(err)
	it.metrics.RecordEvaluationError(phase, errType)
	tracing.SetErrorType(span, errType)
}

// logContext adds the active trace ID for log correlation.
func logContext(ctx context.Context) context.Context {
	if traceID := tracing.TraceID(ctx); traceID != "" {
		return logging.WithTraceID(ctx, traceID)
	}
	return ctx
}

// SessionID returns the session identifier.
func (it *Item) SessionID() string { return it.id }

// Definition returns the compiled item the session runs on.
func (it *Item) Definition() *Definition { return it.def }

// Identifier returns the item identifier.
func (it *Item) Identifier() string { return it.def.Identifier() }

// Declarations returns the item's variable declarations.
func (it *Item) Declarations() *ast.Declarations { return it.def.Declarations() }

// IsAdaptive reports whether the item is adaptive.
func (it *Item) IsAdaptive() bool { return it.def.IsAdaptive() }

// IsCompleted reports whether the session reached completed.
func (it *Item) IsCompleted() bool { return it.state.Status().IsTerminal() }

// CompletionStatus returns the current completion status.
func (it *Item) CompletionStatus() session.Status { return it.state.Status() }

// NumAttempts returns the number of counted attempts.
func (it *Item) NumAttempts() int64 { return it.state.NumAttempts() }

// SetDuration records the time the candidate has spent on the item.
func (it *Item) SetDuration(d time.Duration) { it.state.SetDuration(d.Seconds()) }

// Responses returns copies of the candidate response values.
func (it *Item) Responses() map[string]value.Value { return it.values(ast.KindResponse) }

// Outcomes returns copies of the outcome values, completionStatus included.
func (it *Item) Outcomes() map[string]value.Value { return it.state.Values(ast.KindOutcome) }

// TemplateVariables returns copies of the template values.
func (it *Item) TemplateVariables() map[string]value.Value { return it.values(ast.KindTemplate) }

func (it *Item) values(kind ast.DeclarationKind) map[string]value.Value {
	out := it.state.Values(kind)
	for id := range out {
		if d := it.def.item.Declarations.Get(id); d != nil && d.BuiltIn {
			delete(out, id)
		}
	}
	return out
}

// SetResponses stores candidate responses. Values are host data as decoded
// from JSON or YAML, or value.Value. Either every value is stored or, when
// one fails to conform to its declaration, none is.
func (it *Item) SetResponses(responses map[string]any) error {
	return it.assign(ast.KindResponse, responses)
}

// SetTemplateVariables overrides template values, e.g. to replay a known
// variant. The same all-or-nothing rule as SetResponses applies.
func (it *Item) SetTemplateVariables(vars map[string]any) error {
	return it.assign(ast.KindTemplate, vars)
}

func (it *Item) assign(kind ast.DeclarationKind, in map[string]any) error {
	ids := make([]string, 0, len(in))
	for id := range in {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	conformed := make(map[string]value.Value, len(in))
	for _, id := range ids {
		v, err := it.convert(kind, id, in[id])
		if err != nil {
			return err
		}
		conformed[id] = v
	}
	for _, id := range ids {
		if err := it.state.Set(id, conformed[id]); err != nil {
			return err
		}
	}
	return nil
}

func (it *Item) convert(kind ast.DeclarationKind, id string, raw any) (value.Value, error) {
	d := it.def.item.Declarations.Get(id)
	if d == nil || d.BuiltIn || d.Kind != kind {
		e := qtiErrors.Wrap(qtiErrors.ErrorTypeValidation, qtiErrors.ErrNotFound, "no %s variable %q is declared", kind, id)
		e.Identifier = id
		if d == nil {
			e.Suggestion = qtiErrors.SuggestIdentifier(id, it.identifiers(kind))
		}
		return value.Null(), e
	}
	v, err := value.FromHost(d.Cardinality, d.BaseType, raw)
	if err != nil {
		e := qtiErrors.Wrap(qtiErrors.ErrorTypeValidation, err, "invalid value for %q", id)
		e.Identifier = id
		return value.Null(), e
	}
	return v, nil
}

func (it *Item) identifiers(kind ast.DeclarationKind) []string {
	var ids []string
	for _, d := range it.def.item.Declarations.ByKind(kind) {
		if !d.BuiltIn {
			ids = append(ids, d.Identifier)
		}
	}
	return ids
}

// ProcessResponses runs response processing once over the stored responses
// without counting an attempt.
func (it *Item) ProcessResponses(ctx context.Context) (result *session.ProcessResult, err error) {
	ctx, span := it.tracer.Start(ctx, tracing.SpanProcess,
		trace.WithAttributes(tracing.ItemAttributes(it.Identifier(), it.IsAdaptive())...),
	)
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	result, err = it.ctrl.Process(ctx)
	if err != nil {
		it.failed(ctx, span, err)
		return nil, err
	}

	it.metrics.RecordProcessing(phaseResponse, time.Since(start), result.RulesExecuted)
	tracing.SetProcessingAttributes(span, result.RulesExecuted, result.Writes)
	tracing.SetSessionAttributes(span, it.id, it.state.NumAttempts(), string(result.CompletionStatus))
	return result, nil
}

// SubmitAttempt ends an attempt. countAttempt false is used by interactions
// that end an attempt without counting it, such as a hint request. A
// completed session rejects the call with a state error.
func (it *Item) SubmitAttempt(ctx context.Context, countAttempt bool) (result *session.AttemptResult, err error) {
	ctx, span := it.tracer.Start(ctx, tracing.SpanSubmit,
		trace.WithAttributes(tracing.ItemAttributes(it.Identifier(), it.IsAdaptive())...),
		trace.WithAttributes(attribute.Bool(tracing.AttrCountAttempt, countAttempt)),
	)
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	result, err = it.ctrl.Submit(ctx, countAttempt)
	if err != nil {
		it.failed(ctx, span, err)
		return nil, err
	}

	it.metrics.RecordProcessing(phaseResponse, time.Since(start), result.RulesExecuted)
	it.metrics.RecordSubmission(it.Identifier(), string(result.CompletionStatus), countAttempt)
	it.recordRemovals(result.Removed)
	tracing.SetSessionAttributes(span, it.id, result.NumAttempts, string(result.CompletionStatus))
	span.SetAttributes(attribute.Int(tracing.AttrRulesExecuted, result.RulesExecuted))
	return result, nil
}

func (it *Item) failed(ctx context.Context, span trace.Span, err error) {
	if qtiErrors.IsStateError(err) {
		it.metrics.RecordRejected(it.Identifier())
		tracing.SetErrorType(span, errorType(err))
		it.logger.WarnContext(logContext(ctx), "call rejected",
			"item_id", it.Identifier(),
			"completion_status", string(it.state.Status()),
		)
		return
	}
	it.recordError(span, phaseResponse, err)
	it.logger.ErrorContext(logContext(ctx), "response processing failed",
		"item_id", it.Identifier(),
		"error", err,
	)
}

// Feedback renders the modal feedback visible under the current outcomes.
func (it *Item) Feedback() []session.RenderedFeedback {
	fb, removed := it.ctrl.Feedback()
	it.recordRemovals(removed)
	return fb
}

// ItemBodyHTML renders the item body with printed variables substituted,
// template and feedback content shown or hidden by the current values, and
// the sanitizer applied.
func (it *Item) ItemBodyHTML() (string, error) {
	return it.ItemBodyHTMLContext(context.Background())
}

// ItemBodyHTMLContext is ItemBodyHTML with a caller context for tracing.
func (it *Item) ItemBodyHTMLContext(ctx context.Context) (html string, err error) {
	_, span := it.tracer.Start(ctx, tracing.SpanRender,
		trace.WithAttributes(attribute.String(tracing.AttrItemIdentifier, it.Identifier())),
	)
	defer func() { tracing.End(span, err) }()

	if it.def.item.Body == nil {
		return "", qtiErrors.New(qtiErrors.ErrorTypeStructural, "item %q has no itemBody", it.Identifier())
	}
	html, report := it.renderer.Render(it.def.item.Body, it.state)
	it.recordRemovals(report)
	span.SetAttributes(attribute.Int(tracing.AttrRemoved, report.Total()))
	return html, nil
}

func (it *Item) recordRemovals(r content.Report) {
	it.metrics.RecordSanitizerRemovals("script", r.Scripts)
	it.metrics.RecordSanitizerRemovals("event_handler", r.EventHandlers)
	it.metrics.RecordSanitizerRemovals("url", r.URLs)
	it.metrics.RecordSanitizerRemovals("srcdoc", r.Srcdoc)
	it.metrics.RecordSanitizerRemovals("animation", r.Animations)
	it.metrics.RecordSanitizerRemovals("raw_text", r.RawText)
}

// Interactions returns every interaction of the item body in document order.
func (it *Item) Interactions() []interaction.Interaction { return it.def.Interactions() }

// ResponseInteractions returns the response-bearing interactions.
func (it *Item) ResponseInteractions() []interaction.Interaction {
	return it.def.ResponseInteractions()
}

// ResponseIdentifiers returns the response identifiers bound to interactions.
func (it *Item) ResponseIdentifiers() []string { return it.def.ResponseIdentifiers() }

// ShuffledChoices returns the choices of the interaction bound to
// responseIdentifier in delivery order. A shuffled interaction is permuted
// once when the session starts, so every call and every session restored
// from its snapshot sees the same order. Fixed choices keep their positions.
func (it *Item) ShuffledChoices(responseIdentifier string) []interaction.Choice {
	for _, in := range it.def.catalog.ResponseBearing() {
		if in.ResponseIdentifier != responseIdentifier {
			continue
		}
		if order, ok := it.state.ChoiceOrder(responseIdentifier); ok {
			if choices, ok := in.ArrangedChoices(order); ok {
				return choices
			}
		}
		return in.ShuffledChoices(nil)
	}
	return nil
}

// Progress counts answered response-bearing interactions. A nil map uses
// the stored responses. Values that do not conform count as unanswered.
func (it *Item) Progress(responses map[string]any) interaction.Progress {
	return it.def.catalog.Progress(it.candidate(responses))
}

// CanSubmitResponses reports whether every response-bearing interaction is
// answered and media interactions reached their minimum plays. A nil map
// uses the stored responses.
func (it *Item) CanSubmitResponses(responses map[string]any) bool {
	return it.def.catalog.CanSubmit(it.candidate(responses))
}

// ValidateResponses checks responses against their declarations and
// interaction constraints without storing anything.
func (it *Item) ValidateResponses(responses map[string]any) interaction.ValidationReport {
	return it.def.catalog.Validate(responses, it.def.item.Declarations)
}

func (it *Item) candidate(responses map[string]any) map[string]value.Value {
	if responses == nil {
		return it.Responses()
	}
	out := make(map[string]value.Value, len(responses))
	for id, raw := range responses {
		v, err := it.convert(ast.KindResponse, id, raw)
		if err != nil {
			continue
		}
		out[id] = v
	}
	return out
}

// SessionState returns a snapshot of the session. The snapshot shares no
// memory with the session.
func (it *Item) SessionState() *session.Snapshot {
	return it.state.Snapshot(it.Identifier(), it.id)
}
