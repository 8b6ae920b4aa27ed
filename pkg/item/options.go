package item

import (
	"log/slog"
	"math/rand/v2"

	"mercator-hq/itemengine/pkg/config"
	"mercator-hq/itemengine/pkg/qti/content"
	"mercator-hq/itemengine/pkg/qti/parser"
	"mercator-hq/itemengine/pkg/qti/session"
	"mercator-hq/itemengine/pkg/telemetry/metrics"
	"mercator-hq/itemengine/pkg/telemetry/tracing"
)

// Option configures Compile, New and NewSession. Options that only concern
// one step are ignored by the others.
type Option func(*options)

type options struct {
	// Compile
	sourceName string
	parser     config.ParserConfig

	// Session
	responses map[string]any
	snapshot  *session.Snapshot
	seed      uint64
	rng       *rand.Rand
	retries   int
	sanitizer *content.Sanitizer
	sessionID string

	// Ambient
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

func newOptions(opts []Option) *options {
	o := &options{
		parser: config.ParserConfig{
			MaxDocumentBytes:   config.DefaultMaxDocumentBytes,
			MaxExpressionDepth: config.DefaultMaxExpressionDepth,
		},
		retries: config.DefaultTemplateConstraintRetries,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = tracing.Noop()
	}
	return o
}

func (o *options) newParser() *parser.Parser {
	p := parser.NewParser().WithStrictMode(o.parser.Strict)
	if o.parser.MaxDocumentBytes > 0 {
		p.WithMaxDocumentSize(o.parser.MaxDocumentBytes)
	}
	if o.parser.MaxExpressionDepth > 0 {
		p.WithMaxDepth(o.parser.MaxExpressionDepth)
	}
	return p
}

// newRand returns the session's random source. An explicit source wins over
// a seed; without either a fresh seed is drawn.
func (o *options) newRand() *rand.Rand {
	if o.rng != nil {
		return o.rng
	}
	seed := o.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// WithConfig applies the parser, session and sanitizer sections of cfg.
// Later options override it.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		o.parser = cfg.Parser
		o.seed = cfg.Session.Seed
		if cfg.Session.TemplateConstraintRetries > 0 {
			o.retries = cfg.Session.TemplateConstraintRetries
		}
		o.sanitizer = content.NewSanitizer(
			content.WithURLAttributes(cfg.Sanitizer.ExtraURLAttributes...),
			content.WithBlockedPrefixes(cfg.Sanitizer.BlockedSchemes...),
		)
	}
}

// WithParserOptions sets the limits used when compiling the document.
func WithParserOptions(cfg config.ParserConfig) Option {
	return func(o *options) { o.parser = cfg }
}

// WithSourceName names the document in error locations.
func WithSourceName(name string) Option {
	return func(o *options) { o.sourceName = name }
}

// WithResponses stores initial candidate responses on the new session.
func WithResponses(responses map[string]any) Option {
	return func(o *options) { o.responses = responses }
}

// WithSnapshot resumes a session from a snapshot instead of running template
// processing.
func WithSnapshot(snap *session.Snapshot) Option {
	return func(o *options) { o.snapshot = snap }
}

// WithSeed makes template processing reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithRand sets the session's random source.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithTemplateConstraintRetries bounds templateConstraint restarts.
func WithTemplateConstraintRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithSanitizer replaces the default content sanitizer.
func WithSanitizer(s *content.Sanitizer) Option {
	return func(o *options) { o.sanitizer = s }
}

// WithSessionID sets the session identifier. A random UUID is used otherwise.
func WithSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the metrics collector. A nil collector records nothing.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithTracer sets the tracer.
func WithTracer(t *tracing.Tracer) Option {
	return func(o *options) { o.tracer = t }
}
