package config

// Config is the root configuration structure for the item engine.
// It contains the parser limits, session behaviour, sanitizer rules and
// telemetry settings used by the itemengine CLI and by hosts that embed
// the engine.
type Config struct {
	// Parser contains limits applied while compiling item documents.
	Parser ParserConfig `yaml:"parser"`

	// Session contains defaults for new candidate sessions.
	Session SessionConfig `yaml:"session"`

	// Sanitizer contains additions to the built-in content sanitizer rules.
	Sanitizer SanitizerConfig `yaml:"sanitizer"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ParserConfig contains item document parsing limits.
type ParserConfig struct {
	// MaxDocumentBytes is the largest item document accepted.
	// Default: 5242880 (5 MiB)
	MaxDocumentBytes int64 `yaml:"max_document_bytes"`

	// MaxExpressionDepth limits nesting of expressions and conditions.
	// Default: 32
	MaxExpressionDepth int `yaml:"max_expression_depth"`

	// Strict turns lenient XML decoding and unknown response processing
	// templates into errors.
	// Default: false
	Strict bool `yaml:"strict"`
}

// SessionConfig contains candidate session settings.
type SessionConfig struct {
	// Seed seeds template randomisation. Zero draws a fresh seed per session.
	// Default: 0
	Seed uint64 `yaml:"seed"`

	// TemplateConstraintRetries is the number of templateProcessing passes
	// made before a failing templateConstraint is ignored.
	// Default: 100
	TemplateConstraintRetries int `yaml:"template_constraint_retries"`
}

// SanitizerConfig extends the content sanitizer.
type SanitizerConfig struct {
	// ExtraURLAttributes are attribute names treated as URL-bearing in
	// addition to href, src, action, formaction, xlink:href and data.
	ExtraURLAttributes []string `yaml:"extra_url_attributes"`

	// BlockedSchemes are URL prefixes removed in addition to javascript:,
	// vbscript: and data:text/html.
	BlockedSchemes []string `yaml:"blocked_schemes"`
}

// TelemetryConfig contains configuration for observability features.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactResponses masks candidate responses and emails in log entries.
	// A nil value means true.
	RedactResponses *bool `yaml:"redact_responses"`
}

// Redacting reports whether candidate responses are masked in logs.
func (c LoggingConfig) Redacting() bool {
	return c.RedactResponses == nil || *c.RedactResponses
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "qti"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "engine"
	Subsystem string `yaml:"subsystem"`

	// ProcessingDurationBuckets defines histogram buckets for processing
	// latency in seconds.
	// Default: [0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5]
	ProcessingDurationBuckets []float64 `yaml:"processing_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the service name in traces.
	// Default: "itemengine"
	ServiceName string `yaml:"service_name"`

	// Exporter selects where finished spans go.
	// Options: "none" (recorded, never exported), "otlp"
	// Default: "none"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector address, e.g. "localhost:4317".
	// Required when Exporter is "otlp".
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`
}
