package config

// Default values for configuration fields.
const (
	// Parser defaults
	DefaultMaxDocumentBytes   = int64(5 * 1024 * 1024)
	DefaultMaxExpressionDepth = 32

	// Session defaults
	DefaultTemplateConstraintRetries = 100

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsNamespace   = "qti"
	DefaultMetricsSubsystem   = "engine"
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "itemengine"
	DefaultTracingExporter    = "none"
)

// DefaultProcessingDurationBuckets are the processing latency histogram
// buckets in seconds. Item processing is in-memory, so they start well
// below a millisecond.
var DefaultProcessingDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Parser defaults
	if cfg.Parser.MaxDocumentBytes == 0 {
		cfg.Parser.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
	if cfg.Parser.MaxExpressionDepth == 0 {
		cfg.Parser.MaxExpressionDepth = DefaultMaxExpressionDepth
	}

	// Session defaults
	if cfg.Session.TemplateConstraintRetries == 0 {
		cfg.Session.TemplateConstraintRetries = DefaultTemplateConstraintRetries
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

// applyTelemetryDefaults applies default values to telemetry configuration.
func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.ProcessingDurationBuckets) == 0 {
		t.Metrics.ProcessingDurationBuckets = append([]float64(nil), DefaultProcessingDurationBuckets...)
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Exporter == "" {
		t.Tracing.Exporter = DefaultTracingExporter
	}
}
