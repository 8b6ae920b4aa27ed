// Package telemetry groups the observability packages of the item engine.
//
// # Components
//
//   - logging: Structured logging that masks candidate responses
//   - metrics: Prometheus metrics for compilation, processing, sessions and
//     sanitization
//   - tracing: OpenTelemetry spans around engine operations
//
// # Usage
//
//	cfg := config.GetConfig()
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	if err != nil {
//	    return err
//	}
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	it, err := item.New(src,
//	    item.WithLogger(logger.Slog()),
//	    item.WithMetrics(metrics.NewCollector(&cfg.Telemetry.Metrics, nil)),
//	    item.WithTracer(tracer),
//	)
//
// Every component is optional. A session built without them logs through
// slog.Default, records no metrics and opens noop spans.
//
// # Response Protection
//
// Candidate answers never reach telemetry output. Log attributes keyed by
// response identifiers or values are redacted, email addresses in any log
// string are masked, and spans and metric labels carry only item and session
// identifiers.
package telemetry
