// Package tracing wraps OpenTelemetry for the item engine.
//
// The facade in pkg/item opens spans around compilation, template
// initialization, response processing, attempt submission and rendering.
// Spans carry item and session attributes under the "qti.*" namespace and
// never carry candidate responses.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	it, err := item.New(src, item.WithTracer(tracer))
//
// With the "otlp" exporter spans are batched to a collector over gRPC.
// The default exporter "none" records spans without exporting them, which
// is useful together with WithSpanProcessor.
//
// ContextWithTraceParent continues a caller's W3C trace context.
package tracing
