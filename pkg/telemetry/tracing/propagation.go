package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ErrInvalidTraceParent is returned for a malformed W3C traceparent value.
var ErrInvalidTraceParent = errors.New("invalid traceparent")

// W3C Trace Context lets a host that calls the engine (for example through
// the CLI) make engine spans children of its own:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
var propagator = propagation.TraceContext{}

// ContextWithTraceParent returns ctx carrying the remote span context in
// traceparent. An empty traceparent returns ctx unchanged.
func ContextWithTraceParent(ctx context.Context, traceparent string) (context.Context, error) {
	traceparent = strings.TrimSpace(traceparent)
	if traceparent == "" {
		return ctx, nil
	}
	if !ValidateTraceParent(traceparent) {
		return ctx, ErrInvalidTraceParent
	}

	out := propagator.Extract(ctx, propagation.MapCarrier{"traceparent": traceparent})
	if !trace.SpanContextFromContext(out).IsValid() {
		return ctx, ErrInvalidTraceParent
	}
	return out, nil
}

// TraceParent renders the span context in ctx as a traceparent value, or
// "" when ctx carries none.
func TraceParent(ctx context.Context) string {
	carrier := propagation.MapCarrier{}
	propagator.Inject(ctx, carrier)
	return carrier.Get("traceparent")
}

// ValidateTraceParent validates a traceparent value:
// version-trace_id-parent_id-trace_flags with 2, 32, 16 and 2 hex digits
// and non-zero IDs.
func ValidateTraceParent(traceparent string) bool {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return false
	}
	for i, n := range []int{2, 32, 16, 2} {
		if len(parts[i]) != n || !isHexString(parts[i]) {
			return false
		}
	}
	if strings.Trim(parts[1], "0") == "" || strings.Trim(parts[2], "0") == "" {
		return false
	}
	return true
}

// isHexString checks if a string contains only hexadecimal characters.
func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
