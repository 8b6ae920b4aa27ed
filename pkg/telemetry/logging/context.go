package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// SessionIDKey is the context key for candidate session identifiers.
	SessionIDKey contextKey = "session_id"

	// ItemIDKey is the context key for assessment item identifiers.
	ItemIDKey contextKey = "item_id"

	// TraceIDKey is the context key for trace IDs.
	TraceIDKey contextKey = "trace_id"
)

// WithSessionID adds a session identifier to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// GetSessionID retrieves the session identifier from the context.
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

// WithItemID adds an item identifier to the context.
func WithItemID(ctx context.Context, itemID string) context.Context {
	return context.WithValue(ctx, ItemIDKey, itemID)
}

// GetItemID retrieves the item identifier from the context.
func GetItemID(ctx context.Context) string {
	if id, ok := ctx.Value(ItemIDKey).(string); ok {
		return id
	}
	return ""
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// contextAttrs extracts the correlation fields carried by ctx.
func contextAttrs(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	var fields []any
	if id := GetSessionID(ctx); id != "" {
		fields = append(fields, string(SessionIDKey), id)
	}
	if id := GetItemID(ctx); id != "" {
		fields = append(fields, string(ItemIDKey), id)
	}
	if id := GetTraceID(ctx); id != "" {
		fields = append(fields, string(TraceIDKey), id)
	}
	return fields
}
