package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanCompile  = "item.compile"
	SpanSession  = "item.session"
	SpanTemplate = "item.template"
	SpanProcess  = "item.process"
	SpanSubmit   = "item.submit"
	SpanRender   = "item.render"
)

// Attribute keys use the "qti.*" namespace.
const (
	AttrItemIdentifier   = "qti.item.identifier"
	AttrItemAdaptive     = "qti.item.adaptive"
	AttrDocumentBytes    = "qti.item.document_bytes"
	AttrSessionID        = "qti.session.id"
	AttrNumAttempts      = "qti.session.num_attempts"
	AttrCompletionStatus = "qti.session.completion_status"
	AttrCountAttempt     = "qti.attempt.counted"
	AttrRulesExecuted    = "qti.processing.rules_executed"
	AttrWrites           = "qti.processing.writes"
	AttrTemplateTries    = "qti.processing.template_tries"
	AttrRemoved          = "qti.content.removed"
	AttrErrorType        = "qti.error.type"
)

// ItemAttributes describes a compiled item.
func ItemAttributes(identifier string, adaptive bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrItemIdentifier, identifier),
		attribute.Bool(AttrItemAdaptive, adaptive),
	}
}

// SetSessionAttributes sets the session state on a span.
func SetSessionAttributes(span trace.Span, sessionID string, numAttempts int64, status string) {
	span.SetAttributes(
		attribute.String(AttrSessionID, sessionID),
		attribute.Int64(AttrNumAttempts, numAttempts),
		attribute.String(AttrCompletionStatus, status),
	)
}

// SetProcessingAttributes sets rule execution counts on a span.
func SetProcessingAttributes(span trace.Span, rulesExecuted, writes int) {
	span.SetAttributes(
		attribute.Int(AttrRulesExecuted, rulesExecuted),
		attribute.Int(AttrWrites, writes),
	)
}

// SetErrorType tags a span with an error category.
func SetErrorType(span trace.Span, errorType string) {
	if errorType == "" {
		return
	}
	span.SetAttributes(attribute.String(AttrErrorType, errorType))
}
