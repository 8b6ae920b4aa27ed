package logging

import (
	"context"
	"log/slog"
)

// Handler is a slog.Handler that adds context correlation fields and masks
// candidate responses before delegating to another handler. Loggers built
// on it can be handed to engine components that only know *slog.Logger.
type Handler struct {
	next     slog.Handler
	redactor *Redactor
}

// NewHandler wraps next. A nil redactor disables masking.
func NewHandler(next slog.Handler, redactor *Redactor) *Handler {
	return &Handler{next: next, redactor: redactor}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	fields := contextAttrs(ctx)
	for i := 0; i+1 < len(fields); i += 2 {
		out.AddAttrs(slog.String(fields[i].(string), fields[i+1].(string)))
	}

	r.Attrs(func(a slog.Attr) bool {
		if h.redactor != nil {
			a = h.redactor.RedactAttr(a)
		}
		out.AddAttrs(a)
		return true
	})
	if h.redactor != nil {
		out.Message = h.redactor.RedactString(out.Message)
	}
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.redactor != nil {
		masked := make([]slog.Attr, len(attrs))
		for i, a := range attrs {
			masked[i] = h.redactor.RedactAttr(a)
		}
		attrs = masked
	}
	return &Handler{next: h.next.WithAttrs(attrs), redactor: h.redactor}
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name), redactor: h.redactor}
}
