package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces masked values.
const Redacted = "[REDACTED]"

// Pattern names understood by NewRedactor.
const (
	PatternEmail = "email"
)

// DefaultSensitiveKeys are attribute keys whose values are candidate
// answers. Matching is case-insensitive and exact.
var DefaultSensitiveKeys = []string{"response", "responses", "value", "values", "answer", "candidate_response"}

// Redactor masks candidate responses and free-text PII in log attributes.
type Redactor struct {
	keys     map[string]bool
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor with the default sensitive keys plus extra.
func NewRedactor(extraKeys ...string) *Redactor {
	r := &Redactor{keys: make(map[string]bool)}
	for _, k := range DefaultSensitiveKeys {
		r.keys[k] = true
	}
	for _, k := range extraKeys {
		r.keys[strings.ToLower(k)] = true
	}
	r.patterns = []*redactPattern{
		{
			name:        PatternEmail,
			regex:       regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
			replacement: "[EMAIL]",
		},
	}
	return r
}

// IsSensitiveKey reports whether values logged under key are masked.
func (r *Redactor) IsSensitiveKey(key string) bool {
	return r.keys[strings.ToLower(key)]
}

// RedactString masks PII patterns inside s.
func (r *Redactor) RedactString(s string) string {
	if s == "" {
		return s
	}
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// RedactAttr masks one attribute. Groups are walked recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if r.IsSensitiveKey(a.Key) {
		return slog.String(a.Key, Redacted)
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindGroup:
		group := v.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// RedactArgs masks variadic key/value log arguments.
// Args are in the form: key1, value1, key2, value2, ...
func (r *Redactor) RedactArgs(args ...any) []any {
	if len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 0; i < len(redacted); i++ {
		switch a := redacted[i].(type) {
		case slog.Attr:
			redacted[i] = r.RedactAttr(a)
		case string:
			if i+1 >= len(redacted) {
				continue
			}
			if r.IsSensitiveKey(a) {
				redacted[i+1] = Redacted
			} else if s, ok := redacted[i+1].(string); ok {
				redacted[i+1] = r.RedactString(s)
			}
			i++
		}
	}

	return redacted
}
