package config

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "parser.max_document_bytes").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateParser(&cfg.Parser)...)
	errs = append(errs, validateSession(&cfg.Session)...)
	errs = append(errs, validateSanitizer(&cfg.Sanitizer)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateParser validates parser limits.
func validateParser(cfg *ParserConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxDocumentBytes <= 0 {
		errs = append(errs, FieldError{
			Field:   "parser.max_document_bytes",
			Message: "max document bytes must be positive",
		})
	}
	if cfg.MaxExpressionDepth <= 0 {
		errs = append(errs, FieldError{
			Field:   "parser.max_expression_depth",
			Message: "max expression depth must be positive",
		})
	} else if cfg.MaxExpressionDepth > 1024 {
		errs = append(errs, FieldError{
			Field:   "parser.max_expression_depth",
			Message: fmt.Sprintf("max expression depth %d exceeds 1024", cfg.MaxExpressionDepth),
		})
	}

	return errs
}

// validateSession validates session settings.
func validateSession(cfg *SessionConfig) []FieldError {
	var errs []FieldError

	if cfg.TemplateConstraintRetries < 1 {
		errs = append(errs, FieldError{
			Field:   "session.template_constraint_retries",
			Message: "template constraint retries must be at least 1",
		})
	}

	return errs
}

var attributeName = regexp.MustCompile(`^[A-Za-z_:][A-Za-z0-9_:.-]*$`)

// validateSanitizer validates sanitizer additions.
func validateSanitizer(cfg *SanitizerConfig) []FieldError {
	var errs []FieldError

	for i, name := range cfg.ExtraURLAttributes {
		if !attributeName.MatchString(name) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("sanitizer.extra_url_attributes[%d]", i),
				Message: fmt.Sprintf("invalid attribute name %q", name),
			})
		}
	}
	for i, scheme := range cfg.BlockedSchemes {
		if strings.TrimSpace(scheme) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("sanitizer.blocked_schemes[%d]", i),
				Message: "blocked scheme must not be empty",
			})
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	// Validate metrics naming
	if cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.namespace",
			Message: "metrics namespace is required when metrics are enabled",
		})
	}
	for i := 1; i < len(cfg.Metrics.ProcessingDurationBuckets); i++ {
		if cfg.Metrics.ProcessingDurationBuckets[i] <= cfg.Metrics.ProcessingDurationBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.processing_duration_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	// Validate tracing configuration
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if cfg.Tracing.Sampler != "" && !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}
	switch cfg.Tracing.Exporter {
	case "", "none":
	case "otlp":
		if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "tracing endpoint is required for the otlp exporter",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.exporter",
			Message: fmt.Sprintf("invalid exporter %q: must be 'none' or 'otlp'", cfg.Tracing.Exporter),
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.ServiceName == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.service_name",
			Message: "service name is required when tracing is enabled",
		})
	}

	return errs
}
