package metrics

import (
	"time"

	"mercator-hq/itemengine/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ProcessingMetrics tracks template and response processing.
//
// Metrics:
//   - qti_engine_processing_duration_seconds: Run time by phase
//   - qti_engine_rules_executed_total: Rules executed by phase
//   - qti_engine_evaluation_errors_total: Runs stopped by an error
//   - qti_engine_template_tries: templateProcessing passes per session
type ProcessingMetrics struct {
	duration      *prometheus.HistogramVec
	rulesExecuted *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	templateTries prometheus.Histogram
}

// NewProcessingMetrics creates and registers processing metrics with the provided registry.
func NewProcessingMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProcessingMetrics {
	pm := &ProcessingMetrics{
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "processing_duration_seconds",
				Help:      "Duration of a processing run in seconds",
				Buckets:   cfg.ProcessingDurationBuckets,
			},
			[]string{"phase"},
		),

		rulesExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_executed_total",
				Help:      "Total number of processing rules executed",
			},
			[]string{"phase"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_errors_total",
				Help:      "Total number of processing runs stopped by an error",
			},
			[]string{"phase", "error_type"},
		),

		templateTries: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "template_tries",
				Help:      "templateProcessing passes needed per session",
				Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
			},
		),
	}

	registry.MustRegister(pm.duration, pm.rulesExecuted, pm.errorsTotal, pm.templateTries)

	return pm
}

// Record records one processing run.
func (pm *ProcessingMetrics) Record(phase string, duration time.Duration, rules int) {
	pm.duration.WithLabelValues(phase).Observe(duration.Seconds())
	pm.rulesExecuted.WithLabelValues(phase).Add(float64(rules))
}

// RecordError records a failed run.
func (pm *ProcessingMetrics) RecordError(phase, errorType string) {
	pm.errorsTotal.WithLabelValues(phase, errorType).Inc()
}

// RecordTries records template passes.
func (pm *ProcessingMetrics) RecordTries(tries int) {
	pm.templateTries.Observe(float64(tries))
}
