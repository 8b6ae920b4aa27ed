package metrics

import (
	"time"

	"mercator-hq/itemengine/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ParseMetrics tracks item compilation.
//
// Metrics:
//   - qti_engine_parses_total: Compilations by result
//   - qti_engine_parse_duration_seconds: Compilation time
//   - qti_engine_document_size_bytes: Item document sizes
type ParseMetrics struct {
	parsesTotal   *prometheus.CounterVec
	parseDuration prometheus.Histogram
	documentSize  prometheus.Histogram
}

// NewParseMetrics creates and registers parse metrics with the provided registry.
func NewParseMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ParseMetrics {
	pm := &ParseMetrics{
		parsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "parses_total",
				Help:      "Total number of item documents compiled",
			},
			[]string{"result"},
		),

		parseDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "parse_duration_seconds",
				Help:      "Duration of item compilation in seconds",
				Buckets:   cfg.ProcessingDurationBuckets,
			},
		),

		documentSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "document_size_bytes",
				Help:      "Size of compiled item documents in bytes",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 8), // 1KB to 16MB
			},
		),
	}

	registry.MustRegister(pm.parsesTotal, pm.parseDuration, pm.documentSize)

	return pm
}

// Record records one compilation.
func (pm *ParseMetrics) Record(result string, duration time.Duration, size int) {
	pm.parsesTotal.WithLabelValues(result).Inc()
	pm.parseDuration.Observe(duration.Seconds())
	pm.documentSize.Observe(float64(size))
}
