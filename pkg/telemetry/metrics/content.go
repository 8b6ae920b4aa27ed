package metrics

import (
	"mercator-hq/itemengine/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ContentMetrics tracks the content sanitizer.
//
// Metrics:
//   - qti_engine_sanitizer_removals_total: Removed constructs by kind
type ContentMetrics struct {
	removalsTotal *prometheus.CounterVec
}

// NewContentMetrics creates and registers content metrics with the provided registry.
func NewContentMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ContentMetrics {
	cm := &ContentMetrics{
		removalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sanitizer_removals_total",
				Help:      "Total number of elements, attributes and URLs removed from item content",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(cm.removalsTotal)

	return cm
}

// RecordRemovals adds removed constructs of one kind.
func (cm *ContentMetrics) RecordRemovals(kind string, count int) {
	cm.removalsTotal.WithLabelValues(kind).Add(float64(count))
}
