package metrics

import (
	"strconv"

	"mercator-hq/itemengine/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics tracks candidate sessions.
//
// Metrics:
//   - qti_engine_sessions_started_total: Sessions by item and origin
//   - qti_engine_submissions_total: Submitted attempts by item and resulting status
//   - qti_engine_rejected_total: Calls refused on completed sessions
type SessionMetrics struct {
	startedTotal     *prometheus.CounterVec
	submissionsTotal *prometheus.CounterVec
	rejectedTotal    *prometheus.CounterVec
}

// NewSessionMetrics creates and registers session metrics with the provided registry.
func NewSessionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SessionMetrics {
	sm := &SessionMetrics{
		startedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sessions_started_total",
				Help:      "Total number of candidate sessions started",
			},
			[]string{"item", "restored"},
		),

		submissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "submissions_total",
				Help:      "Total number of submitted attempts",
			},
			[]string{"item", "status", "counted"},
		),

		rejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rejected_total",
				Help:      "Total number of calls refused because the session was completed",
			},
			[]string{"item"},
		),
	}

	registry.MustRegister(sm.startedTotal, sm.submissionsTotal, sm.rejectedTotal)

	return sm
}

// RecordStarted records a new session.
func (sm *SessionMetrics) RecordStarted(item string, restored bool) {
	sm.startedTotal.WithLabelValues(item, strconv.FormatBool(restored)).Inc()
}

// RecordSubmission records a submitted attempt.
func (sm *SessionMetrics) RecordSubmission(item, status string, counted bool) {
	sm.submissionsTotal.WithLabelValues(item, status, strconv.FormatBool(counted)).Inc()
}

// RecordRejected records a refused call.
func (sm *SessionMetrics) RecordRejected(item string) {
	sm.rejectedTotal.WithLabelValues(item).Inc()
}
