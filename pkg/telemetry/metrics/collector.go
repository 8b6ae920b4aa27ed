package metrics

import (
	"fmt"
	"io"
	"sync"
	"time"

	"mercator-hq/itemengine/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Collector owns the engine's Prometheus metrics. A nil *Collector and a
// collector built from a disabled configuration both ignore every record
// call, so engine code never checks before recording.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	parseMetrics      *ParseMetrics
	processingMetrics *ProcessingMetrics
	sessionMetrics    *SessionMetrics
	contentMetrics    *ContentMetrics

	// item identifiers are labels; bound them
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := config.Default().Telemetry.Metrics
//	cfg.Enabled = true
//	collector := metrics.NewCollector(&cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.ProcessingDurationBuckets) == 0 {
		cfg.ProcessingDurationBuckets = append([]float64(nil), config.DefaultProcessingDurationBuckets...)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}

	c.parseMetrics = NewParseMetrics(cfg, registry)
	c.processingMetrics = NewProcessingMetrics(cfg, registry)
	c.sessionMetrics = NewSessionMetrics(cfg, registry)
	c.contentMetrics = NewContentMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// item bounds the item label; identifiers past the limit become "other".
func (c *Collector) item(identifier string) string {
	if !c.cardinalityLimiter.Allow(identifier) {
		return "other"
	}
	return identifier
}

// RecordParse records one item compilation.
//
// Parameters:
//   - result: "ok" or the error type ("syntax", "structural", "semantic", "validation")
//   - duration: Parse plus validation time
//   - size: Document size in bytes
func (c *Collector) RecordParse(result string, duration time.Duration, size int) {
	if !c.enabled() {
		return
	}

	c.parseMetrics.Record(result, duration, size)
}

// RecordProcessing records one run of a processing block.
//
// Parameters:
//   - phase: "template" or "response"
//   - duration: Wall time of the run
//   - rules: Number of rules executed
func (c *Collector) RecordProcessing(phase string, duration time.Duration, rules int) {
	if !c.enabled() {
		return
	}

	c.processingMetrics.Record(phase, duration, rules)
}

// RecordEvaluationError records a processing run that stopped on an error.
func (c *Collector) RecordEvaluationError(phase, errorType string) {
	if !c.enabled() {
		return
	}

	c.processingMetrics.RecordError(phase, errorType)
}

// RecordTemplateTries records how many templateProcessing passes a session
// needed before its constraints held.
func (c *Collector) RecordTemplateTries(tries int) {
	if !c.enabled() {
		return
	}

	c.processingMetrics.RecordTries(tries)
}

// RecordSubmission records a submitted attempt and the completion status
// it left the session in.
func (c *Collector) RecordSubmission(itemIdentifier, status string, counted bool) {
	if !c.enabled() {
		return
	}

	c.sessionMetrics.RecordSubmission(c.item(itemIdentifier), status, counted)
}

// RecordSessionStarted records a new session.
func (c *Collector) RecordSessionStarted(itemIdentifier string, restored bool) {
	if !c.enabled() {
		return
	}

	c.sessionMetrics.RecordStarted(c.item(itemIdentifier), restored)
}

// RecordRejected records a call refused because the session was completed.
func (c *Collector) RecordRejected(itemIdentifier string) {
	if !c.enabled() {
		return
	}

	c.sessionMetrics.RecordRejected(c.item(itemIdentifier))
}

// RecordSanitizerRemovals records content removed by the sanitizer.
//
// Parameters:
//   - kind: "script", "event_handler", "url", "srcdoc", "animation" or "raw_text"
//   - count: Number of constructs removed
func (c *Collector) RecordSanitizerRemovals(kind string, count int) {
	if !c.enabled() || count <= 0 {
		return
	}

	c.contentMetrics.RecordRemovals(kind, count)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteText writes every gathered metric family in the Prometheus text
// exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether a label value may be used: it is already known or
// the limit has not been reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
