// Package metrics provides Prometheus metrics for the item engine.
//
// # Metrics Categories
//
//   - Parse Metrics: compilations by result, compile time, document size
//   - Processing Metrics: template/response run time, rules executed,
//     evaluation errors, template constraint passes
//   - Session Metrics: sessions started, attempts submitted, calls refused
//     after completion
//   - Content Metrics: constructs removed by the sanitizer
//
// # Usage
//
//	cfg := config.Default().Telemetry.Metrics
//	cfg.Enabled = true
//	collector := metrics.NewCollector(&cfg, nil)
//
//	it, err := item.New(src, item.WithMetrics(collector))
//
// All record methods are no-ops on a nil collector or when metrics are
// disabled. Item identifiers used as labels are capped by a cardinality
// limiter; identifiers past the cap are reported as "other".
//
// Hosts expose the registry with Handler, or dump it with WriteText:
//
//	# HELP qti_engine_submissions_total Total number of submitted attempts
//	# TYPE qti_engine_submissions_total counter
//	qti_engine_submissions_total{counted="true",item="choice",status="completed"} 3
package metrics
