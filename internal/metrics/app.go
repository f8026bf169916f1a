package metrics

import (
	"time"

	"github.com/prospectlens/prospectlens/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Enrichment metrics
	EnrichmentsTotal   = "app_enrichments_total"
	EnrichmentDuration = "app_enrichment_duration_ms"
	ThrottledTotal     = "app_enrichments_throttled_total"

	// Sheet metrics
	SheetWritesTotal = "app_sheet_writes_total"
	SheetRows        = "app_sheet_rows"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
)

// RecordEnrichment records the outcome of one enrichment cycle. status is an
// enrichment status or an error class such as "upstream" or "parse".
func RecordEnrichment(status string, provider string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	if provider == "" {
		provider = "none"
	}
	_ = observability.TelemetrySystem.Counter(
		EnrichmentsTotal,
		1,
		map[string]string{
			"status":   status,
			"provider": provider,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		EnrichmentDuration,
		duration,
		map[string]string{
			"status": status,
		},
	)
}

// RecordThrottled records an enrichment rejected by the rate gate.
func RecordThrottled(retryAfter time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ThrottledTotal,
			1,
			map[string]string{
				"retry_after_bucket": retryBucket(retryAfter),
			},
		)
	}
}

// RecordSheetWrite records a full sheet rewrite and the resulting row count.
func RecordSheetWrite(table string, rows int, success bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	_ = observability.TelemetrySystem.Counter(
		SheetWritesTotal,
		1,
		map[string]string{
			"table":  table,
			"status": status,
		},
	)
	if success {
		_ = observability.TelemetrySystem.Gauge(
			SheetRows,
			float64(rows),
			map[string]string{
				"table": table,
			},
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

func retryBucket(d time.Duration) string {
	switch {
	case d <= time.Second:
		return "le_1s"
	case d <= 5*time.Second:
		return "le_5s"
	default:
		return "gt_5s"
	}
}
