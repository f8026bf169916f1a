package metrics

import (
	"strconv"

	"github.com/prospectlens/prospectlens/internal/observability"
)

// Metric names
const (
	ErrorsTotalName         = "errors_total"
	PanicsTotalName         = "panics_total"
	ErrorsByEndpointName    = "errors_by_endpoint"
	UpstreamErrorsTotalName = "app_upstream_errors_total"
)

// RecordError records an error with code and status
func RecordError(errorCode string, httpStatus int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsTotalName,
			1,
			map[string]string{
				"error_code":  errorCode,
				"http_status": strconv.Itoa(httpStatus),
			},
		)
	}
}

// RecordPanic records a panic recovery
func RecordPanic() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			PanicsTotalName,
			1,
			nil,
		)
	}
}

// RecordErrorByEndpoint records an error by endpoint
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsByEndpointName,
			1,
			map[string]string{
				"endpoint":   endpoint,
				"error_code": errorCode,
			},
		)
	}
}

// RecordUpstreamError records a failed provider call by provider and error code.
func RecordUpstreamError(provider string, code string) {
	if observability.TelemetrySystem == nil {
		return
	}
	if provider == "" {
		provider = "unknown"
	}
	_ = observability.TelemetrySystem.Counter(
		UpstreamErrorsTotalName,
		1,
		map[string]string{
			"provider": provider,
			"code":     code,
		},
	)
}
