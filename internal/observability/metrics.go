package observability

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// DefaultMetricsPort is used when the exporter address cannot be read back.
const DefaultMetricsPort = 9090

var (
	// TelemetrySystem receives every application metric. Nil disables emission.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the collected metrics.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// InitMetrics starts a Prometheus exporter on host:port and routes telemetry to
// it. Port 0 picks a free port; GetMetricsPort reports the bound one.
func InitMetrics(namespace string, host string, port int) error {
	if port < 0 {
		port = 0
	}
	metricsPort = port

	namespace = metricNamespace(namespace)
	endpoint := net.JoinHostPort(strings.TrimSpace(host), strconv.Itoa(port))

	exporter := exporters.NewPrometheusExporter(namespace, endpoint)
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start metrics exporter on %s: %w", endpoint, err)
	}

	if actual, err := resolvePort(exporter.GetAddr()); err == nil {
		metricsPort = actual
	} else if port == 0 {
		metricsPort = DefaultMetricsPort
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{
		Enabled: true,
		Emitter: exporter,
	})
	if err != nil {
		return fmt.Errorf("create telemetry system: %w", err)
	}

	PrometheusExporter = exporter
	TelemetrySystem = sys
	return nil
}

// MetricsEnabled reports whether InitMetrics succeeded.
func MetricsEnabled() bool {
	return TelemetrySystem != nil && PrometheusExporter != nil
}

// GetMetricsPort returns the port the Prometheus exporter is listening on
func GetMetricsPort() int {
	return metricsPort
}

// metricNamespace turns a service name into a Prometheus-safe prefix.
func metricNamespace(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "prospectlens"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func resolvePort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
