package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricNamespace(t *testing.T) {
	assert.Equal(t, "prospectlens", metricNamespace(""))
	assert.Equal(t, "prospect_lens", metricNamespace(" Prospect-Lens "))
	assert.Equal(t, "crm_2", metricNamespace("crm.2"))
}

func TestResolvePort(t *testing.T) {
	port, err := resolvePort("[::]:9464")
	require.NoError(t, err)
	assert.Equal(t, 9464, port)

	_, err = resolvePort("no-port")
	assert.Error(t, err)
}

func TestMetricsDisabledByDefault(t *testing.T) {
	saved := TelemetrySystem
	TelemetrySystem = nil
	t.Cleanup(func() { TelemetrySystem = saved })

	assert.False(t, MetricsEnabled())
}
