package ailink

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prospectlens/prospectlens/internal/ailink/driver"
	"github.com/prospectlens/prospectlens/internal/core"
)

func TestMapProviderErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		wantCode   string
	}{
		{"auth", 401, core.UpstreamAuth},
		{"forbidden", 403, core.UpstreamAuth},
		{"rate", 429, core.UpstreamRateLimit},
		{"bad", 400, core.UpstreamBadRequest},
		{"unavail", 503, core.UpstreamUnavailable},
		{"odd", 302, core.UpstreamError},
	}

	for _, tc := range cases {
		err := &driver.ProviderError{Provider: "openai", StatusCode: tc.statusCode, Message: "boom"}
		mapped := mapProviderError(err)
		require.NotNil(t, mapped, tc.name)
		require.Equal(t, tc.wantCode, mapped.Code, tc.name)
		require.Equal(t, "boom", mapped.Details, tc.name)
		require.True(t, errors.Is(mapped, err), tc.name)
	}
}

func TestMapProviderErrorQuota(t *testing.T) {
	mapped := mapProviderError(fmt.Errorf("call: %w", &driver.ProviderError{Provider: "gemini", StatusCode: 429}))
	require.True(t, mapped.QuotaExceeded())
}

func TestMapProviderErrorTimeoutAndPlain(t *testing.T) {
	require.Nil(t, mapProviderError(nil))
	require.Equal(t, core.UpstreamTimeout, mapProviderError(context.DeadlineExceeded).Code)

	plain := mapProviderError(errors.New("connection reset"))
	require.Equal(t, core.UpstreamError, plain.Code)
	require.Equal(t, "connection reset", plain.Details)

	same := &core.UpstreamCallError{Code: core.UpstreamAuth}
	require.Same(t, same, mapProviderError(same))
}

func TestMapProviderErrorKeepsRetryHint(t *testing.T) {
	mapped := mapProviderError(&driver.ProviderError{Provider: "openai", StatusCode: 429, Message: "slow down", RetryAfter: 20 * time.Second})
	require.Equal(t, core.UpstreamRateLimit, mapped.Code)
	require.Equal(t, "slow down (retry after 20s)", mapped.Details)
}
