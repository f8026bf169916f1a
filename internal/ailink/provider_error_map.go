package ailink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prospectlens/prospectlens/internal/ailink/driver"
	"github.com/prospectlens/prospectlens/internal/core"
)

// mapProviderError classifies a driver failure. The result is always non-nil
// for a non-nil err and keeps err as its cause.
func mapProviderError(err error) *core.UpstreamCallError {
	if err == nil {
		return nil
	}
	var already *core.UpstreamCallError
	if errors.As(err, &already) {
		return already
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &core.UpstreamCallError{Code: core.UpstreamTimeout, Message: "provider request timed out", Err: err}
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		details := strings.TrimSpace(perr.Message)
		if perr.RetryAfter > 0 {
			details = strings.TrimSpace(fmt.Sprintf("%s (retry after %s)", details, perr.RetryAfter))
		}
		switch {
		case status == 401 || status == 403:
			return &core.UpstreamCallError{Code: core.UpstreamAuth, Message: "provider authentication failed", Details: details, Err: err}
		case status == 429:
			return &core.UpstreamCallError{Code: core.UpstreamRateLimit, Message: "provider rate limited", Details: details, Err: err}
		case status >= 500 && status <= 599:
			return &core.UpstreamCallError{Code: core.UpstreamUnavailable, Message: "provider unavailable", Details: details, Err: err}
		case status >= 400 && status <= 499:
			return &core.UpstreamCallError{Code: core.UpstreamBadRequest, Message: "provider rejected request", Details: details, Err: err}
		default:
			return &core.UpstreamCallError{Code: core.UpstreamError, Message: "provider request failed", Details: details, Err: err}
		}
	}

	return &core.UpstreamCallError{Code: core.UpstreamError, Message: "provider request failed", Details: err.Error(), Err: err}
}
