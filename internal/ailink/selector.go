package ailink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/prospectlens/prospectlens/internal/ailink/content"
	"github.com/prospectlens/prospectlens/internal/ailink/driver"
)

const probeMaxTokens = 1

// modelSelector tries candidate models in order until one accepts a trial call
// and remembers the winner per provider for the process lifetime.
type modelSelector struct {
	mu     sync.Mutex
	chosen map[string]string
}

func newModelSelector() *modelSelector {
	return &modelSelector{chosen: map[string]string{}}
}

// Select returns the cached model for providerID or probes candidates. Failed
// probes are not cached. Authentication failures stop the probe since no other
// model would fare better. When every candidate fails the last failure is
// returned as a *core.UpstreamCallError listing all failures in Details.
func (s *modelSelector) Select(ctx context.Context, providerID string, drv driver.Driver, candidates []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if model, ok := s.chosen[providerID]; ok {
		return model, nil
	}
	if drv == nil {
		return "", errors.New("driver is required")
	}

	var (
		failures []string
		lastErr  error
	)
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		err := probe(ctx, drv, candidate)
		if err == nil {
			s.chosen[providerID] = candidate
			return candidate, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		failures = append(failures, fmt.Sprintf("%s: %v", candidate, err))
		lastErr = err
		if isAuthFailure(err) {
			break
		}
	}
	if len(failures) == 0 {
		return "", fmt.Errorf("no fallback models configured for provider %q", providerID)
	}
	callErr := *mapProviderError(lastErr)
	callErr.Details = fmt.Sprintf("no usable model for provider %q: %s", providerID, strings.Join(failures, "; "))
	return "", &callErr
}

// Forget drops the cached model so the next Select probes again.
func (s *modelSelector) Forget(providerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chosen, providerID)
}

func probe(ctx context.Context, drv driver.Driver, model string) error {
	maxTokens := probeMaxTokens
	_, err := drv.Complete(ctx, &driver.Request{
		Model:      model,
		Messages:   []content.Message{content.TextMessage("user", "ping")},
		MaxTokens:  &maxTokens,
		PromptSlug: "probe",
	})
	return err
}

// isModelGone reports whether the provider no longer serves the requested model.
func isModelGone(err error) bool {
	var perr *driver.ProviderError
	if !errors.As(err, &perr) || perr == nil {
		return false
	}
	return perr.StatusCode == 404
}

func isAuthFailure(err error) bool {
	var perr *driver.ProviderError
	if !errors.As(err, &perr) || perr == nil {
		return false
	}
	return perr.StatusCode == 401 || perr.StatusCode == 403
}
