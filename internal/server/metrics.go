package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/prospectlens/prospectlens/internal/errors"
	"github.com/prospectlens/prospectlens/internal/observability"
)

var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// metricsProxy re-serves the exporter's Prometheus output on the API port, so
// enrichment counters can be scraped from the same address as /api/v1.
type metricsProxy struct {
	client *http.Client
	// port reports where the exporter listens; zero means unknown.
	port func() int
}

func newMetricsProxy() *metricsProxy {
	return &metricsProxy{
		client: &http.Client{Timeout: 5 * time.Second},
		port:   observability.GetMetricsPort,
	}
}

func (p *metricsProxy) target() string {
	port := 0
	if p.port != nil {
		port = p.port()
	}
	if port == 0 {
		port = observability.DefaultMetricsPort
	}
	return fmt.Sprintf("http://127.0.0.1:%d/metrics", port)
}

func (p *metricsProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if observability.PrometheusExporter == nil {
		apperrors.RespondWithError(w, r, apperrors.Wrap(r.Context(), apperrors.CodeServiceUnavailable,
			nil, "Metrics exporter not initialized"))
		return
	}

	target := p.target()
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.Wrap(r.Context(), apperrors.CodeInternal,
			err, "Unable to construct metrics request"))
		return
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.Wrap(r.Context(), apperrors.CodeServiceUnavailable,
			err, "Prometheus exporter unavailable"))
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			observability.Logger().Warn("Failed to close metrics response body", zap.Error(err))
		}
	}()

	for key, values := range resp.Header {
		if _, skip := hopByHopHeaders[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if resp.Header.Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		observability.Logger().Warn("Failed to write metrics response",
			zap.String("target", target),
			zap.Error(err))
	}
}
