package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/prospectlens/prospectlens/internal/metrics"
	"github.com/prospectlens/prospectlens/internal/observability"
)

// responseWriter records the status and body size of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	wroteHeader  bool
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// getEndpointPattern returns the chi route pattern so prospect names never
// become metric labels.
func getEndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	path := r.URL.Path
	switch {
	case path == "/health" || strings.HasPrefix(path, "/health/"):
		return "/health/*"
	case path == "/version", path == "/metrics", path == "/":
		return path
	case strings.HasPrefix(path, "/api/v1/prospects/"):
		return "/api/v1/prospects/*"
	case strings.HasPrefix(path, "/api/v1/"):
		return path
	default:
		return "/unknown"
	}
}

// RequestMetrics records request counters and latency, then logs the request.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil && observability.ServerLogger == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		requestSize := int64(0)
		if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
			if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
				requestSize = size
			}
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		endpoint := getEndpointPattern(r)

		metrics.RecordHTTPRequest(metrics.HTTPRequest{
			Method:       r.Method,
			Endpoint:     endpoint,
			Status:       wrapped.statusCode,
			Duration:     duration,
			RequestSize:  requestSize,
			ResponseSize: wrapped.bytesWritten,
		})

		logRequest(r, endpoint, wrapped, requestSize, duration)
	})
}

// logRequest logs server errors at error level and client errors at warn.
// Health probes fire constantly and are logged at debug.
func logRequest(r *http.Request, endpoint string, rw *responseWriter, requestSize int64, duration time.Duration) {
	logger := observability.ServerLogger
	if logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("endpoint", endpoint),
		zap.Int("status", rw.statusCode),
		zap.Duration("duration", duration),
		zap.Int64("request_size", requestSize),
		zap.Int64("response_size", rw.bytesWritten),
		zap.String("requestID", GetRequestID(r.Context())),
	}
	switch {
	case rw.statusCode >= http.StatusInternalServerError:
		logger.Error("HTTP request failed", fields...)
	case rw.statusCode >= http.StatusBadRequest:
		logger.Warn("HTTP request rejected", fields...)
	case strings.HasPrefix(endpoint, "/health"):
		logger.Debug("HTTP request completed", fields...)
	default:
		logger.Info("HTTP request completed", fields...)
	}
}
