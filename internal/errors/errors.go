package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prospectlens/prospectlens/internal/core"
	"github.com/prospectlens/prospectlens/internal/core/dataset"
	"github.com/prospectlens/prospectlens/internal/core/store"
	"github.com/prospectlens/prospectlens/internal/metrics"
	"github.com/prospectlens/prospectlens/internal/observability"
	"github.com/prospectlens/prospectlens/internal/server/middleware"
)

// Error codes used across the API.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeConflict           = "CONFLICT"
	CodeVersionConflict    = "VERSION_CONFLICT"
	CodeThrottled          = "THROTTLED"
	CodeParseFailed        = "PARSE_FAILED"
	CodeResolutionFailed   = "RESOLUTION_FAILED"
	CodeUpstream           = "UPSTREAM_ERROR"
	CodeTimeout            = "TIMEOUT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// RetryAfterKey carries the retry delay, in whole seconds, in envelope details.
const RetryAfterKey = "retry_after_seconds"

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

// NewThrottledError reports an enrichment refused by the rate gate.
func NewThrottledError(subject string, retryAfter time.Duration) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(CodeThrottled, "enrichment throttled, retry later")
	return envelope.WithDetails(map[string]interface{}{
		"subject":     subject,
		RetryAfterKey: RetrySeconds(retryAfter),
	})
}

// RetrySeconds rounds a retry delay up to whole seconds, at least one.
func RetrySeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Wrap builds an envelope for code carrying the request correlation id and the
// wrapped error text.
func Wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(code, message)
	envelope = envelope.WithCorrelationID(extractCorrelationID(ctx))
	envelope = envelope.WithTraceID(extractCorrelationID(ctx))
	return withWrappedError(envelope, err)
}

// FromDomain maps domain errors to envelopes. Unknown errors become INTERNAL_ERROR.
func FromDomain(ctx context.Context, err error) *errors.ErrorEnvelope {
	var (
		envelope   *errors.ErrorEnvelope
		resolution *core.ResolutionError
		notFound   *core.NotFoundError
		parse      *core.ParseError
		upstream   *core.UpstreamCallError
	)

	switch {
	case err == nil:
		return EnsureEnvelope(nil)
	case stderrors.As(err, &envelope) && envelope != nil:
		return envelope
	case stderrors.As(err, &notFound):
		env := errors.NewErrorEnvelope(CodeNotFound, notFound.Error())
		return env.WithDetails(map[string]interface{}{"column": notFound.Column, "value": notFound.Value})
	case stderrors.Is(err, dataset.ErrSheetNotFound):
		return Wrap(ctx, CodeNotFound, err, "sheet not found")
	case stderrors.As(err, &resolution):
		env := errors.NewErrorEnvelope(CodeResolutionFailed, "sheet has no column for field "+resolution.Field)
		env = env.WithDetails(map[string]interface{}{
			"field":   resolution.Field,
			"aliases": resolution.Aliases,
			"columns": resolution.Columns,
		})
		env, _ = env.WithSeverity(errors.SeverityHigh)
		return env
	case stderrors.As(err, &parse):
		env := errors.NewErrorEnvelope(CodeParseFailed, "provider response could not be parsed")
		return withWrappedError(env, parse.Err)
	case stderrors.As(err, &upstream):
		env := errors.NewErrorEnvelope(CodeUpstream, upstream.Error())
		return env.WithDetails(map[string]interface{}{
			"provider_code":  upstream.Code,
			"quota_exceeded": upstream.QuotaExceeded(),
			"details":        upstream.Details,
		})
	case stderrors.Is(err, store.ErrVersionConflict):
		return Wrap(ctx, CodeVersionConflict, err, "sheet changed since it was read")
	case stderrors.Is(err, context.DeadlineExceeded):
		return Wrap(ctx, CodeTimeout, err, "request timed out")
	default:
		return EnsureEnvelope(err)
	}
}

// extractCorrelationID gets the request id from context, falling back to a new UUID
func extractCorrelationID(ctx context.Context) string {
	if ctx != nil {
		if requestID := middleware.GetRequestID(ctx); requestID != "" {
			return requestID
		}
	}
	return uuid.New().String()
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		env := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error")
		env, _ = env.WithSeverity(errors.SeverityCritical)
		return env
	}

	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	env := errors.NewErrorEnvelope(CodeInternal, "unexpected error")
	env, _ = env.WithContext(map[string]interface{}{
		"wrapped_error": err.Error(),
	})
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

// EnsureCorrelationID attaches a correlation ID to the envelope using the context when available.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil {
		return nil
	}

	if envelope.CorrelationID != "" {
		return envelope
	}

	var correlationID string
	if ctx != nil {
		correlationID = middleware.GetRequestID(ctx)
	}

	if correlationID == "" {
		correlationID = "fallback-" + errors.GenerateCorrelationID()
	}

	return envelope.WithCorrelationID(correlationID)
}

// HTTPStatusFromEnvelope resolves the HTTP status code corresponding to an error envelope.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatusFromCode(envelope.Code)
}

// HTTPStatusFromCode resolves the HTTP status code corresponding to an error code.
func HTTPStatusFromCode(code string) int {
	switch code {
	case CodeInvalidInput, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeConflict, CodeVersionConflict:
		return http.StatusConflict
	case CodeParseFailed:
		return http.StatusUnprocessableEntity
	case CodeThrottled:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUpstream, "EXTERNAL_SERVICE_ERROR":
		return http.StatusBadGateway
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func withWrappedError(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}

	updated, updateErr := envelope.WithContext(map[string]interface{}{
		"wrapped_error": err.Error(),
	})
	if updateErr != nil {
		return envelope
	}
	return updated
}

// ResponseDetails merges envelope details and context into an API-safe map.
func ResponseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	if envelope == nil {
		return nil
	}

	details := make(map[string]interface{})

	for key, value := range envelope.Details {
		details[key] = value
	}

	for key, value := range envelope.Context {
		if _, exists := details[key]; !exists {
			details[key] = value
		}
	}

	if len(details) == 0 {
		return nil
	}

	return details
}

// HTTPErrorDetail captures the error body returned to callers.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse wraps HTTPErrorDetail in the standard envelope structure.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError maps the error through FromDomain and writes a JSON response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var ctx context.Context
	if r != nil {
		ctx = r.Context()
	}
	RespondWithEnvelope(w, r, FromDomain(ctx, err))
}

// RespondWithEnvelope finalizes the provided envelope, logging and emitting metrics.
// Throttled responses carry a Retry-After header.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil {
		return
	}

	if r != nil {
		envelope = EnsureCorrelationID(envelope, r.Context())
	} else {
		envelope = EnsureCorrelationID(envelope, nil)
	}

	statusCode := HTTPStatusFromEnvelope(envelope)

	response := HTTPErrorResponse{
		Error: HTTPErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			Details:   ResponseDetails(envelope),
			RequestID: envelope.CorrelationID,
		},
	}

	logHTTPError(envelope, statusCode)
	emitErrorMetrics(r, envelope, statusCode)

	if seconds, ok := retryAfter(envelope); ok {
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func retryAfter(envelope *errors.ErrorEnvelope) (int, bool) {
	if envelope == nil || envelope.Details == nil {
		return 0, false
	}
	switch v := envelope.Details[RetryAfterKey].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func logHTTPError(envelope *errors.ErrorEnvelope, statusCode int) {
	if observability.ServerLogger == nil || envelope == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", statusCode),
	}

	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}

	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}

	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", envelope.CorrelationID))
	}

	switch {
	case envelope.Severity == errors.SeverityCritical, envelope.Severity == errors.SeverityHigh:
		observability.ServerLogger.Error(envelope.Message, fields...)
	case envelope.Severity == errors.SeverityMedium, statusCode >= 500:
		observability.ServerLogger.Warn(envelope.Message, fields...)
	default:
		observability.ServerLogger.Info(envelope.Message, fields...)
	}
}

func emitErrorMetrics(r *http.Request, envelope *errors.ErrorEnvelope, statusCode int) {
	if envelope == nil {
		return
	}

	metrics.RecordError(envelope.Code, statusCode)
	if r != nil {
		metrics.RecordErrorByEndpoint(r.URL.Path, envelope.Code)
	}
}
