package driver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxErrorMessage caps the provider message kept on a ProviderError.
const maxErrorMessage = 512

// ProviderError is returned when a provider responds with a non-2xx status.
//
// RawResponse holds the response body and must never include API keys.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Message     string
	RetryAfter  time.Duration
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	msg := fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	return msg
}

// NewProviderError builds a ProviderError from an HTTP answer. The message is
// taken from the usual JSON error shapes, else from the raw body.
func NewProviderError(provider string, status int, header http.Header, body []byte) *ProviderError {
	return &ProviderError{
		Provider:    provider,
		StatusCode:  status,
		Message:     errorMessage(body),
		RetryAfter:  parseRetryAfter(header.Get("Retry-After"), time.Now()),
		RawResponse: body,
	}
}

func errorMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		var nested struct {
			Message string `json:"message"`
		}
		var flat string
		switch {
		case len(envelope.Error) > 0 && json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "":
			return clip(nested.Message)
		case len(envelope.Error) > 0 && json.Unmarshal(envelope.Error, &flat) == nil && flat != "":
			return clip(flat)
		case envelope.Message != "":
			return clip(envelope.Message)
		}
	}
	return clip(string(body))
}

// parseRetryAfter reads delay-seconds or an HTTP date. Unparseable or past
// values give zero.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}

func clip(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) <= maxErrorMessage {
		return msg
	}
	return msg[:maxErrorMessage] + "..."
}
