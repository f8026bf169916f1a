package driver

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewProviderErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"openai shape", `{"error":{"message":"Rate limit reached","type":"requests"}}`, "Rate limit reached"},
		{"flat error", `{"error":"model not found"}`, "model not found"},
		{"message only", `{"message":"bad key"}`, "bad key"},
		{"plain text", "  upstream connect error  ", "upstream connect error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewProviderError("openai", 429, http.Header{}, []byte(tt.body))
			assert.Equal(t, tt.want, err.Message)
			assert.Equal(t, []byte(tt.body), err.RawResponse)
		})
	}
}

func TestNewProviderErrorClipsLongBodies(t *testing.T) {
	err := NewProviderError("openai", 500, http.Header{}, []byte(strings.Repeat("x", 2000)))
	assert.Len(t, err.Message, maxErrorMessage+3)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 7*time.Second, parseRetryAfter("7", now))
	assert.Equal(t, 30*time.Second, parseRetryAfter(now.Add(30*time.Second).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter("", now))
	assert.Zero(t, parseRetryAfter("-1", now))
	assert.Zero(t, parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter("soon", now))
}

func TestProviderErrorString(t *testing.T) {
	err := &ProviderError{Provider: "openai", StatusCode: 429, Message: "slow down", RetryAfter: 2 * time.Second}
	assert.Equal(t, "openai request failed: status 429: slow down (retry after 2s)", err.Error())
	assert.Equal(t, "gemini request failed: boom", (&ProviderError{Provider: "gemini", Message: "boom"}).Error())
}
