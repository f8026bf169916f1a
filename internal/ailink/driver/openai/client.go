// Package openai drives chat-completions compatible endpoints. xAI and most
// self-hosted gateways speak the same dialect, so one client serves them all.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prospectlens/prospectlens/internal/ailink/driver"
)

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	defaultProvider = "openai"
	// maxResponseBytes bounds how much of a provider reply is buffered.
	maxResponseBytes = 4 << 20
)

// Client speaks the chat completions API over plain HTTP.
type Client struct {
	// Provider labels errors and trace entries, e.g. "xai".
	Provider   string
	BaseURL    string
	APIKey     string
	UserAgent  string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client for the given endpoint. An empty baseURL targets
// api.openai.com.
func NewClient(baseURL, apiKey string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}
	return &Client{
		Provider: defaultProvider,
		BaseURL:  strings.TrimRight(url, "/"),
		APIKey:   strings.TrimSpace(apiKey),
	}
}

// Name returns the provider label.
func (c *Client) Name() string {
	if c == nil || strings.TrimSpace(c.Provider) == "" {
		return defaultProvider
	}
	return c.Provider
}

// Capabilities reports no grounding: chat completions has no server-side search.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{}
}

// Complete posts one chat completion and returns the first choice.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, errors.New("openai client not configured")
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("%s: api key is required", c.Name())
	}

	payload, err := buildChatRequest(req)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	trace := driver.TraceEntry{
		Driver:     c.Name(),
		Endpoint:   c.BaseURL + "/chat/completions",
		Method:     http.MethodPost,
		Model:      payload.Model,
		PromptSlug: req.PromptSlug,
	}
	start := time.Now()

	status, header, respBody, err := c.post(ctx, trace.Endpoint, body)
	trace.StatusCode = status
	driver.TraceCall(trace, start, body, respBody, err)
	if err != nil {
		return nil, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, driver.NewProviderError(c.Name(), status, header, respBody)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", c.Name(), err)
	}
	return parsed.toDriverResponse()
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (int, http.Header, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.UserAgent); ua != "" {
		httpReq.Header.Set("User-Agent", ua)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%s request failed: %w", c.Name(), err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, resp.Header, nil, fmt.Errorf("read %s response: %w", c.Name(), err)
	}
	return resp.StatusCode, resp.Header, respBody, nil
}
