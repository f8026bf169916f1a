package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/prospectlens/prospectlens/internal/ailink/content"
	"github.com/prospectlens/prospectlens/internal/ailink/driver"
)

// Client implements the Gemini driver on top of the genai SDK.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration

	mu     sync.Mutex
	client *genai.Client
}

// NewClient returns a client. The SDK client is created on first use.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimSpace(baseURL),
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "gemini"
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsTools:     true,
		SupportsGrounding: true,
		SupportsStreaming: false,
	}
}

// Complete sends a generateContent request. A web_search tool enables Google
// Search grounding; JSON mode is only requested without it since the API
// rejects the combination.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	sdk, err := c.sdk(ctx)
	if err != nil {
		return nil, err
	}

	contents, config, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	trace := driver.TraceEntry{
		Driver:     "gemini",
		Endpoint:   "models/" + req.Model + ":generateContent",
		Method:     http.MethodPost,
		Model:      req.Model,
		PromptSlug: req.PromptSlug,
	}
	start := time.Now()

	resp, err := sdk.Models.GenerateContent(ctx, req.Model, contents, config)
	if driver.IsTracingEnabled() {
		requestBody, _ := json.Marshal(map[string]any{"contents": contents, "config": config})
		var responseBody []byte
		if resp != nil {
			responseBody, _ = json.Marshal(resp)
		}
		driver.TraceCall(trace, start, requestBody, responseBody, err)
	}
	if err != nil {
		return nil, mapError(err)
	}

	return toDriverResponse(resp)
}

func (c *Client) sdk(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:     c.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.HTTPClient,
	}
	if c.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	c.client = client
	return client, nil
}

func buildRequest(req *driver.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	system, messages := driver.SplitMessages(req.Messages)
	if len(messages) == 0 {
		return nil, nil, fmt.Errorf("messages are required")
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		var role genai.Role = genai.RoleUser
		if msg.Role == "assistant" || msg.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(content.Text(msg.Content), role))
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = int32(*req.MaxTokens) // #nosec G115 -- token limits are small
	}
	if req.HasTool(driver.ToolWebSearch) {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	} else if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" {
		config.ResponseMIMEType = "application/json"
	}
	return contents, config, nil
}

func toDriverResponse(resp *genai.GenerateContentResponse) (*driver.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response candidates")
	}

	candidate := resp.Candidates[0]
	response := &driver.Response{
		Content:      []content.ContentBlock{{Type: content.ContentTypeText, Text: resp.Text()}},
		FinishReason: strings.ToLower(string(candidate.FinishReason)),
	}

	if usage := resp.UsageMetadata; usage != nil {
		response.Usage = &driver.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}

	if grounding := candidate.GroundingMetadata; grounding != nil {
		sources := make([]any, 0, len(grounding.GroundingChunks))
		for _, chunk := range grounding.GroundingChunks {
			if chunk == nil || chunk.Web == nil {
				continue
			}
			sources = append(sources, map[string]any{"uri": chunk.Web.URI, "title": chunk.Web.Title})
		}
		response.ToolCalls = append(response.ToolCalls, driver.ToolCall{
			Type:   driver.ToolWebSearch,
			Name:   "google_search",
			Input:  map[string]any{"queries": grounding.WebSearchQueries},
			Result: map[string]any{"sources": sources},
		})
	}

	return response, nil
}

// mapError turns SDK API errors into driver.ProviderError so the status code
// drives the shared error classification.
func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &driver.ProviderError{Provider: "gemini", StatusCode: apiErr.Code, Message: apiMessage(apiErr)}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &driver.ProviderError{Provider: "gemini", StatusCode: apiErrPtr.Code, Message: apiMessage(*apiErrPtr)}
	}
	return fmt.Errorf("request failed: %w", err)
}

func apiMessage(err genai.APIError) string {
	msg := strings.TrimSpace(err.Message)
	if err.Status != "" {
		msg = strings.TrimSpace(err.Status + ": " + msg)
	}
	return msg
}
