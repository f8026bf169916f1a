package driver

import (
	"context"

	"github.com/prospectlens/prospectlens/internal/ailink/content"
)

// Driver defines the interface for AI completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "gemini").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// Capabilities describes driver features.
type Capabilities struct {
	SupportsTools     bool
	SupportsGrounding bool
	SupportsStreaming bool
}

// Tool represents a server-side tool declared by a prompt.
type Tool struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// ToolWebSearch asks the provider to ground the answer on live web results.
const ToolWebSearch = "web_search"

// ResponseFormat specifies the expected response format.
type ResponseFormat struct {
	Type string `json:"type"` // "text", "json_object"
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model          string
	Messages       []content.Message
	Tools          []Tool
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      *int
	PromptSlug     string
}

// Response is a provider-agnostic completion response.
type Response struct {
	Content      []content.ContentBlock
	FinishReason string
	Usage        *Usage
	ToolCalls    []ToolCall
}

// ToolCall represents a tool invocation captured by the provider.
type ToolCall struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Name   string         `json:"name,omitempty"`
	Input  map[string]any `json:"input,omitempty"`
	Result map[string]any `json:"result,omitempty"`
}

// HasTool reports whether req declares a tool of the given type.
func (r *Request) HasTool(kind string) bool {
	if r == nil {
		return false
	}
	for _, tool := range r.Tools {
		if tool.Type == kind {
			return true
		}
	}
	return false
}

// SplitMessages returns the joined system text and the remaining messages.
func SplitMessages(messages []content.Message) (string, []content.Message) {
	var (
		system string
		rest   = make([]content.Message, 0, len(messages))
	)
	for _, msg := range messages {
		if msg.Role != "system" {
			rest = append(rest, msg)
			continue
		}
		text := content.Text(msg.Content)
		if system == "" {
			system = text
		} else if text != "" {
			system += "\n\n" + text
		}
	}
	return system, rest
}
