package openai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prospectlens/prospectlens/internal/ailink/content"
	"github.com/prospectlens/prospectlens/internal/ailink/driver"
)

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// buildChatRequest flattens each message to plain text. Declared tools are
// ignored: the only one prompts use is web_search, which this API lacks.
func buildChatRequest(req *driver.Request) (*chatCompletionRequest, error) {
	if req == nil {
		return nil, errors.New("request is required")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, errors.New("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages are required")
	}

	messages := make([]chatMessage, 0, len(req.Messages))
	for i, msg := range req.Messages {
		for _, block := range msg.Content {
			if block.Type != content.ContentTypeText && block.Type != content.ContentTypeJSON {
				return nil, fmt.Errorf("message %d: unsupported content type %q", i, block.Type)
			}
		}
		messages = append(messages, chatMessage{Role: msg.Role, Content: content.Text(msg.Content)})
	}

	payload := &chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type != "" {
		payload.ResponseFormat = &responseFormat{Type: req.ResponseFormat.Type}
	}
	return payload, nil
}
