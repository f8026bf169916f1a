package openai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prospectlens/prospectlens/internal/ailink/content"
	"github.com/prospectlens/prospectlens/internal/ailink/driver"
)

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *driver.Usage `json:"usage,omitempty"`
}

// toDriverResponse keeps the first choice. A refusal or a filtered empty
// answer is an error so the caller never merges an empty record.
func (r *chatCompletionResponse) toDriverResponse() (*driver.Response, error) {
	if r == nil || len(r.Choices) == 0 {
		return nil, errors.New("empty response choices")
	}
	first := r.Choices[0]
	text := strings.TrimSpace(first.Message.Content)
	if text == "" {
		if refusal := strings.TrimSpace(first.Message.Refusal); refusal != "" {
			return nil, fmt.Errorf("model refused: %s", refusal)
		}
		if first.FinishReason == "content_filter" {
			return nil, errors.New("response blocked by content filter")
		}
	}

	return &driver.Response{
		Content:      []content.ContentBlock{{Type: content.ContentTypeText, Text: first.Message.Content}},
		FinishReason: first.FinishReason,
		Usage:        r.Usage,
	}, nil
}
