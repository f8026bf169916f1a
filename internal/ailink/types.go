package ailink

// GenerateRequest is the high-level request for a prompt-driven generation.
type GenerateRequest struct {
	Role       string
	PromptSlug string
	Variables  map[string]string
	Model      string
	TimeoutSec int
	UseTools   bool
}

// GenerateResponse carries the provider text and what produced it.
type GenerateResponse struct {
	Text     string
	Provider string
	Model    string
	Usage    *Usage
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
