package ailink

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prospectlens/prospectlens/internal/ailink/content"
	"github.com/prospectlens/prospectlens/internal/ailink/driver"
	"github.com/prospectlens/prospectlens/internal/ailink/prompt"
	"github.com/prospectlens/prospectlens/internal/core"
	"github.com/prospectlens/prospectlens/internal/metrics"
)

const (
	defaultTimeout = 60 * time.Second
	maxTimeout     = 5 * time.Minute
)

// Service renders prompts and sends them to the routed provider.
type Service struct {
	Providers *Registry
	Registry  prompt.Registry
}

// NewService builds a service from provider config, loading prompts from the
// embedded set overlaid with cfg.PromptsDir.
func NewService(cfg Config) (*Service, error) {
	registry, err := prompt.LoadRegistry(cfg.PromptsDir)
	if err != nil {
		return nil, err
	}
	return &Service{Providers: NewRegistry(cfg), Registry: registry}, nil
}

// Generate renders req.PromptSlug with req.Variables and returns the provider
// text. Provider failures are returned as *core.UpstreamCallError.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if s == nil || s.Providers == nil || s.Registry == nil {
		return nil, errors.New("ailink service not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	promptDef, err := s.Registry.Get(req.PromptSlug)
	if err != nil {
		return nil, err
	}
	system, user, err := promptDef.Render(req.Variables)
	if err != nil {
		return nil, err
	}

	resolved, err := s.Providers.Resolve(ctx, req.Role, promptDef, req.Model)
	if err != nil {
		return nil, err
	}

	driverReq := &driver.Request{
		Model: resolved.Model,
		Messages: []content.Message{
			content.TextMessage("system", system),
			content.TextMessage("user", user),
		},
		ResponseFormat: &driver.ResponseFormat{Type: "json_object"},
		PromptSlug:     promptDef.Config.Slug,
	}
	// Grounding tools only reach drivers that can run them.
	if resolved.Driver.Capabilities().SupportsGrounding {
		driverReq.Tools = promptTools(promptDef, req.UseTools)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout(req.TimeoutSec))
	defer cancel()

	resp, err := resolved.Driver.Complete(ctx, driverReq)
	if err != nil {
		if resolved.Probed && isModelGone(err) {
			s.Providers.ForgetModel(resolved.ProviderID)
		}
		callErr := mapProviderError(err)
		metrics.RecordUpstreamError(resolved.ProviderID, callErr.Code)
		return nil, callErr
	}

	text := extractContent(resp)
	if strings.TrimSpace(text) == "" {
		metrics.RecordUpstreamError(resolved.ProviderID, core.UpstreamError)
		return nil, &core.UpstreamCallError{Code: core.UpstreamError, Message: "empty response content"}
	}

	out := &GenerateResponse{
		Text:     text,
		Provider: resolved.ProviderID,
		Model:    resolved.Model,
	}
	if resp.Usage != nil {
		out.Usage = &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}

func (s *Service) timeout(requested int) time.Duration {
	duration := s.Providers.cfg.DefaultTimeout
	if duration <= 0 {
		duration = defaultTimeout
	}
	if requested > 0 {
		duration = time.Duration(requested) * time.Second
	}
	if duration > maxTimeout {
		duration = maxTimeout
	}
	return duration
}

func promptTools(def *prompt.Prompt, enabled bool) []driver.Tool {
	if def == nil || !enabled {
		return nil
	}
	if len(def.Config.Tools) == 0 {
		return nil
	}

	tools := make([]driver.Tool, 0, len(def.Config.Tools))
	for _, tool := range def.Config.Tools {
		tools = append(tools, driver.Tool{Type: tool.Type, Config: tool.Config})
	}
	return tools
}

func extractContent(resp *driver.Response) string {
	if resp == nil {
		return ""
	}
	return content.Text(resp.Content)
}
