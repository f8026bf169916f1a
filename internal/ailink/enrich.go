package ailink

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prospectlens/prospectlens/internal/ailink/prompt"
	"github.com/prospectlens/prospectlens/internal/core/engine"
)

// ProspectGenerator adapts the service to the enrichment cycle.
type ProspectGenerator struct {
	Service    *Service
	Role       string
	PromptSlug string
	// Model is used when the request names none.
	Model string
	// Descriptions explain canonical fields to the model.
	Descriptions map[string]string
	// DisableTools turns off web grounding.
	DisableTools bool
	Clock        func() time.Time
}

var _ engine.Generator = (*ProspectGenerator)(nil)

// Generate renders the enrichment prompt for one prospect.
func (g *ProspectGenerator) Generate(ctx context.Context, req engine.GenerationRequest) (*engine.Generation, error) {
	if g == nil || g.Service == nil {
		return nil, errors.New("prospect generator not configured")
	}
	if len(req.Fields) == 0 {
		return nil, errors.New("no enrichable columns in sheet")
	}

	slug := strings.TrimSpace(g.PromptSlug)
	if slug == "" {
		slug = prompt.EnrichProspect
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = strings.TrimSpace(g.Model)
	}
	resp, err := g.Service.Generate(ctx, GenerateRequest{
		Role:       g.Role,
		PromptSlug: slug,
		Variables:  g.variables(req),
		Model:      model,
		UseTools:   !g.DisableTools,
	})
	if err != nil {
		return nil, err
	}
	return &engine.Generation{Text: resp.Text, Provider: resp.Provider, Model: resp.Model}, nil
}

func (g *ProspectGenerator) variables(req engine.GenerationRequest) map[string]string {
	fields := make([]string, 0, len(req.Fields))
	for _, field := range req.Fields {
		if desc := strings.TrimSpace(g.Descriptions[field]); desc != "" {
			fields = append(fields, fmt.Sprintf("- %s : %s", field, desc))
		} else {
			fields = append(fields, "- "+field)
		}
	}

	keys := make([]string, 0, len(req.Known))
	for key := range req.Known {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	known := make([]string, 0, len(keys))
	for _, key := range keys {
		known = append(known, fmt.Sprintf("- %s : %s", key, req.Known[key]))
	}

	now := time.Now()
	if g.Clock != nil {
		now = g.Clock()
	}
	return map[string]string{
		"company": req.Subject,
		"input":   req.Subject,
		"fields":  strings.Join(fields, "\n"),
		"known":   strings.Join(known, "\n"),
		"today":   now.Format("2006-01-02"),
	}
}
