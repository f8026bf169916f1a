package prompt

import (
	"embed"
	"fmt"
	"strings"
)

// EnrichProspect is the slug of the built-in enrichment prompt.
const EnrichProspect = "enrich-prospect"

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// LoadDefaults loads the embedded prompt set.
func LoadDefaults() ([]*Prompt, error) {
	prompts, err := loadFS(defaultPromptsFS, "prompts", "embedded")
	if err != nil {
		return nil, fmt.Errorf("embedded prompts: %w", err)
	}
	return prompts, nil
}

// DefaultRegistry builds a registry from embedded prompts.
func DefaultRegistry() (Registry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	return NewRegistry(prompts)
}

// LoadRegistry builds a registry from the embedded prompts, with prompts from
// dir replacing built-ins of the same slug. An empty dir yields the defaults.
func LoadRegistry(dir string) (Registry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	if dir = strings.TrimSpace(dir); dir != "" {
		overrides, err := LoadFromDir(dir)
		if err != nil {
			return nil, err
		}
		prompts = Overlay(prompts, overrides)
	}
	return NewRegistry(prompts)
}

// Overlay returns base with any prompt sharing a slug with overrides replaced.
func Overlay(base, overrides []*Prompt) []*Prompt {
	bySlug := make(map[string]int, len(base))
	result := make([]*Prompt, 0, len(base)+len(overrides))
	for _, p := range base {
		if p == nil {
			continue
		}
		bySlug[p.Config.Slug] = len(result)
		result = append(result, p)
	}
	for _, p := range overrides {
		if p == nil {
			continue
		}
		if idx, ok := bySlug[p.Config.Slug]; ok {
			result[idx] = p
			continue
		}
		bySlug[p.Config.Slug] = len(result)
		result = append(result, p)
	}
	return result
}
