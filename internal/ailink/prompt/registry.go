package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Registry provides access to prompt definitions.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// Set is a fixed prompt registry keyed by lowercase slug.
type Set struct {
	bySlug map[string]*Prompt
	slugs  []string
}

// NewRegistry indexes prompts. Duplicate slugs are rejected; use Overlay first
// when replacing built-ins.
func NewRegistry(prompts []*Prompt) (*Set, error) {
	set := &Set{bySlug: make(map[string]*Prompt, len(prompts))}
	for _, p := range prompts {
		if p == nil {
			continue
		}
		key := slugKey(p.Config.Slug)
		if key == "" {
			return nil, fmt.Errorf("prompt %s has no slug", p.Source)
		}
		if prev, dup := set.bySlug[key]; dup {
			return nil, fmt.Errorf("prompt slug %q defined by both %s and %s", key, prev.Source, p.Source)
		}
		set.bySlug[key] = p
		set.slugs = append(set.slugs, key)
	}
	sort.Strings(set.slugs)
	return set, nil
}

// Get returns the prompt for slug. The error names the available slugs.
func (s *Set) Get(slug string) (*Prompt, error) {
	if s == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	key := slugKey(slug)
	if key == "" {
		return nil, fmt.Errorf("prompt slug is required")
	}
	if p, ok := s.bySlug[key]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prompt %q not found (available: %s)", key, strings.Join(s.slugs, ", "))
}

// List returns prompts ordered by slug.
func (s *Set) List() []*Prompt {
	if s == nil {
		return nil
	}
	out := make([]*Prompt, len(s.slugs))
	for i, key := range s.slugs {
		out[i] = s.bySlug[key]
	}
	return out
}

func slugKey(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
