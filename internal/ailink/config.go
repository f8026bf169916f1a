package ailink

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"
)

// Supported ai_provider values. openai and xai share the chat-completions driver.
const (
	providerOpenAI = "openai"
	providerXAI    = "xai"
	providerGemini = "gemini"
	providerGoogle = "google"
)

// Credential selection policies.
const (
	policyPriority   = "priority"
	policyRoundRobin = "round_robin"
)

// Config is the ailink subtree of the application config.
type Config struct {
	DefaultProvider string        `mapstructure:"default_provider"`
	DefaultTimeout  time.Duration `mapstructure:"default_timeout"`

	// PromptsDir overlays the built-in prompt set.
	PromptsDir string `mapstructure:"prompts_dir"`

	// Providers are keyed by a user-chosen id such as "gemini-main".
	Providers map[string]ProviderInstanceConfig `mapstructure:"providers"`

	// Routing pins a role ("enrich") to a provider id.
	Routing map[string]string `mapstructure:"routing"`
}

// ProviderInstanceConfig is one configured provider account.
type ProviderInstanceConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// AIProvider selects the driver: openai, xai, gemini or google.
	AIProvider string `mapstructure:"ai_provider"`

	// SelectionPolicy is "priority" (default) or "round_robin".
	SelectionPolicy string `mapstructure:"selection_policy"`

	// DefaultCredential pins a credential label when it is usable.
	DefaultCredential string `mapstructure:"default_credential"`

	BaseURL string            `mapstructure:"base_url"`
	Models  map[string]string `mapstructure:"models"`

	// FallbackModels are probed in order when no model is pinned. The first one
	// that answers a trial call is used for the rest of the process.
	FallbackModels []string `mapstructure:"fallback_models"`

	Roles []string `mapstructure:"roles"`

	Credentials []CredentialConfig `mapstructure:"credentials"`
}

// CredentialConfig is one API key. Several keys spread quota across accounts.
type CredentialConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Label    string `mapstructure:"label"`
	APIKey   string `mapstructure:"api_key"`
	Priority int    `mapstructure:"priority"`
}

// usable reports whether the credential can be sent. An unlabeled credential
// counts as enabled so a bare api_key in config just works.
func (c CredentialConfig) usable() bool {
	if strings.TrimSpace(c.APIKey) == "" {
		return false
	}
	return c.Enabled || strings.TrimSpace(c.Label) == ""
}

// ProviderIDs returns the enabled provider ids in sorted order.
func (c Config) ProviderIDs() []string {
	ids := make([]string, 0, len(c.Providers))
	for id, provider := range c.Providers {
		if provider.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ReadyProviders returns the enabled providers holding at least one usable key.
func (c Config) ReadyProviders() []string {
	var ready []string
	for _, id := range c.ProviderIDs() {
		for _, cred := range c.Providers[id].Credentials {
			if cred.usable() {
				ready = append(ready, id)
				break
			}
		}
	}
	return ready
}

// Validate checks driver names of enabled providers, selection policies and
// routing targets. Missing keys are not an error: they surface on first use.
func (c Config) Validate() error {
	var problems []string
	for _, id := range slices.Sorted(maps.Keys(c.Providers)) {
		provider := c.Providers[id]
		switch strings.ToLower(strings.TrimSpace(provider.AIProvider)) {
		case providerOpenAI, providerXAI, providerGemini, providerGoogle:
		default:
			if provider.Enabled {
				problems = append(problems, fmt.Sprintf("provider %q: unsupported ai_provider %q", id, provider.AIProvider))
			}
		}
		switch strings.ToLower(strings.TrimSpace(provider.SelectionPolicy)) {
		case "", policyPriority, policyRoundRobin:
		default:
			problems = append(problems, fmt.Sprintf("provider %q: unknown selection_policy %q", id, provider.SelectionPolicy))
		}
	}
	for _, role := range slices.Sorted(maps.Keys(c.Routing)) {
		target := strings.TrimSpace(c.Routing[role])
		if _, ok := c.Providers[target]; !ok {
			problems = append(problems, fmt.Sprintf("routing %q: unknown provider %q", role, target))
		}
	}
	if id := strings.TrimSpace(c.DefaultProvider); id != "" {
		if _, ok := c.Providers[id]; !ok {
			problems = append(problems, fmt.Sprintf("default_provider %q is not configured", id))
		}
	}
	if len(problems) > 0 {
		return errors.New("ailink: " + strings.Join(problems, "; "))
	}
	return nil
}
