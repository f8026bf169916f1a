package ailink

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/prospectlens/prospectlens/internal/ailink/driver"
	"github.com/prospectlens/prospectlens/internal/ailink/driver/gemini"
	"github.com/prospectlens/prospectlens/internal/ailink/driver/openai"
	"github.com/prospectlens/prospectlens/internal/ailink/prompt"
)

const xaiBaseURL = "https://api.x.ai/v1"

// Registry routes roles to provider instances and caches one driver per
// provider credential.
type Registry struct {
	cfg Config

	mu      sync.Mutex
	drivers map[string]driver.Driver
	cursors map[string]int

	models *modelSelector
}

// ResolvedProvider is everything needed to send one request.
type ResolvedProvider struct {
	ProviderID string
	Provider   ProviderInstanceConfig
	Credential CredentialConfig
	Driver     driver.Driver
	Model      string
	// Probed is set when Model came from the fallback probe.
	Probed bool
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

// Config returns the provider configuration.
func (r *Registry) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.cfg
}

// Resolve picks the provider, credential, driver and model for a role. When no
// model is pinned and the provider lists fallback models, they are probed.
func (r *Registry) Resolve(ctx context.Context, role string, promptDef *prompt.Prompt, modelOverride string) (*ResolvedProvider, error) {
	providerID, providerCfg, err := r.resolveProvider(role)
	if err != nil {
		return nil, err
	}

	cred, credKey, err := selectCredential(providerCfg, func(group string, n int) int {
		return r.rrIndex(providerID+":"+group, n)
	})
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", providerID, err)
	}

	drv, err := r.driverFor(providerID, providerCfg, cred, credKey)
	if err != nil {
		return nil, err
	}

	model := resolveModel(providerCfg, promptDef, modelOverride, role)
	probed := false
	if model == "" {
		if len(providerCfg.FallbackModels) == 0 {
			return nil, fmt.Errorf("model not configured for provider %q", providerID)
		}
		if model, err = r.selector().Select(ctx, providerID, drv, providerCfg.FallbackModels); err != nil {
			return nil, err
		}
		probed = true
	}

	return &ResolvedProvider{
		ProviderID: providerID,
		Provider:   providerCfg,
		Credential: cred,
		Driver:     drv,
		Model:      model,
		Probed:     probed,
	}, nil
}

// ForgetModel drops the probed model of providerID so the next Resolve probes
// the fallback list again.
func (r *Registry) ForgetModel(providerID string) {
	if r == nil {
		return
	}
	r.selector().Forget(providerID)
}

// resolveProvider applies, in order: explicit routing for the role, the first
// enabled provider (by id) declaring the role, the default provider, and the
// only enabled provider.
func (r *Registry) resolveProvider(role string) (string, ProviderInstanceConfig, error) {
	if r == nil {
		return "", ProviderInstanceConfig{}, errors.New("ailink registry not configured")
	}

	if role = strings.TrimSpace(role); role != "" {
		if id := strings.TrimSpace(r.cfg.Routing[role]); id != "" {
			providerCfg, err := r.enabledProvider(id)
			if err != nil {
				return "", ProviderInstanceConfig{}, fmt.Errorf("role %q: %w", role, err)
			}
			return id, providerCfg, nil
		}
		for _, id := range r.cfg.ProviderIDs() {
			if hasRole(r.cfg.Providers[id].Roles, role) {
				return id, r.cfg.Providers[id], nil
			}
		}
	}

	if id := strings.TrimSpace(r.cfg.DefaultProvider); id != "" {
		providerCfg, err := r.enabledProvider(id)
		if err != nil {
			return "", ProviderInstanceConfig{}, fmt.Errorf("default provider: %w", err)
		}
		return id, providerCfg, nil
	}

	switch ids := r.cfg.ProviderIDs(); len(ids) {
	case 0:
		return "", ProviderInstanceConfig{}, errors.New("no enabled providers configured")
	case 1:
		return ids[0], r.cfg.Providers[ids[0]], nil
	default:
		return "", ProviderInstanceConfig{}, fmt.Errorf("no provider routing configured (enabled: %s)", strings.Join(ids, ", "))
	}
}

func (r *Registry) enabledProvider(id string) (ProviderInstanceConfig, error) {
	providerCfg, ok := r.cfg.Providers[id]
	if !ok {
		return ProviderInstanceConfig{}, fmt.Errorf("unknown provider %q", id)
	}
	if !providerCfg.Enabled {
		return ProviderInstanceConfig{}, fmt.Errorf("provider %q is disabled", id)
	}
	return providerCfg, nil
}

// selectCredential returns a credential and the key its driver is cached
// under. The highest priority group wins; round_robin rotates within it.
// When no credential is usable the first one is returned so the driver can
// report the missing key.
func selectCredential(cfg ProviderInstanceConfig, next func(group string, n int) int) (CredentialConfig, string, error) {
	if len(cfg.Credentials) == 0 {
		return CredentialConfig{}, "", errors.New("no credentials configured")
	}

	var usable []CredentialConfig
	for _, cred := range cfg.Credentials {
		if cred.usable() {
			usable = append(usable, cred)
		}
	}
	if len(usable) == 0 {
		return cfg.Credentials[0], credentialKey(cfg.Credentials[0], "0"), nil
	}

	if label := strings.TrimSpace(cfg.DefaultCredential); label != "" {
		for _, cred := range usable {
			if strings.EqualFold(strings.TrimSpace(cred.Label), label) {
				return cred, strings.TrimSpace(cred.Label), nil
			}
		}
	}

	top := usable[0].Priority
	for _, cred := range usable[1:] {
		top = max(top, cred.Priority)
	}
	var group []CredentialConfig
	for _, cred := range usable {
		if cred.Priority == top {
			group = append(group, cred)
		}
	}

	idx := 0
	if strings.EqualFold(strings.TrimSpace(cfg.SelectionPolicy), policyRoundRobin) && next != nil {
		idx = next(strconv.Itoa(top), len(group))
	}
	return group[idx], credentialKey(group[idx], "p"+strconv.Itoa(top)), nil
}

func credentialKey(cred CredentialConfig, fallback string) string {
	if label := strings.TrimSpace(cred.Label); label != "" {
		return label
	}
	return fallback
}

func (r *Registry) driverFor(providerID string, providerCfg ProviderInstanceConfig, cred CredentialConfig, credKey string) (driver.Driver, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, errors.New("provider id is required")
	}
	cacheKey := providerID
	if credKey = strings.TrimSpace(credKey); credKey != "" {
		cacheKey += ":" + credKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if drv, ok := r.drivers[cacheKey]; ok {
		return drv, nil
	}

	drv, err := newDriver(providerID, providerCfg, cred, r.cfg)
	if err != nil {
		return nil, err
	}
	if r.drivers == nil {
		r.drivers = map[string]driver.Driver{}
	}
	r.drivers[cacheKey] = drv
	return drv, nil
}

func newDriver(providerID string, providerCfg ProviderInstanceConfig, cred CredentialConfig, cfg Config) (driver.Driver, error) {
	kind := strings.ToLower(strings.TrimSpace(providerCfg.AIProvider))
	switch kind {
	case providerOpenAI, providerXAI:
		baseURL := strings.TrimSpace(providerCfg.BaseURL)
		if kind == providerXAI && baseURL == "" {
			baseURL = xaiBaseURL
		}
		client := openai.NewClient(baseURL, cred.APIKey)
		client.Provider = kind
		client.Timeout = cfg.DefaultTimeout
		return client, nil
	case providerGemini, providerGoogle:
		client := gemini.NewClient(providerCfg.BaseURL, cred.APIKey)
		client.Timeout = cfg.DefaultTimeout
		return client, nil
	case "":
		return nil, fmt.Errorf("unsupported ai_provider %q for provider %q", "(unset)", providerID)
	default:
		return nil, fmt.Errorf("unsupported ai_provider %q for provider %q", kind, providerID)
	}
}

// resolveModel returns the pinned model: override, then the role tier, then the
// provider default, then the prompt's preferred models. Empty means none is pinned.
func resolveModel(providerCfg ProviderInstanceConfig, promptDef *prompt.Prompt, override, role string) string {
	candidates := []string{override}
	if role = strings.TrimSpace(role); role != "" {
		candidates = append(candidates, providerCfg.Models[role])
	}
	candidates = append(candidates, providerCfg.Models["default"])
	candidates = append(candidates, preferredModels(promptDef)...)

	for _, model := range candidates {
		if model = strings.TrimSpace(model); model != "" {
			return model
		}
	}
	return ""
}

// preferredModels reads provider_hints.preferred_models, which YAML may give
// as a list or a single string.
func preferredModels(promptDef *prompt.Prompt) []string {
	if promptDef == nil {
		return nil
	}
	switch typed := promptDef.Config.ProviderHints["preferred_models"].(type) {
	case []string:
		return typed
	case []any:
		models := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				models = append(models, s)
			}
		}
		return models
	case string:
		return []string{typed}
	default:
		return nil
	}
}

func (r *Registry) selector() *modelSelector {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.models == nil {
		r.models = newModelSelector()
	}
	return r.models
}

func (r *Registry) rrIndex(key string, n int) int {
	if r == nil || n <= 1 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursors == nil {
		r.cursors = map[string]int{}
	}
	idx := r.cursors[key] % n
	r.cursors[key]++
	return idx
}

func hasRole(roles []string, role string) bool {
	for _, candidate := range roles {
		if strings.EqualFold(strings.TrimSpace(candidate), role) {
			return true
		}
	}
	return false
}
