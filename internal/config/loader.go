// Package config loads prospectlens configuration with viper and decodes it into
// typed structs with mapstructure.
package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName names the config, data and binary directories.
	AppName = "prospectlens"
	// EnvPrefix prefixes every environment override (PROSPECTLENS_SHEET_PATH).
	EnvPrefix = "PROSPECTLENS"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers every default on v. Keys must be registered for
// environment variables to be picked up by AllSettings.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "SIMPLE")

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")
	v.SetDefault("store.optimistic_writes", false)

	v.SetDefault("sheet.backend", "csv")
	v.SetDefault("sheet.path", ".")
	v.SetDefault("sheet.table", "prospects")
	v.SetDefault("sheet.delimiter", ";")
	v.SetDefault("sheet.cache_ttl", "30s")

	v.SetDefault("columns.identity", FieldName)
	v.SetDefault("columns.priority", FieldPriority)
	aliases := make(map[string]any, len(DefaultAliases()))
	for field, values := range DefaultAliases() {
		aliases[field] = values
	}
	v.SetDefault("columns.aliases", aliases)

	v.SetDefault("enrich.fields", DefaultEnrichFields())
	v.SetDefault("enrich.min_interval", "12s")
	v.SetDefault("enrich.prompt", "enrich-prospect")
	v.SetDefault("enrich.role", "enrich")
	v.SetDefault("enrich.model", "")
	v.SetDefault("enrich.history", true)

	v.SetDefault("crm.statuses", DefaultStatuses())

	v.SetDefault("ailink.default_provider", "")
	v.SetDefault("ailink.default_timeout", "60s")
	v.SetDefault("ailink.prompts_dir", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)
}

// Prepare points v at the config file (explicit path or the XDG config dir),
// enables PROSPECTLENS_* environment overrides and reads the file if present.
// It returns the config file used, or "" when running on defaults.
func Prepare(v *viper.Viper, configFile string) (string, error) {
	SetDefaults(v)

	if strings.TrimSpace(configFile) != "" {
		v.SetConfigFile(configFile)
	} else {
		if dir := gfconfig.GetAppConfigDir(AppName); strings.TrimSpace(dir) != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load builds a fresh viper instance and decodes the configuration.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, configFile string, runtimeOverrides ...map[string]any) (*Config, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	if _, err := Prepare(v, configFile); err != nil {
		return nil, err
	}
	return Decode(v, runtimeOverrides...)
}

// Decode merges v's settings with dynamic provider environment variables and
// runtime overrides, then decodes the result into a Config.
func Decode(v *viper.Viper, runtimeOverrides ...map[string]any) (*Config, error) {
	merged := v.AllSettings()

	envOverrides := map[string]any{}
	applyAILinkDynamicEnvOverrides(EnvPrefix+"_", envOverrides)
	mergeMaps(merged, envOverrides)
	for _, overrides := range runtimeOverrides {
		mergeMaps(merged, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate rejects configurations the enrichment cycle cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	switch strings.ToLower(strings.TrimSpace(c.Sheet.Backend)) {
	case "csv", "libsql":
	default:
		return fmt.Errorf("unsupported sheet backend %q (expected csv or libsql)", c.Sheet.Backend)
	}
	if strings.TrimSpace(c.Sheet.Table) == "" {
		return errors.New("sheet table is required")
	}
	if len([]rune(c.Sheet.Delimiter)) > 1 {
		return fmt.Errorf("sheet delimiter must be a single character, got %q", c.Sheet.Delimiter)
	}
	identity := strings.ToLower(strings.TrimSpace(c.Columns.Identity))
	if identity == "" {
		return errors.New("columns.identity is required")
	}
	if len(c.Columns.Aliases[identity]) == 0 {
		return fmt.Errorf("no aliases configured for identity field %q", identity)
	}
	seen := make(map[string]string, len(c.Columns.Aliases))
	for _, field := range slices.Sorted(maps.Keys(c.Columns.Aliases)) {
		key := strings.ToLower(strings.TrimSpace(field))
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("columns.aliases: %q and %q name the same field", prev, field)
		}
		seen[key] = field
	}
	if c.Enrich.MinInterval < 0 {
		return errors.New("enrich.min_interval must not be negative")
	}
	return c.AILink.Validate()
}

// DelimiterRune returns the configured delimiter, or 0 for the store default.
func (s SheetConfig) DelimiterRune() rune {
	for _, r := range s.Delimiter {
		return r
	}
	return 0
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}

func mergeMaps(dst, src map[string]any) {
	for key, value := range src {
		key = strings.ToLower(key)
		srcMap, srcIsMap := value.(map[string]any)
		if !srcIsMap {
			dst[key] = value
			continue
		}
		dstMap, ok := dst[key].(map[string]any)
		if !ok {
			dstMap = map[string]any{}
			dst[key] = dstMap
		}
		mergeMaps(dstMap, srcMap)
	}
}

// applyAILinkDynamicEnvOverrides maps provider settings that cannot be declared
// as viper defaults, e.g. PROSPECTLENS_AILINK_PROVIDERS_GEMINI_CREDENTIALS_0_API_KEY.
func applyAILinkDynamicEnvOverrides(prefix string, envOverrides map[string]any) {
	providerPrefix := prefix + "AILINK_PROVIDERS_"
	routingPrefix := prefix + "AILINK_ROUTING_"

	for _, item := range os.Environ() {
		key, value, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(key, providerPrefix):
			applyAILinkProviderOverride(envOverrides, key[len(providerPrefix):], value)
		case strings.HasPrefix(key, routingPrefix):
			role := toSlug(key[len(routingPrefix):])
			if role == "" {
				continue
			}
			routing := ensureMap(ensureMap(envOverrides, "ailink"), "routing")
			routing[role] = strings.TrimSpace(value)
		}
	}
}

func applyAILinkProviderOverride(envOverrides map[string]any, raw string, value string) {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	if len(parts) < 2 {
		return
	}

	section := -1
	for i, part := range parts {
		switch part {
		case "ENABLED", "AI", "BASE", "MODELS", "FALLBACK", "CREDENTIALS":
			section = i
		}
		if section != -1 {
			break
		}
	}
	if section <= 0 {
		return
	}

	providerID := strings.ToLower(strings.Join(parts[:section], "-"))
	provider := ensureMap(ensureMap(ensureMap(envOverrides, "ailink"), "providers"), providerID)
	value = strings.TrimSpace(value)

	rest := parts[section:]
	switch {
	case len(rest) == 1 && rest[0] == "ENABLED":
		provider["enabled"] = strings.EqualFold(value, "true")
	case len(rest) == 2 && rest[0] == "AI" && rest[1] == "PROVIDER":
		provider["ai_provider"] = strings.ToLower(value)
	case len(rest) == 2 && rest[0] == "BASE" && rest[1] == "URL":
		provider["base_url"] = value
	case len(rest) == 2 && rest[0] == "FALLBACK" && rest[1] == "MODELS":
		provider["fallback_models"] = value
	case len(rest) >= 2 && rest[0] == "MODELS":
		models := ensureMap(provider, "models")
		models[strings.ToLower(strings.Join(rest[1:], "_"))] = value
	case len(rest) >= 3 && rest[0] == "CREDENTIALS":
		idx, err := strconv.Atoi(rest[1])
		if err != nil || idx < 0 {
			return
		}
		field := strings.ToLower(strings.Join(rest[2:], "_"))
		cred := ensureSliceMap(ensureSlice(provider, "credentials", idx+1), idx)
		switch field {
		case "priority":
			if parsed, err := strconv.Atoi(value); err == nil {
				cred[field] = parsed
			}
		case "enabled":
			cred[field] = strings.EqualFold(value, "true")
		default:
			cred[field] = value
		}
	}
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if existing, ok := parent[key].(map[string]any); ok {
		return existing
	}
	next := map[string]any{}
	parent[key] = next
	return next
}

func ensureSlice(parent map[string]any, key string, length int) []any {
	existing, _ := parent[key].([]any)
	for len(existing) < length {
		existing = append(existing, map[string]any{})
	}
	parent[key] = existing
	return existing
}

func ensureSliceMap(slice []any, idx int) map[string]any {
	if typed, ok := slice[idx].(map[string]any); ok {
		return typed
	}
	m := map[string]any{}
	slice[idx] = m
	return m
}

func toSlug(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, "-")
}
