package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		cfg, err := Load(ctx, "")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.Equal(t, "libsql", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir(AppName), AppName+".db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)
		assert.False(t, cfg.Store.OptimisticWrites)

		assert.Equal(t, "csv", cfg.Sheet.Backend)
		assert.Equal(t, "prospects", cfg.Sheet.Table)
		assert.Equal(t, ';', cfg.Sheet.DelimiterRune())
		assert.Equal(t, 30*time.Second, cfg.Sheet.CacheTTL)

		assert.Equal(t, FieldName, cfg.Columns.Identity)
		assert.Equal(t, DefaultAliases(), cfg.Columns.Aliases)

		assert.Equal(t, 12*time.Second, cfg.Enrich.MinInterval)
		assert.Equal(t, DefaultEnrichFields(), cfg.Enrich.Fields)
		assert.Equal(t, "enrich-prospect", cfg.Enrich.Prompt)
		assert.True(t, cfg.Enrich.History)

		assert.Equal(t, DefaultStatuses(), cfg.CRM.Statuses)
		assert.Equal(t, 60*time.Second, cfg.AILink.DefaultTimeout)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.True(t, cfg.Health.Enabled)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, "", overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
sheet:
  path: /data/sheets
  table: Prospection_CIB_FULL_Final
  cache_ttl: 0s
columns:
  aliases:
    name: ["raison sociale"]
enrich:
  min_interval: 20s
  fields: [revenue, ebitda]
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))

		cfg, err := Load(ctx, path)
		require.NoError(t, err)

		assert.Equal(t, "/data/sheets", cfg.Sheet.Path)
		assert.Equal(t, "Prospection_CIB_FULL_Final", cfg.Sheet.Table)
		assert.Equal(t, time.Duration(0), cfg.Sheet.CacheTTL)
		assert.Equal(t, []string{"raison sociale"}, cfg.Columns.Aliases[FieldName])
		assert.Equal(t, DefaultAliases()[FieldEBITDA], cfg.Columns.Aliases[FieldEBITDA])
		assert.Equal(t, 20*time.Second, cfg.Enrich.MinInterval)
		assert.Equal(t, []string{"revenue", "ebitda"}, cfg.Enrich.Fields)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		_, err := Load(ctx, filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("PROSPECTLENS_SHEET_BACKEND", "libsql")
		t.Setenv("PROSPECTLENS_ENRICH_MIN_INTERVAL", "5s")
		t.Setenv("PROSPECTLENS_ENRICH_FIELDS", "news,email")
		t.Setenv("PROSPECTLENS_STORE_OPTIMISTIC_WRITES", "true")

		cfg, err := Load(ctx, "")
		require.NoError(t, err)

		assert.Equal(t, "libsql", cfg.Sheet.Backend)
		assert.Equal(t, 5*time.Second, cfg.Enrich.MinInterval)
		assert.Equal(t, []string{"news", "email"}, cfg.Enrich.Fields)
		assert.True(t, cfg.Store.OptimisticWrites)
	})

	t.Run("AILinkProviderEnv", func(t *testing.T) {
		t.Setenv("PROSPECTLENS_AILINK_PROVIDERS_GEMINI_MAIN_ENABLED", "true")
		t.Setenv("PROSPECTLENS_AILINK_PROVIDERS_GEMINI_MAIN_AI_PROVIDER", "GEMINI")
		t.Setenv("PROSPECTLENS_AILINK_PROVIDERS_GEMINI_MAIN_MODELS_DEFAULT", "gemini-2.5-flash")
		t.Setenv("PROSPECTLENS_AILINK_PROVIDERS_GEMINI_MAIN_FALLBACK_MODELS", "gemini-2.5-flash,gemini-2.0-flash")
		t.Setenv("PROSPECTLENS_AILINK_PROVIDERS_GEMINI_MAIN_CREDENTIALS_0_API_KEY", "secret")
		t.Setenv("PROSPECTLENS_AILINK_ROUTING_ENRICH", "gemini-main")

		cfg, err := Load(ctx, "")
		require.NoError(t, err)

		provider, ok := cfg.AILink.Providers["gemini-main"]
		require.True(t, ok)
		assert.True(t, provider.Enabled)
		assert.Equal(t, "gemini", provider.AIProvider)
		assert.Equal(t, "gemini-2.5-flash", provider.Models["default"])
		assert.Equal(t, []string{"gemini-2.5-flash", "gemini-2.0-flash"}, provider.FallbackModels)
		require.Len(t, provider.Credentials, 1)
		assert.Equal(t, "secret", provider.Credentials[0].APIKey)
		assert.Equal(t, "gemini-main", cfg.AILink.Routing["enrich"])
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Sheet:   SheetConfig{Backend: "csv", Table: "prospects", Delimiter: ";"},
			Columns: ColumnsConfig{Identity: FieldName, Aliases: DefaultAliases()},
		}
	}

	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"UnknownBackend", func(c *Config) { c.Sheet.Backend = "sheets" }},
		{"MissingTable", func(c *Config) { c.Sheet.Table = " " }},
		{"LongDelimiter", func(c *Config) { c.Sheet.Delimiter = ";;" }},
		{"IdentityWithoutAliases", func(c *Config) { c.Columns.Identity = "siren" }},
		{"NegativeInterval", func(c *Config) { c.Enrich.MinInterval = -time.Second }},
		{"DuplicateAliasField", func(c *Config) {
			c.Columns.Aliases = DefaultAliases()
			c.Columns.Aliases["Name "] = []string{"raison sociale"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
