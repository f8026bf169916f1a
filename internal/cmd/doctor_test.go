package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/prospectlens/prospectlens/internal/ailink"
	"github.com/prospectlens/prospectlens/internal/config"
	"github.com/prospectlens/prospectlens/internal/core/columns"
)

func TestBuildInitConfig(t *testing.T) {
	body, err := buildInitConfig("xai")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "# prospectlens configuration"))
	assert.Contains(t, string(body), "PROSPECTLENS_AILINK_PROVIDERS_XAI_MAIN_CREDENTIALS_0_API_KEY")

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(body, &doc))

	ai := doc["ailink"].(map[string]any)
	assert.Equal(t, "xai-main", ai["default_provider"])
	provider := ai["providers"].(map[string]any)["xai-main"].(map[string]any)
	assert.Equal(t, "xai", provider["ai_provider"])
	assert.Equal(t, "https://api.x.ai/v1", provider["base_url"])

	sheet := doc["sheet"].(map[string]any)
	assert.Equal(t, "csv", sheet["backend"])

	_, err = buildInitConfig("anthropic")
	assert.Error(t, err)
}

func TestMissingEnrichFields(t *testing.T) {
	res := columns.ResolveAll(map[string][]string{
		"revenue": {"ca"},
		"ebitda":  {"ebitda"},
	}, []string{"CA", "Nom"})
	assert.Equal(t, []string{"ebitda"}, missingEnrichFields([]string{"revenue", "ebitda"}, res))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 bytes", formatFileSize(512))
	assert.Equal(t, "1.5 KB", formatFileSize(1536))
	assert.Equal(t, "2.0 MB", formatFileSize(2<<20))
}

func TestProviderKeyEnv(t *testing.T) {
	cfg := ailink.Config{Providers: map[string]ailink.ProviderInstanceConfig{
		"gemini-main": {},
		"openai.eu":   {},
	}}
	assert.Equal(t, []string{
		"PROSPECTLENS_AILINK_PROVIDERS_GEMINI_MAIN_CREDENTIALS_0_API_KEY",
		"PROSPECTLENS_AILINK_PROVIDERS_OPENAI_EU_CREDENTIALS_0_API_KEY",
	}, providerKeyEnv(cfg))
}

func TestStoreFile(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, storeFile(config.StoreConfig{URL: "libsql://crm.turso.io"}))
	assert.Empty(t, storeFile(config.StoreConfig{Path: ":memory:"}))
	assert.Empty(t, storeFile(config.StoreConfig{Path: "libsql://crm.turso.io"}))
	assert.Equal(t, filepath.Join(dir, "crm.db"), storeFile(config.StoreConfig{Path: "file:" + dir + "/crm.db?_journal=wal"}))
	assert.Equal(t, filepath.Join(dir, "crm.db"), storeFile(config.StoreConfig{Path: dir + "/crm.db"}))
}
