package ailink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyProviders(t *testing.T) {
	cfg := Config{Providers: map[string]ProviderInstanceConfig{
		"gemini-main": {Enabled: true, Credentials: []CredentialConfig{{Enabled: true, APIKey: "k"}}},
		"openai-main": {Enabled: true, Credentials: []CredentialConfig{{Enabled: true, APIKey: " "}}},
		"xai-main":    {Enabled: false, Credentials: []CredentialConfig{{Enabled: true, APIKey: "k"}}},
		"backup":      {Enabled: true, Credentials: []CredentialConfig{{Label: "old", APIKey: "k"}, {Enabled: true, APIKey: "k2"}}},
		"parked":      {Enabled: true, Credentials: []CredentialConfig{{Label: "off", APIKey: "k"}}},
	}}

	assert.Equal(t, []string{"backup", "gemini-main", "openai-main", "parked"}, cfg.ProviderIDs())
	assert.Equal(t, []string{"backup", "gemini-main"}, cfg.ReadyProviders())
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		DefaultProvider: "gemini-main",
		Providers: map[string]ProviderInstanceConfig{
			"gemini-main": {Enabled: true, AIProvider: "gemini"},
			"grok":        {Enabled: true, AIProvider: "XAI", SelectionPolicy: "round_robin"},
		},
		Routing: map[string]string{"enrich": "grok"},
	}
	require.NoError(t, valid.Validate())
	require.NoError(t, Config{}.Validate())

	invalid := Config{
		DefaultProvider: "missing",
		Providers: map[string]ProviderInstanceConfig{
			"claude": {Enabled: true, AIProvider: "anthropic"},
			"parked": {AIProvider: ""},
			"grok":   {AIProvider: "xai", SelectionPolicy: "random"},
		},
		Routing: map[string]string{"enrich": "nowhere"},
	}
	err := invalid.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`provider "claude": unsupported ai_provider "anthropic"`,
		`provider "grok": unknown selection_policy "random"`,
		`routing "enrich": unknown provider "nowhere"`,
		`default_provider "missing" is not configured`,
	} {
		assert.Contains(t, err.Error(), want)
	}
	assert.NotContains(t, err.Error(), "parked", "disabled providers may omit ai_provider")
}
