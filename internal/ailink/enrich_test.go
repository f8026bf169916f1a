package ailink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectlens/prospectlens/internal/ailink/prompt"
	"github.com/prospectlens/prospectlens/internal/core/engine"
)

func TestProspectGeneratorUsesEmbeddedPrompt(t *testing.T) {
	drv := &scriptedDriver{name: "gemini", text: `{"ebitda": 4.2}`}
	svc := testService(drv, "gemini")
	registry, err := prompt.DefaultRegistry()
	require.NoError(t, err)
	svc.Registry = registry

	gen := &ProspectGenerator{
		Service:      svc,
		Role:         "enrich",
		Descriptions: map[string]string{"revenue": "chiffre d'affaires, en M€"},
		Clock:        func() time.Time { return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) },
	}

	out, err := gen.Generate(context.Background(), engine.GenerationRequest{
		Subject: "Acme",
		Fields:  []string{"revenue", "ebitda"},
		Known:   map[string]string{"revenue": "10"},
		Model:   "pinned",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ebitda": 4.2}`, out.Text)
	assert.Equal(t, "pinned", out.Model)
	assert.Equal(t, "p", out.Provider)

	system := drv.last.Messages[0].Content[0].Text
	user := drv.last.Messages[1].Content[0].Text
	assert.Contains(t, system, "2026-10-18")
	assert.Contains(t, user, "Acme")
	assert.Contains(t, user, "- revenue : chiffre d'affaires, en M€")
	assert.Contains(t, user, "- ebitda")
	assert.Contains(t, user, "- revenue : 10")
	assert.NotContains(t, user, "{{")
	assert.Equal(t, "pinned", drv.last.Model)
}

func TestProspectGeneratorVariablesWithoutKnownValues(t *testing.T) {
	gen := &ProspectGenerator{}
	vars := gen.variables(engine.GenerationRequest{Subject: "Beta", Fields: []string{"news"}})
	assert.Equal(t, "Beta", vars["company"])
	assert.Equal(t, "- news", vars["fields"])
	assert.Empty(t, vars["known"])
}

func TestProspectGeneratorRequiresFields(t *testing.T) {
	gen := &ProspectGenerator{Service: &Service{}}
	_, err := gen.Generate(context.Background(), engine.GenerationRequest{Subject: "Acme"})
	require.Error(t, err)
}
