package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	prompts, err := LoadDefaults()
	require.NoError(t, err)
	require.NotEmpty(t, prompts)

	reg, err := NewRegistry(prompts)
	require.NoError(t, err)

	prompt, err := reg.Get(EnrichProspect)
	require.NoError(t, err)
	require.NotEmpty(t, prompt.Config.SystemTemplate)
	assert.Equal(t, []string{"company", "fields"}, prompt.Config.Input.RequiredVariables)
	require.Len(t, prompt.Config.Tools, 1)
	assert.Equal(t, "web_search", prompt.Config.Tools[0].Type)
}

func TestLoadRejectsInvalidPrompts(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"no system":       "---\nslug: x\n---\n",
		"bad slug":        "---\nslug: Bad Slug\n---\nbody",
		"unknown tool":    "---\nslug: x\ntools:\n  - type: x_search\n---\nbody",
		"unused var":      "---\nslug: x\ninput:\n  required_variables: [company]\n---\nbody",
		"bad frontmatter": "---\nslug: [\n---\nbody",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(name, []byte(data))
			require.Error(t, err)
		})
	}
}

func TestLoadRegistryOverridesBuiltins(t *testing.T) {
	dir := t.TempDir()
	custom := "---\nslug: enrich-prospect\nuser_template: \"{{company}} {{fields}}\"\ninput:\n  required_variables: [company, fields]\n---\nCustom system."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "enrich.md"), []byte(custom), 0o600))
	extra := "---\nslug: news-digest\n---\nSummarize {{company}}."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "news.md"), []byte(extra), 0o600))

	reg, err := LoadRegistry(dir)
	require.NoError(t, err)

	prompt, err := reg.Get(EnrichProspect)
	require.NoError(t, err)
	assert.Equal(t, "Custom system.", prompt.Config.SystemTemplate)
	assert.Len(t, reg.List(), 2)

	defaults, err := LoadRegistry("")
	require.NoError(t, err)
	assert.Len(t, defaults.List(), 1)
}

func TestRender(t *testing.T) {
	p := &Prompt{Config: Config{
		Slug:           "t",
		SystemTemplate: "Sys{{#if today}} le {{today}}{{/if}}.",
		UserTemplate:   "{{company}}{{#if known}}\nconnu: {{known}}{{else}}\nrien{{/if}}",
		Input:          InputSpec{RequiredVariables: []string{"company"}},
	}}

	system, user, err := p.Render(map[string]string{"company": "Acme", "today": "2026-10-18"})
	require.NoError(t, err)
	assert.Equal(t, "Sys le 2026-10-18.", system)
	assert.Equal(t, "Acme\nrien", user)

	_, user, err = p.Render(map[string]string{"company": "Acme", "known": "revenue: 10"})
	require.NoError(t, err)
	assert.Equal(t, "Acme\nconnu: revenue: 10", user)

	_, _, err = p.Render(map[string]string{"company": "  "})
	require.Error(t, err)
}

func TestRenderNestedConditionals(t *testing.T) {
	out := applyConditionals("{{#if a}}A{{#if b}}B{{else}}nb{{/if}}{{else}}na{{/if}}", map[string]string{"a": "1"})
	assert.Equal(t, "Anb", out)
}

func TestRegistryLookup(t *testing.T) {
	a := &Prompt{Config: Config{Slug: "enrich-prospect"}, Source: "a.md"}
	b := &Prompt{Config: Config{Slug: "Enrich-Prospect "}, Source: "b.md"}

	_, err := NewRegistry([]*Prompt{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.md")

	reg, err := NewRegistry([]*Prompt{a, nil})
	require.NoError(t, err)

	got, err := reg.Get(" ENRICH-PROSPECT")
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = reg.Get("news-digest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: enrich-prospect")
}

func TestLoadFromDirReadsMarkdownAndYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("slug: from-yaml\nsystem_template: Hello.\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("---\n---\nBody only."), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	_, err := LoadFromDir(dir)
	require.Error(t, err, "a.md has no slug")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("---\nslug: from-md\n---\nBody only.\n"), 0o600))
	prompts, err := LoadFromDir(dir)
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	assert.Equal(t, "from-md", prompts[0].Config.Slug)
	assert.Equal(t, "Body only.", prompts[0].Config.SystemTemplate)
	assert.Equal(t, filepath.Join(dir, "a.md"), filepath.FromSlash(prompts[0].Source))
	assert.Equal(t, "from-yaml", prompts[1].Config.Slug)

	_, err = LoadFromDir(filepath.Join(dir, "missing"))
	require.Error(t, err)
}
