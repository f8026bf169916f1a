package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	variablePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// KnownTools lists the tool types a prompt may declare.
var KnownTools = map[string]bool{
	"web_search": true,
}

// Prompt files are markdown with YAML frontmatter, or bare YAML.
var promptPatterns = []string{"*.md", "*.yaml", "*.yml"}

var frontmatterFence = []byte("---")

// Load parses and validates a prompt definition. The markdown body becomes the
// system template when the frontmatter does not set one.
func Load(source string, data []byte) (*Prompt, error) {
	cfg, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}
	if strings.TrimSpace(cfg.SystemTemplate) == "" {
		cfg.SystemTemplate = strings.TrimSpace(body)
	}
	if cfg.SystemTemplate == "" {
		return nil, fmt.Errorf("prompt %s missing system_template", source)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}
	return &Prompt{Config: cfg, Source: source}, nil
}

// LoadFromDir reads every prompt file in dir, in name order.
func LoadFromDir(dir string) ([]*Prompt, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("prompts dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("prompts dir %s is not a directory", dir)
	}
	return loadFS(os.DirFS(dir), ".", dir)
}

// loadFS loads the prompt files directly under root in fsys. label prefixes
// the source recorded on each prompt.
func loadFS(fsys fs.FS, root, label string) ([]*Prompt, error) {
	var names []string
	for _, pattern := range promptPatterns {
		matches, err := fs.Glob(fsys, path.Join(root, pattern))
		if err != nil {
			return nil, fmt.Errorf("scan prompts: %w", err)
		}
		names = append(names, matches...)
	}
	slices.Sort(names)

	prompts := make([]*Prompt, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", name, err)
		}
		prompt, err := Load(path.Join(label, path.Base(name)), data)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}
	return prompts, nil
}

// splitFrontmatter decodes the leading "---" block into a Config and returns
// the remaining body. Without a fence the whole document is YAML.
func splitFrontmatter(data []byte) (Config, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Config{}, "", errors.New("empty prompt")
	}

	var cfg Config
	if !bytes.HasPrefix(trimmed, frontmatterFence) {
		if err := yaml.Unmarshal(trimmed, &cfg); err != nil {
			return Config{}, "", fmt.Errorf("invalid yaml: %w", err)
		}
		return cfg, "", nil
	}

	rest := bytes.TrimLeft(trimmed[len(frontmatterFence):], " \t")
	rest = bytes.TrimPrefix(bytes.TrimPrefix(rest, []byte("\r")), []byte("\n"))
	front, body, found := bytes.Cut(rest, []byte("\n---"))
	if bytes.HasPrefix(rest, frontmatterFence) {
		front, body, found = nil, rest[len(frontmatterFence):], true
	}
	if !found {
		return Config{}, "", errors.New("unterminated frontmatter")
	}
	// Drop the remainder of the closing fence line.
	if _, after, ok := bytes.Cut(body, []byte("\n")); ok {
		body = after
	} else {
		body = nil
	}

	if err := yaml.Unmarshal(front, &cfg); err != nil {
		return Config{}, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	return cfg, string(body), nil
}

func validateConfig(cfg Config) error {
	if !slugPattern.MatchString(cfg.Slug) {
		return fmt.Errorf("slug %q must be lowercase letters, digits and dashes", cfg.Slug)
	}
	for _, name := range slices.Concat(cfg.Input.RequiredVariables, cfg.Input.OptionalVariables) {
		if !variablePattern.MatchString(name) {
			return fmt.Errorf("invalid variable name %q", name)
		}
	}
	for _, name := range cfg.Input.RequiredVariables {
		token := "{{" + name + "}}"
		if !strings.Contains(cfg.SystemTemplate, token) && !strings.Contains(cfg.UserTemplate, token) {
			return fmt.Errorf("required variable %q is not used by any template", name)
		}
	}
	for _, tool := range cfg.Tools {
		if !KnownTools[tool.Type] {
			return fmt.Errorf("unknown tool type %q", tool.Type)
		}
	}
	return nil
}
