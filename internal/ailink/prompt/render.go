package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// Render fills the system and user templates. Required variables must be
// present and non-blank. Templates support {{var}} substitution and
// {{#if var}}...{{else}}...{{/if}} blocks.
func (p *Prompt) Render(vars map[string]string) (string, string, error) {
	if p == nil {
		return "", "", errors.New("prompt is required")
	}
	for _, name := range p.Config.Input.RequiredVariables {
		if strings.TrimSpace(vars[name]) == "" {
			return "", "", fmt.Errorf("prompt %s: variable %q is required", p.Config.Slug, name)
		}
	}

	system := applyConditionals(p.Config.SystemTemplate, vars)
	system = applyVars(system, vars)

	user := p.Config.UserTemplate
	if strings.TrimSpace(user) == "" {
		user = "{{input}}"
	}
	user = applyConditionals(user, vars)
	user = applyVars(user, vars)

	if strings.TrimSpace(system) == "" {
		return "", "", errors.New("system prompt is required")
	}
	if strings.TrimSpace(user) == "" {
		return "", "", errors.New("user prompt is empty")
	}
	return strings.TrimSpace(system), strings.TrimSpace(user), nil
}

func applyVars(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

// applyConditionals keeps the if-branch when the variable is non-blank and the
// else-branch otherwise. Blocks may nest.
func applyConditionals(template string, vars map[string]string) string {
	result := template
	for {
		start := strings.Index(result, "{{#if")
		if start == -1 {
			break
		}
		tagEnd := strings.Index(result[start:], "}}")
		if tagEnd == -1 {
			break
		}
		tagEnd += start

		varName := strings.TrimSpace(result[start+len("{{#if") : tagEnd])
		blockStart := tagEnd + 2

		elseStart, elseEnd, endStart, endEnd := findConditionalBlock(result, blockStart)
		if endStart == -1 {
			break
		}

		ifContent := result[blockStart:endStart]
		elseContent := ""
		if elseStart != -1 {
			ifContent = result[blockStart:elseStart]
			elseContent = result[elseEnd:endStart]
		}

		replacement := elseContent
		if strings.TrimSpace(vars[varName]) != "" {
			replacement = ifContent
		}

		result = result[:start] + replacement + result[endEnd:]
	}
	return result
}

func findConditionalBlock(input string, start int) (int, int, int, int) {
	depth := 0
	elseStart := -1
	elseEnd := -1

	pos := start
	for {
		openIdx := strings.Index(input[pos:], "{{")
		if openIdx == -1 {
			return -1, -1, -1, -1
		}
		openIdx += pos

		closeIdx := strings.Index(input[openIdx:], "}}")
		if closeIdx == -1 {
			return -1, -1, -1, -1
		}
		closeIdx += openIdx

		tag := strings.TrimSpace(input[openIdx+2 : closeIdx])
		switch {
		case tag == "#if" || strings.HasPrefix(tag, "#if "):
			depth++
		case tag == "/if":
			if depth == 0 {
				return elseStart, elseEnd, openIdx, closeIdx + 2
			}
			depth--
		case tag == "else" && depth == 0 && elseStart == -1:
			elseStart = openIdx
			elseEnd = closeIdx + 2
		}

		pos = closeIdx + 2
	}
}
