package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prospectlens/prospectlens/internal/config"
	"github.com/prospectlens/prospectlens/internal/core"
)

// missing is shown for empty cells.
const missing = "—"

type section struct {
	Title string
	Lines []string
}

type metric struct {
	Label string
	Value string
}

func keyMetrics(d *Detail) []metric {
	potential := d.value(config.FieldPotential)
	if potential != missing {
		potential += "/5"
	}
	return []metric{
		{"CA (M€)", d.value(config.FieldRevenue)},
		{"EBITDA (M€)", d.value(config.FieldEBITDA)},
		{"Priorité", d.value(config.FieldPriority)},
		{"Potentiel", potential},
	}
}

func detailSections(d *Detail) []section {
	return []section{
		{
			Title: "Données financières",
			Lines: []string{
				"Groupe : " + d.value(config.FieldGroup),
				"Actionnaire : " + d.value(config.FieldShareholder),
				"Contact : " + d.value(config.FieldContact),
				"Email : " + d.value(config.FieldEmail),
				"Dette nette (M€) : " + d.value(config.FieldNetDebt),
				"Maturité dette : " + d.value(config.FieldDebtMaturity),
				"ESG / Controverses : " + d.value(config.FieldControversies),
			},
		},
		{
			Title: "Suivi CRM",
			Lines: []string{
				"Statut : " + d.value(config.FieldStatus),
				"Commentaires : " + d.value(config.FieldComments),
			},
		},
		{
			Title: "Actualités",
			Lines: []string{
				"Dernière actualité : " + d.value(config.FieldNews),
				"Recherche : " + NewsSearchURL(d.Subject),
			},
		},
	}
}

func (d *Detail) value(field string) string {
	if d == nil {
		return missing
	}
	if v := strings.TrimSpace(d.Fields[field]); v != "" {
		return v
	}
	return missing
}

func renderSections(sections []section, markdown bool) string {
	if len(sections) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, section := range sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		if markdown {
			sb.WriteString(fmt.Sprintf("\n\n### %s\n", section.Title))
			for _, line := range section.Lines {
				sb.WriteString(fmt.Sprintf("- %s\n", line))
			}
		} else {
			sb.WriteString(fmt.Sprintf("\n\n%s:\n", section.Title))
			for _, line := range section.Lines {
				sb.WriteString(fmt.Sprintf("  %s\n", line))
			}
		}
	}
	return sb.String()
}

func resultSummary(result *core.EnrichResult) []string {
	lines := []string{"Statut : " + string(result.Status)}
	if result.Provider != "" {
		model := result.Provider
		if result.Model != "" {
			model += " / " + result.Model
		}
		lines = append(lines, "Modèle : "+model)
	}
	if result.Status == core.EnrichThrottled {
		lines = append(lines, fmt.Sprintf("Réessayer dans : %s", result.RetryAfter.Round(time.Second)))
	}
	if len(result.Changed) > 0 {
		lines = append(lines, "Champs modifiés : "+strings.Join(result.Changed, ", "))
	} else if result.Status != core.EnrichThrottled {
		lines = append(lines, "Champs modifiés : aucun")
	}
	return lines
}

func cell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return missing
	}
	return value
}

func truncateCell(value string, limit int) string {
	runes := []rune(strings.Join(strings.Fields(value), " "))
	if limit <= 0 || len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
