package output

import (
	"fmt"
	"strings"

	"github.com/prospectlens/prospectlens/internal/core"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatList(list *List) (string, error) {
	if list == nil || len(list.Rows) == 0 {
		return "_Aucun prospect trouvé._\n", nil
	}

	var sb strings.Builder
	writeMarkdownRow(&sb, list.Columns)
	writeMarkdownRule(&sb, len(list.Columns))
	for _, record := range list.Rows {
		cells := make([]string, len(list.Columns))
		for i, column := range list.Columns {
			cells[i] = truncateCell(cell(record.Get(column)), maxCellWidth)
		}
		writeMarkdownRow(&sb, cells)
	}
	sb.WriteString(fmt.Sprintf("\n%d/%d prospects\n", len(list.Rows), list.Total))
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatDetail(detail *Detail) (string, error) {
	if detail == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(detail.Subject)))

	metrics := keyMetrics(detail)
	labels := make([]string, len(metrics))
	values := make([]string, len(metrics))
	for i, m := range metrics {
		labels[i] = m.Label
		values[i] = m.Value
	}
	writeMarkdownRow(&sb, labels)
	writeMarkdownRule(&sb, len(labels))
	writeMarkdownRow(&sb, values)

	sb.WriteString(renderSections(detailSections(detail), true))
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatResult(result *core.EnrichResult) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(result.Subject)))
	for _, line := range resultSummary(result) {
		sb.WriteString("- " + line + "\n")
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatHistory(entries []core.HistoryEntry) (string, error) {
	if len(entries) == 0 {
		return "_Aucun historique._\n", nil
	}

	var sb strings.Builder
	writeMarkdownRow(&sb, []string{"Date", "Prospect", "Statut", "Modèle", "Champs"})
	writeMarkdownRule(&sb, 5)
	for _, entry := range entries {
		writeMarkdownRow(&sb, []string{
			entry.CreatedAt.UTC().Format("2006-01-02 15:04"),
			entry.Subject,
			entry.Status,
			cell(entry.Model),
			cell(strings.Join(entry.Changed, ", ")),
		})
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatColumns(report *ColumnReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	writeMarkdownRow(&sb, []string{"Champ", "Colonne"})
	writeMarkdownRule(&sb, 2)
	for _, field := range sortedKeys(report.Mapping) {
		writeMarkdownRow(&sb, []string{field, report.Mapping[field]})
	}
	for _, field := range report.Missing {
		writeMarkdownRow(&sb, []string{field, "_non trouvée_"})
	}
	return sb.String(), nil
}

func writeMarkdownRow(sb *strings.Builder, cells []string) {
	sb.WriteString("|")
	for _, c := range cells {
		sb.WriteString(" " + escapeMarkdownCell(c) + " |")
	}
	sb.WriteString("\n")
}

func writeMarkdownRule(sb *strings.Builder, n int) {
	sb.WriteString("|" + strings.Repeat("---|", n) + "\n")
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.ReplaceAll(value, "|", "\\|")
}
