package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/prospectlens/prospectlens/internal/core"
)

// maxCellWidth keeps long comments and news from wrapping the table.
const maxCellWidth = 48

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

// FormatList renders the prospect list.
func (f *TableFormatter) FormatList(list *List) (string, error) {
	if list == nil || len(list.Rows) == 0 || len(list.Columns) == 0 {
		return "Aucun prospect trouvé.", nil
	}

	t := newTable()
	header := make(table.Row, 0, len(list.Columns))
	for _, column := range list.Columns {
		header = append(header, column)
	}
	t.AppendHeader(header)

	for _, record := range list.Rows {
		row := make(table.Row, 0, len(list.Columns))
		for _, column := range list.Columns {
			row = append(row, truncateCell(cell(record.Get(column)), maxCellWidth))
		}
		t.AppendRow(row)
	}

	footer := make(table.Row, len(list.Columns))
	footer[0] = fmt.Sprintf("%d/%d prospects", len(list.Rows), list.Total)
	t.AppendFooter(footer)
	return t.Render(), nil
}

// FormatDetail renders the key metrics as a table followed by text sections.
func (f *TableFormatter) FormatDetail(detail *Detail) (string, error) {
	if detail == nil {
		return "", nil
	}

	metrics := keyMetrics(detail)
	t := newTable()
	t.SetTitle(detail.Subject)
	header := make(table.Row, 0, len(metrics))
	values := make(table.Row, 0, len(metrics))
	for _, m := range metrics {
		header = append(header, m.Label)
		values = append(values, m.Value)
	}
	t.AppendHeader(header)
	t.AppendRow(values)

	return t.Render() + renderSections(detailSections(detail), false), nil
}

// FormatResult renders an enrichment or update outcome.
func (f *TableFormatter) FormatResult(result *core.EnrichResult) (string, error) {
	if result == nil {
		return "", nil
	}

	rendered := result.Subject + "\n  " + strings.Join(resultSummary(result), "\n  ")
	if len(result.Changed) == 0 || result.Record == nil {
		return rendered, nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Colonne", "Valeur"})
	columns := make([]string, 0, len(result.Record))
	for column := range result.Record {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		t.AppendRow(table.Row{column, truncateCell(cell(result.Record[column]), maxCellWidth)})
	}
	return rendered + "\n\n" + t.Render(), nil
}

// FormatHistory renders enrichment attempts, newest first.
func (f *TableFormatter) FormatHistory(entries []core.HistoryEntry) (string, error) {
	if len(entries) == 0 {
		return "Aucun historique.", nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Date", "Prospect", "Statut", "Modèle", "Champs", "Erreur"})
	for _, entry := range entries {
		model := entry.Provider
		if entry.Model != "" {
			model = strings.TrimPrefix(model+"/"+entry.Model, "/")
		}
		t.AppendRow(table.Row{
			entry.CreatedAt.Local().Format("2006-01-02 15:04"),
			entry.Subject,
			entry.Status,
			cell(model),
			cell(strings.Join(entry.Changed, ", ")),
			truncateCell(cell(entry.Error), maxCellWidth),
		})
	}
	return t.Render(), nil
}

// FormatColumns renders the header resolution.
func (f *TableFormatter) FormatColumns(report *ColumnReport) (string, error) {
	if report == nil {
		return "", nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Champ", "Colonne"})
	fields := append(sortedKeys(report.Mapping), report.Missing...)
	sort.Strings(fields)
	for _, field := range fields {
		column, ok := report.Mapping[field]
		if !ok {
			column = "(non trouvée)"
		}
		t.AppendRow(table.Row{field, column})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d colonnes", len(report.Columns))})
	return t.Render(), nil
}
