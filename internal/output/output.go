package output

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/prospectlens/prospectlens/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// List is a filtered view of the sheet. Columns are the columns to display.
type List struct {
	Columns []string      `json:"columns"`
	Rows    []core.Record `json:"rows"`
	Total   int           `json:"total"`
}

// Detail is one prospect with its values keyed by canonical field.
type Detail struct {
	Subject string            `json:"subject"`
	Fields  map[string]string `json:"fields"`
	Record  core.Record       `json:"record"`
}

// ColumnReport shows how sheet headers resolved to canonical fields.
type ColumnReport struct {
	Columns []string          `json:"columns"`
	Mapping map[string]string `json:"mapping"`
	Missing []string          `json:"missing,omitempty"`
}

// Formatter renders CLI results.
type Formatter interface {
	FormatList(list *List) (string, error)
	FormatDetail(detail *Detail) (string, error)
	FormatResult(result *core.EnrichResult) (string, error)
	FormatHistory(entries []core.HistoryEntry) (string, error)
	FormatColumns(report *ColumnReport) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// NewsSearchURL links to a news search about the company's deals and finances.
func NewsSearchURL(company string) string {
	query := url.Values{}
	query.Set("q", strings.TrimSpace(company)+" actualité M&A finance")
	query.Set("tbm", "nws")
	return "https://www.google.com/search?" + query.Encode()
}
