package output

import (
	"encoding/json"

	"github.com/prospectlens/prospectlens/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (f *JSONFormatter) FormatList(list *List) (string, error) {
	if list == nil {
		list = &List{}
	}
	if list.Rows == nil {
		list.Rows = []core.Record{}
	}
	return f.marshal(list)
}

// FormatDetail adds the news search URL to the record.
func (f *JSONFormatter) FormatDetail(detail *Detail) (string, error) {
	if detail == nil {
		return "", nil
	}
	return f.marshal(struct {
		*Detail
		NewsSearchURL string `json:"news_search_url"`
	}{detail, NewsSearchURL(detail.Subject)})
}

func (f *JSONFormatter) FormatResult(result *core.EnrichResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(result)
}

func (f *JSONFormatter) FormatHistory(entries []core.HistoryEntry) (string, error) {
	if entries == nil {
		entries = []core.HistoryEntry{}
	}
	return f.marshal(entries)
}

func (f *JSONFormatter) FormatColumns(report *ColumnReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return f.marshal(report)
}
