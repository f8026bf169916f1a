package core

import (
	"strings"
	"time"
)

// Record maps an actual column name to its cell text.
// The empty string is the empty/absent marker.
type Record map[string]string

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for key, value := range r {
		out[key] = value
	}
	return out
}

// Get returns the cell for column, or "" when the column is absent.
func (r Record) Get(column string) string {
	if r == nil || column == "" {
		return ""
	}
	return r[column]
}

// Dataset is an ordered set of records sharing the same columns.
type Dataset struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`

	// Version is the storage version stamp; zero when the backend does not track one.
	Version int64 `json:"version,omitempty"`
}

// Clone deep-copies the dataset.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := &Dataset{
		Columns: append([]string(nil), d.Columns...),
		Rows:    make([]Record, len(d.Rows)),
		Version: d.Version,
	}
	for i, row := range d.Rows {
		out.Rows[i] = row.Clone()
	}
	return out
}

// Find returns the index of the first record whose column equals value.
// Duplicate identity values are not rejected: the first match wins.
func (d *Dataset) Find(column, value string) int {
	if d == nil || column == "" {
		return -1
	}
	value = strings.TrimSpace(value)
	for i, row := range d.Rows {
		if strings.TrimSpace(row[column]) == value {
			return i
		}
	}
	return -1
}

// Patch is a sparse canonical-field update decoded from a provider response.
type Patch map[string]any

// Mapping maps canonical field names to actual column names.
type Mapping map[string]string

// Column returns the actual column for a canonical field.
func (m Mapping) Column(field string) (string, bool) {
	if m == nil {
		return "", false
	}
	column, ok := m[NormalizeField(field)]
	if !ok || column == "" {
		return "", false
	}
	return column, true
}

// NormalizeField canonicalizes a field key for lookups.
func NormalizeField(field string) string {
	return strings.ToLower(strings.TrimSpace(field))
}

// EnrichStatus is the outcome of an enrichment cycle.
type EnrichStatus string

const (
	EnrichApplied   EnrichStatus = "applied"
	EnrichUnchanged EnrichStatus = "unchanged"
	EnrichThrottled EnrichStatus = "throttled"
	EnrichDryRun    EnrichStatus = "dry_run"
)

// EnrichResult reports what an enrichment cycle did.
type EnrichResult struct {
	Subject    string        `json:"subject"`
	Status     EnrichStatus  `json:"status"`
	Record     Record        `json:"record,omitempty"`
	Changed    []string      `json:"changed,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Provider   string        `json:"provider,omitempty"`
	Model      string        `json:"model,omitempty"`
}

// HistoryEntry is a logged enrichment attempt.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
	Changed   []string  `json:"changed,omitempty"`
	Error     string    `json:"error,omitempty"`
	Raw       string    `json:"raw,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
