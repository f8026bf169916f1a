// Package merge applies sparse updates onto sheet records.
package merge

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/prospectlens/prospectlens/internal/core"
)

// Result is a merged record plus the canonical fields whose cell changed.
type Result struct {
	Record  core.Record
	Changed []string
}

// Merge applies patch onto a copy of record. Fields absent from the patch, with no
// resolved column, or carrying a null or blank value keep their prior value.
func Merge(record core.Record, patch core.Patch, mapping core.Mapping) Result {
	out := Result{Record: record.Clone()}
	if out.Record == nil {
		out.Record = core.Record{}
	}
	if len(patch) == 0 {
		return out
	}

	keys := make([]string, 0, len(patch))
	for key := range patch {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		column, ok := mapping.Column(key)
		if !ok {
			continue
		}
		value, ok := Render(patch[key])
		if !ok {
			continue
		}
		if out.Record[column] == value {
			continue
		}
		out.Record[column] = value
		out.Changed = append(out.Changed, core.NormalizeField(key))
	}
	return out
}

// MergeResponse extracts a patch from provider text and merges it. On a parse
// failure the original record is returned untouched with a *core.ParseError.
func MergeResponse(record core.Record, text string, mapping core.Mapping) (Result, error) {
	patch, err := ExtractPatch(text)
	if err != nil {
		return Result{Record: record}, err
	}
	return Merge(record, patch, mapping), nil
}

// Assign applies manual edits. An explicit empty string clears the cell.
func Assign(record core.Record, values map[string]string, mapping core.Mapping, columns []string) (Result, error) {
	out := Result{Record: record.Clone()}
	if out.Record == nil {
		out.Record = core.Record{}
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		column, ok := mapping.Column(key)
		if !ok {
			return Result{Record: record}, &core.ResolutionError{
				Field:   core.NormalizeField(key),
				Columns: append([]string(nil), columns...),
			}
		}
		value := strings.TrimSpace(values[key])
		if out.Record[column] == value {
			continue
		}
		out.Record[column] = value
		out.Changed = append(out.Changed, core.NormalizeField(key))
	}
	return out, nil
}

// Render converts a decoded JSON value into cell text. It reports false for null
// and blank values.
func Render(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return v.String(), true
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := Render(item); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ", "), true
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		s := string(data)
		if s == "{}" || s == "null" {
			return "", false
		}
		return s, true
	}
}
