// Package columns maps canonical field names onto the loosely named headers of a
// prospect sheet.
//
// Headers drift between sheet revisions ("CA (M€)", "CA (M€) (Chiffre d'affaires)",
// "Revenue"), so every canonical field carries an ordered list of alias substrings.
// Alias order is part of the contract: the first alias with any match wins, and
// within that alias the first matching header wins.
package columns

import (
	"sort"
	"strings"

	"github.com/prospectlens/prospectlens/internal/core"
)

// Resolve returns the first header containing an alias as a case-insensitive
// substring, trying aliases in priority order. It reports false when nothing matches.
func Resolve(aliases []string, headers []string) (string, bool) {
	if len(aliases) == 0 || len(headers) == 0 {
		return "", false
	}

	folded := make([]string, len(headers))
	for i, header := range headers {
		folded[i] = strings.ToLower(header)
	}

	for _, alias := range aliases {
		needle := strings.ToLower(strings.TrimSpace(alias))
		if needle == "" {
			continue
		}
		for i, header := range folded {
			if strings.Contains(header, needle) {
				return headers[i], true
			}
		}
	}
	return "", false
}

// Resolution is the outcome of resolving every configured canonical field.
type Resolution struct {
	Mapping core.Mapping
	Missing []string

	aliases map[string][]string
	headers []string
}

// ResolveAll resolves every canonical field in aliases against headers. Keys that
// normalize to the same field are visited in sorted order and the first wins.
func ResolveAll(aliases map[string][]string, headers []string) Resolution {
	res := Resolution{
		Mapping: make(core.Mapping, len(aliases)),
		aliases: make(map[string][]string, len(aliases)),
		headers: append([]string(nil), headers...),
	}

	fields := make([]string, 0, len(aliases))
	for field := range aliases {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		key := core.NormalizeField(field)
		if key == "" {
			continue
		}
		if _, dup := res.aliases[key]; dup {
			continue
		}
		list := aliases[field]
		res.aliases[key] = list
		if column, ok := Resolve(list, headers); ok {
			res.Mapping[key] = column
			continue
		}
		res.Missing = append(res.Missing, key)
	}
	sort.Strings(res.Missing)
	return res
}

// Require returns a ResolutionError when field did not resolve.
func (r Resolution) Require(field string) (string, error) {
	key := core.NormalizeField(field)
	if column, ok := r.Mapping.Column(key); ok {
		return column, nil
	}
	return "", &core.ResolutionError{
		Field:   key,
		Aliases: append([]string(nil), r.aliases[key]...),
		Columns: append([]string(nil), r.headers...),
	}
}

// Headers returns the headers the resolution was computed against.
func (r Resolution) Headers() []string {
	return append([]string(nil), r.headers...)
}

// Fields returns the resolved canonical fields in sorted order.
func (r Resolution) Fields() []string {
	fields := make([]string, 0, len(r.Mapping))
	for field := range r.Mapping {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
