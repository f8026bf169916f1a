package dataset

import (
	"sort"
	"strings"

	"github.com/prospectlens/prospectlens/internal/core"
)

// AllPriorities is the priority filter value that disables priority filtering.
const AllPriorities = "all"

// Filter narrows a dataset for display.
type Filter struct {
	// Search is a case-insensitive substring matched against the identity column.
	Search string
	// Priority must equal the priority cell exactly; empty or "all" matches everything.
	Priority string
}

// Apply returns the matching row indexes of ds in order.
func (f Filter) Apply(ds *core.Dataset, identityColumn, priorityColumn string) []int {
	if ds == nil {
		return nil
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	priority := strings.TrimSpace(f.Priority)
	if strings.EqualFold(priority, AllPriorities) {
		priority = ""
	}

	matches := make([]int, 0, len(ds.Rows))
	for i, row := range ds.Rows {
		if search != "" {
			if !strings.Contains(strings.ToLower(row.Get(identityColumn)), search) {
				continue
			}
		}
		if priority != "" {
			if priorityColumn == "" || strings.TrimSpace(row.Get(priorityColumn)) != priority {
				continue
			}
		}
		matches = append(matches, i)
	}
	return matches
}

// Distinct lists the sorted distinct non-empty values of column.
func Distinct(ds *core.Dataset, column string) []string {
	if ds == nil || column == "" {
		return nil
	}
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, row := range ds.Rows {
		value := strings.TrimSpace(row.Get(column))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}
