// Package dataset reads, caches, filters and writes prospect sheets.
package dataset

import (
	"context"
	"fmt"
	"sort"

	"github.com/prospectlens/prospectlens/internal/core"
)

// TableStore is a tabular backend addressed by table name. Every write replaces
// the whole table.
type TableStore interface {
	ReadAll(ctx context.Context, table string) (*core.Dataset, error)
	WriteAll(ctx context.Context, table string, ds *core.Dataset) error
}

// Import copies a table from one store into another.
func Import(ctx context.Context, from, to TableStore, table string) (*core.Dataset, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("import requires source and destination stores")
	}
	ds, err := from.ReadAll(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	if err := to.WriteAll(ctx, table, ds); err != nil {
		return nil, fmt.Errorf("write %s: %w", table, err)
	}
	return ds, nil
}

// Normalize makes every record carry every column and appends columns that only
// appear in records, keeping header order stable.
func Normalize(ds *core.Dataset) {
	if ds == nil {
		return
	}
	known := make(map[string]struct{}, len(ds.Columns))
	for _, column := range ds.Columns {
		known[column] = struct{}{}
	}
	for _, row := range ds.Rows {
		var extra []string
		for column := range row {
			if _, ok := known[column]; ok {
				continue
			}
			known[column] = struct{}{}
			extra = append(extra, column)
		}
		sort.Strings(extra)
		ds.Columns = append(ds.Columns, extra...)
	}
	for i, row := range ds.Rows {
		if row == nil {
			row = core.Record{}
			ds.Rows[i] = row
		}
		for _, column := range ds.Columns {
			if _, ok := row[column]; !ok {
				row[column] = ""
			}
		}
	}
}
