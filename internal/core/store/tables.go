package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prospectlens/prospectlens/internal/core"
	"github.com/prospectlens/prospectlens/internal/core/dataset"
)

// ErrVersionConflict is returned by WriteAll when optimistic writes are enabled
// and the sheet changed since the dataset was read.
var ErrVersionConflict = errors.New("sheet version conflict")

// ReadAll loads an imported sheet. The dataset carries the stored version stamp.
func (s *Store) ReadAll(ctx context.Context, table string) (*core.Dataset, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	table = strings.TrimSpace(table)

	var version int64
	err := s.DB.QueryRowContext(ctx, `SELECT version FROM sheet_meta WHERE sheet = ?`, table).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", dataset.ErrSheetNotFound, table)
		}
		return nil, fmt.Errorf("read sheet meta: %w", err)
	}

	ds := &core.Dataset{Version: version}
	if ds.Columns, err = s.readColumns(ctx, table); err != nil {
		return nil, err
	}
	if ds.Rows, err = s.readRows(ctx, table); err != nil {
		return nil, err
	}
	dataset.Normalize(ds)
	return ds, nil
}

func (s *Store) readColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT name FROM sheet_columns WHERE sheet = ? ORDER BY position`, table)
	if err != nil {
		return nil, fmt.Errorf("read sheet columns: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan sheet column: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read sheet columns: %w", err)
	}
	return columns, nil
}

func (s *Store) readRows(ctx context.Context, table string) ([]core.Record, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT data FROM sheet_rows WHERE sheet = ? ORDER BY position`, table)
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var records []core.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan sheet row: %w", err)
		}
		record := core.Record{}
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("decode sheet row %d: %w", len(records), err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	return records, nil
}

// WriteAll replaces the sheet in one transaction and bumps its version stamp.
// On success ds.Version holds the new stamp.
func (s *Store) WriteAll(ctx context.Context, table string, ds *core.Dataset) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ds == nil {
		return errors.New("dataset is required")
	}
	table = strings.TrimSpace(table)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sheet write: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	var current int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM sheet_meta WHERE sheet = ?`, table).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read sheet version: %w", err)
	}
	if s.optimistic && ds.Version != current {
		return fmt.Errorf("%w: %s has version %d, write based on %d", ErrVersionConflict, table, current, ds.Version)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_columns WHERE sheet = ?`, table); err != nil {
		return fmt.Errorf("clear sheet columns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE sheet = ?`, table); err != nil {
		return fmt.Errorf("clear sheet rows: %w", err)
	}

	for i, column := range ds.Columns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sheet_columns (sheet, position, name) VALUES (?, ?, ?)`,
			table, i, column,
		); err != nil {
			return fmt.Errorf("write sheet column %q: %w", column, err)
		}
	}
	for i, row := range ds.Rows {
		payload, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode sheet row %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sheet_rows (sheet, position, data) VALUES (?, ?, ?)`,
			table, i, string(payload),
		); err != nil {
			return fmt.Errorf("write sheet row %d: %w", i, err)
		}
	}

	next := current + 1
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sheet_meta (sheet, version, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(sheet) DO UPDATE SET
			version = excluded.version,
			updated_at = excluded.updated_at
	`, table, next, time.Now().UTC().Unix()); err != nil {
		return fmt.Errorf("write sheet version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sheet write: %w", err)
	}
	ds.Version = next
	return nil
}

// Sheets lists the imported sheet names.
func (s *Store) Sheets(ctx context.Context) ([]string, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT sheet FROM sheet_meta ORDER BY sheet`)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var sheets []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan sheet: %w", err)
		}
		sheets = append(sheets, name)
	}
	return sheets, rows.Err()
}
