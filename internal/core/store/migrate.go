package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type migration struct {
	version    int
	name       string
	statements []string
}

// migrations are applied in order, each in its own transaction. Append only.
var migrations = []migration{
	{
		version: 1,
		name:    "sheets",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS sheet_meta (
				sheet TEXT PRIMARY KEY,
				version INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sheet_columns (
				sheet TEXT NOT NULL,
				position INTEGER NOT NULL,
				name TEXT NOT NULL,
				PRIMARY KEY(sheet, position)
			)`,
			`CREATE TABLE IF NOT EXISTS sheet_rows (
				sheet TEXT NOT NULL,
				position INTEGER NOT NULL,
				data TEXT NOT NULL,
				PRIMARY KEY(sheet, position)
			)`,
		},
	},
	{
		version: 2,
		name:    "enrichment_log",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS enrichment_log (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				subject TEXT NOT NULL,
				status TEXT NOT NULL,
				provider TEXT,
				model TEXT,
				changed TEXT,
				error TEXT,
				raw TEXT,
				created_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_enrichment_log_subject ON enrichment_log(subject, created_at)`,
		},
	},
}

// Migrate brings the schema up to date. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for a fresh database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		m.version, m.name, time.Now().UTC().Unix(),
	); err != nil {
		return fmt.Errorf("record migration %d: %w", m.version, err)
	}
	return tx.Commit()
}
