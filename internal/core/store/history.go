package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prospectlens/prospectlens/internal/core"
)

// MaxLoggedResponse caps the raw provider response kept per history entry.
const MaxLoggedResponse = 8 << 10

// LogEnrichment appends an enrichment attempt to the history.
func (s *Store) LogEnrichment(ctx context.Context, entry core.HistoryEntry) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(entry.Subject) == "" {
		return errors.New("history subject is required")
	}

	changed, err := json.Marshal(entry.Changed)
	if err != nil {
		return fmt.Errorf("marshal changed fields: %w", err)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO enrichment_log (subject, status, provider, model, changed, error, raw, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.Subject, entry.Status, entry.Provider, entry.Model, string(changed), entry.Error,
		truncate(entry.Raw, MaxLoggedResponse), createdAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("log enrichment: %w", err)
	}
	return nil
}

// ListHistory returns the most recent attempts first. An empty subject lists all
// subjects; limit <= 0 means no limit.
func (s *Store) ListHistory(ctx context.Context, subject string, limit int) ([]core.HistoryEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	query := `SELECT id, subject, status, provider, model, changed, error, raw, created_at FROM enrichment_log`
	var args []any
	if subject = strings.TrimSpace(subject); subject != "" {
		query += ` WHERE subject = ?`
		args = append(args, subject)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var entries []core.HistoryEntry
	for rows.Next() {
		var (
			entry                              core.HistoryEntry
			provider, model, changed, msg, raw sql.NullString
			created                            int64
		)
		if err := rows.Scan(&entry.ID, &entry.Subject, &entry.Status, &provider, &model, &changed, &msg, &raw, &created); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entry.Provider = provider.String
		entry.Model = model.String
		entry.Error = msg.String
		entry.Raw = raw.String
		entry.CreatedAt = time.UnixMilli(created).UTC()
		if changed.Valid && changed.String != "" && changed.String != "null" {
			if err := json.Unmarshal([]byte(changed.String), &entry.Changed); err != nil {
				return nil, fmt.Errorf("decode changed fields: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

func truncate(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
