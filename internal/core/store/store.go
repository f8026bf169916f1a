// Package store persists imported sheets and the enrichment history in libsql,
// either an embedded file or a remote Turso database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/prospectlens/prospectlens/internal/config"
)

const driverLibsql = "libsql"

// Store wraps the database connection holding imported sheets and the
// enrichment history.
type Store struct {
	DB     *sql.DB
	driver string
	target string

	// optimistic enables version-stamp checks on sheet writes.
	optimistic bool
}

// Open connects to the configured database. Embedded files get a single
// connection in WAL mode.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = driverLibsql
	}
	if driver != driverLibsql {
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}

	conn, err := resolveConn(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverLibsql, conn.dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql store %s: %w", conn.target, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping libsql store %s: %w", conn.target, err)
	}
	if conn.local {
		if err := configureLocal(ctx, db, conn.dsn); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &Store{DB: db, driver: driver, target: conn.target, optimistic: cfg.OptimisticWrites}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Driver returns the configured store driver.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// Target describes the database location with credentials removed.
func (s *Store) Target() string {
	if s == nil {
		return ""
	}
	return s.target
}

// configureLocal serializes writers on embedded databases. A whole-sheet rewrite
// runs in one transaction, so a single connection plus WAL keeps readers unblocked.
func configureLocal(ctx context.Context, db *sql.DB, dsn string) error {
	db.SetMaxOpenConns(1)

	if dsn != ":memory:" {
		var mode string
		if err := db.QueryRowContext(ctx, "PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
			return fmt.Errorf("enable wal: %w", err)
		}
	}
	var timeout int
	if err := db.QueryRowContext(ctx, "PRAGMA busy_timeout=5000").Scan(&timeout); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	return nil
}

type connInfo struct {
	dsn    string
	target string
	local  bool
}

// resolveConn turns the store config into a libsql DSN. A URL wins over a
// path; plain paths become file: DSNs and get their directory created.
func resolveConn(cfg config.StoreConfig) (connInfo, error) {
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil {
			return connInfo{}, fmt.Errorf("invalid store url: %w", err)
		}
		query := parsed.Query()
		if token := strings.TrimSpace(cfg.AuthToken); token != "" && query.Get("authToken") == "" {
			query.Set("authToken", token)
			parsed.RawQuery = query.Encode()
		}
		redacted := *parsed
		redacted.RawQuery = ""
		redacted.User = nil
		return connInfo{dsn: parsed.String(), target: redacted.String()}, nil
	}

	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "":
		return connInfo{}, errors.New("store path or url is required")
	case path == ":memory:":
		return connInfo{dsn: path, target: path, local: true}, nil
	case strings.HasPrefix(path, "libsql:"):
		return connInfo{dsn: path, target: path}, nil
	}

	file := path
	if strings.HasPrefix(path, "file:") {
		file = strings.TrimPrefix(strings.TrimPrefix(path, "file:"), "//")
		if idx := strings.IndexByte(file, '?'); idx >= 0 {
			file = file[:idx]
		}
	}
	file = filepath.Clean(file)
	if err := ensureStoreDir(file); err != nil {
		return connInfo{}, err
	}

	dsn := path
	if !strings.HasPrefix(path, "file:") {
		dsn = "file:" + file
	}
	return connInfo{dsn: dsn, target: file, local: true}, nil
}

func ensureStoreDir(file string) error {
	dir := filepath.Dir(file)
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
