package cmd

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prospectlens/prospectlens/internal/config"
	"github.com/prospectlens/prospectlens/internal/core/store"
	"github.com/prospectlens/prospectlens/internal/observability"
)

// openStore opens the libsql store and brings its schema up to date.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if cfg == nil {
		return nil, errors.New("config not loaded")
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store %s: %w", db.Target(), err)
	}

	version, _ := db.SchemaVersion(ctx)
	observability.Logger().Debug("Store ready",
		zap.String("target", db.Target()),
		zap.Int("schema_version", version))
	return db, nil
}
