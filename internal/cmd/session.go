package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/prospectlens/prospectlens/internal/ailink"
	"github.com/prospectlens/prospectlens/internal/config"
	"github.com/prospectlens/prospectlens/internal/core/dataset"
	"github.com/prospectlens/prospectlens/internal/core/engine"
	"github.com/prospectlens/prospectlens/internal/core/store"
	"github.com/prospectlens/prospectlens/internal/observability"
)

// session bundles the sheet backend and the enricher for one command run.
type session struct {
	cfg      *config.Config
	sheet    dataset.TableStore
	cache    *dataset.CachedStore
	db       *store.Store
	enricher *engine.Enricher
}

// openSession builds the sheet store selected by config, the optional
// history store and the enricher on top of them. Read-only commands pass
// withGenerator=false and never touch provider configuration.
func openSession(ctx context.Context, cfg *config.Config, withGenerator bool) (*session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	s := &session{cfg: cfg}

	backend := strings.ToLower(strings.TrimSpace(cfg.Sheet.Backend))
	needDB := backend == "libsql" || cfg.Enrich.History
	if needDB {
		db, err := openStore(ctx, cfg)
		if err != nil {
			if backend == "libsql" {
				return nil, fmt.Errorf("open store: %w", err)
			}
			observability.Logger().Warn("Enrichment history disabled: store unavailable", zap.Error(err))
		} else {
			s.db = db
		}
	}

	var base dataset.TableStore
	switch backend {
	case "", "csv":
		base = dataset.NewCSVStore(cfg.Sheet.Path, cfg.Sheet.DelimiterRune())
	case "libsql":
		base = s.db
	default:
		s.Close()
		return nil, fmt.Errorf("unknown sheet backend %q", cfg.Sheet.Backend)
	}

	s.sheet = base
	if cfg.Sheet.CacheTTL > 0 {
		cache, err := dataset.NewCachedStore(base, cfg.Sheet.CacheTTL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("sheet cache: %w", err)
		}
		s.cache = cache
		s.sheet = cache
	}

	s.enricher = &engine.Enricher{
		Store:         s.sheet,
		Table:         cfg.Sheet.Table,
		Aliases:       cfg.Columns.Aliases,
		IdentityField: cfg.Columns.Identity,
		Fields:        cfg.Enrich.Fields,
		Gate:          engine.NewRateGate(),
		MinInterval:   cfg.Enrich.MinInterval,
		Logger:        observability.Logger(),
	}
	if s.db != nil && cfg.Enrich.History {
		s.enricher.History = s.db
	}

	if withGenerator {
		svc, err := ailink.NewService(cfg.AILink)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("ailink: %w", err)
		}
		s.enricher.Generator = &ailink.ProspectGenerator{
			Service:      svc,
			Role:         cfg.Enrich.Role,
			PromptSlug:   cfg.Enrich.Prompt,
			Model:        cfg.Enrich.Model,
			Descriptions: config.FieldDescriptions(),
		}
	}
	return s, nil
}

// Close releases the cache and the store.
func (s *session) Close() {
	if s == nil {
		return
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			observability.Logger().Debug("Store close failed", zap.Error(err))
		}
	}
}

// priorityColumn resolves the configured priority field in snap.
func (s *session) priorityColumn(snap *engine.Snapshot) string {
	field := s.cfg.Columns.Priority
	if field == "" {
		field = config.FieldPriority
	}
	column, _ := snap.Resolution.Mapping.Column(field)
	return column
}

// commandSession opens a session from the decoded root config.
func commandSession(ctx context.Context, generator bool) (*session, error) {
	return openSession(ctx, appConfig, generator)
}
