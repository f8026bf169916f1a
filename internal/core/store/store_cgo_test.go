//go:build cgo

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prospectlens/prospectlens/internal/config"
	"github.com/prospectlens/prospectlens/internal/core"
	"github.com/prospectlens/prospectlens/internal/core/dataset"
)

func openMemoryStore(t *testing.T, optimistic bool) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, config.StoreConfig{
		Driver:           "libsql",
		Path:             ":memory:",
		OptimisticWrites: optimistic,
	})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleDataset() *core.Dataset {
	return &core.Dataset{
		Columns: []string{"Nom de l'entité", "CA (M€)", "Priorité"},
		Rows: []core.Record{
			{"Nom de l'entité": "Acme", "CA (M€)": "10", "Priorité": "P1"},
			{"Nom de l'entité": "Beta SA", "CA (M€)": "", "Priorité": "P2"},
		},
	}
}

func TestOpenMemoryStore(t *testing.T) {
	store := openMemoryStore(t, false)
	require.Equal(t, "libsql", store.Driver())
	ctx := context.Background()
	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, migrations[len(migrations)-1].version, version)

	// Migrations are idempotent.
	require.NoError(t, store.Migrate(ctx))
	var applied int
	require.NoError(t, store.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	require.Equal(t, len(migrations), applied)
}

func TestSheetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t, false)

	_, err := store.ReadAll(ctx, "prospects")
	require.True(t, errors.Is(err, dataset.ErrSheetNotFound))

	ds := sampleDataset()
	require.NoError(t, store.WriteAll(ctx, "prospects", ds))
	require.Equal(t, int64(1), ds.Version)

	loaded, err := store.ReadAll(ctx, "prospects")
	require.NoError(t, err)
	require.Equal(t, ds.Columns, loaded.Columns)
	require.Equal(t, ds.Rows, loaded.Rows)
	require.Equal(t, int64(1), loaded.Version)

	loaded.Rows = loaded.Rows[:1]
	require.NoError(t, store.WriteAll(ctx, "prospects", loaded))

	again, err := store.ReadAll(ctx, "prospects")
	require.NoError(t, err)
	require.Len(t, again.Rows, 1)
	require.Equal(t, int64(2), again.Version)

	sheets, err := store.Sheets(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"prospects"}, sheets)
}

func TestSheetLastWriterWins(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t, false)
	require.NoError(t, store.WriteAll(ctx, "prospects", sampleDataset()))

	stale := sampleDataset()
	stale.Rows[0]["Priorité"] = "P3"
	require.NoError(t, store.WriteAll(ctx, "prospects", stale))

	loaded, err := store.ReadAll(ctx, "prospects")
	require.NoError(t, err)
	require.Equal(t, "P3", loaded.Rows[0]["Priorité"])
}

func TestSheetOptimisticConflict(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t, true)
	require.NoError(t, store.WriteAll(ctx, "prospects", sampleDataset()))

	first, err := store.ReadAll(ctx, "prospects")
	require.NoError(t, err)
	second, err := store.ReadAll(ctx, "prospects")
	require.NoError(t, err)

	first.Rows[0]["CA (M€)"] = "11"
	require.NoError(t, store.WriteAll(ctx, "prospects", first))

	second.Rows[1]["CA (M€)"] = "4"
	err = store.WriteAll(ctx, "prospects", second)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrVersionConflict))

	loaded, err := store.ReadAll(ctx, "prospects")
	require.NoError(t, err)
	require.Equal(t, "11", loaded.Rows[0]["CA (M€)"])
	require.Equal(t, "", loaded.Rows[1]["CA (M€)"])
}

func TestEnrichmentHistory(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t, false)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.LogEnrichment(ctx, core.HistoryEntry{
		Subject:   "Acme",
		Status:    string(core.EnrichApplied),
		Provider:  "gemini",
		Model:     "gemini-2.5-flash",
		Changed:   []string{"ebitda", "revenue"},
		Raw:       `{"revenue": 12}`,
		CreatedAt: base,
	}))
	require.NoError(t, store.LogEnrichment(ctx, core.HistoryEntry{
		Subject:   "Acme",
		Status:    "failed",
		Error:     "provider rate limited",
		CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, store.LogEnrichment(ctx, core.HistoryEntry{
		Subject:   "Beta SA",
		Status:    string(core.EnrichUnchanged),
		CreatedAt: base.Add(2 * time.Minute),
	}))

	entries, err := store.ListHistory(ctx, "Acme", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "failed", entries[0].Status)
	require.Equal(t, "provider rate limited", entries[0].Error)
	require.Empty(t, entries[0].Changed)
	require.Equal(t, []string{"ebitda", "revenue"}, entries[1].Changed)
	require.Equal(t, base, entries[1].CreatedAt)

	all, err := store.ListHistory(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Beta SA", all[0].Subject)

	require.Error(t, store.LogEnrichment(ctx, core.HistoryEntry{Status: "applied"}))
}
