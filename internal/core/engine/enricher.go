package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/prospectlens/prospectlens/internal/core"
	"github.com/prospectlens/prospectlens/internal/core/columns"
	"github.com/prospectlens/prospectlens/internal/core/dataset"
	"github.com/prospectlens/prospectlens/internal/core/merge"
	"github.com/prospectlens/prospectlens/internal/metrics"
)

// GenerationRequest asks a provider to fill fields for one prospect.
type GenerationRequest struct {
	Subject string
	// Fields are the canonical fields the sheet can store.
	Fields []string
	// Known carries current non-empty values keyed by canonical field.
	Known map[string]string
	Model string
}

// Generation is the raw provider answer.
type Generation struct {
	Text     string
	Provider string
	Model    string
}

// Generator produces enrichment text. Failures should be *core.UpstreamCallError.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*Generation, error)
}

// HistoryLogger records enrichment attempts.
type HistoryLogger interface {
	LogEnrichment(ctx context.Context, entry core.HistoryEntry) error
}

// EnrichOptions tunes a single enrichment.
type EnrichOptions struct {
	DryRun bool
	Model  string
}

// Enricher runs the load, resolve, gate, generate, merge, save cycle over one sheet.
type Enricher struct {
	Store         dataset.TableStore
	Table         string
	Aliases       map[string][]string
	IdentityField string
	Fields        []string

	Gate        *RateGate
	MinInterval time.Duration

	Generator Generator
	History   HistoryLogger
	Logger    *logging.Logger
	Clock     func() time.Time
}

// Snapshot is a loaded sheet plus its column resolution.
type Snapshot struct {
	Dataset    *core.Dataset
	Resolution columns.Resolution
	Identity   string
}

// Load reads the sheet and resolves its columns. Failing to resolve the identity
// field is fatal.
func (e *Enricher) Load(ctx context.Context) (*Snapshot, error) {
	if e == nil || e.Store == nil {
		return nil, errors.New("enricher store is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ds, err := e.Store.ReadAll(ctx, e.Table)
	if err != nil {
		return nil, err
	}
	res := columns.ResolveAll(e.Aliases, ds.Columns)
	identity, err := res.Require(e.identityField())
	if err != nil {
		return nil, err
	}
	return &Snapshot{Dataset: ds, Resolution: res, Identity: identity}, nil
}

// Find locates the record for subject in a loaded snapshot.
func (s *Snapshot) Find(subject string) (int, error) {
	idx := s.Dataset.Find(s.Identity, subject)
	if idx < 0 {
		return -1, &core.NotFoundError{Column: s.Identity, Value: strings.TrimSpace(subject)}
	}
	return idx, nil
}

// Enrich asks the generator for the missing facts about subject and merges the
// answer into the sheet. A throttled attempt is a normal outcome, not an error.
func (e *Enricher) Enrich(ctx context.Context, subject string, opts EnrichOptions) (*core.EnrichResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.Generator == nil {
		return nil, errors.New("enricher generator is not configured")
	}
	started := e.now()

	snap, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := snap.Find(subject)
	if err != nil {
		return nil, err
	}
	record := snap.Dataset.Rows[idx]
	name := record.Get(snap.Identity)

	decision := e.Gate.TryAcquire(started, e.MinInterval)
	if !decision.Granted {
		metrics.RecordThrottled(decision.RetryAfter)
		e.debug("Enrichment throttled",
			zap.String("subject", name),
			zap.Duration("retry_after", decision.RetryAfter))
		return &core.EnrichResult{
			Subject:    name,
			Status:     core.EnrichThrottled,
			Record:     record,
			RetryAfter: decision.RetryAfter,
		}, nil
	}

	fields, mapping := e.requestedFields(snap.Resolution)
	req := GenerationRequest{
		Subject: name,
		Fields:  fields,
		Known:   knownValues(record, mapping),
		Model:   opts.Model,
	}

	gen, err := e.Generator.Generate(ctx, req)
	if err != nil {
		e.finish(ctx, started, core.HistoryEntry{Subject: name, Status: "upstream_error", Error: err.Error()}, "")
		return nil, err
	}

	merged, err := merge.MergeResponse(record, gen.Text, mapping)
	if err != nil {
		e.finish(ctx, started, core.HistoryEntry{
			Subject:  name,
			Status:   "parse_error",
			Provider: gen.Provider,
			Model:    gen.Model,
			Error:    err.Error(),
			Raw:      gen.Text,
		}, gen.Provider)
		return nil, err
	}

	result := &core.EnrichResult{
		Subject:  name,
		Record:   merged.Record,
		Changed:  merged.Changed,
		Provider: gen.Provider,
		Model:    gen.Model,
	}
	switch {
	case opts.DryRun:
		result.Status = core.EnrichDryRun
	case len(merged.Changed) == 0:
		result.Status = core.EnrichUnchanged
	default:
		snap.Dataset.Rows[idx] = merged.Record
		if err := e.save(ctx, snap.Dataset); err != nil {
			e.finish(ctx, started, core.HistoryEntry{
				Subject:  name,
				Status:   "write_error",
				Provider: gen.Provider,
				Model:    gen.Model,
				Changed:  merged.Changed,
				Error:    err.Error(),
				Raw:      gen.Text,
			}, gen.Provider)
			return nil, err
		}
		result.Status = core.EnrichApplied
	}

	e.finish(ctx, started, core.HistoryEntry{
		Subject:  name,
		Status:   string(result.Status),
		Provider: gen.Provider,
		Model:    gen.Model,
		Changed:  merged.Changed,
		Raw:      gen.Text,
	}, gen.Provider)
	e.debug("Enrichment finished",
		zap.String("subject", name),
		zap.String("status", string(result.Status)),
		zap.Strings("changed", merged.Changed))
	return result, nil
}

// Update applies manual edits keyed by canonical field and persists them.
// An empty value clears the cell. The rate gate is not involved.
func (e *Enricher) Update(ctx context.Context, subject string, values map[string]string) (*core.EnrichResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(values) == 0 {
		return nil, errors.New("no values to update")
	}

	snap, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := snap.Find(subject)
	if err != nil {
		return nil, err
	}
	record := snap.Dataset.Rows[idx]

	assigned, err := merge.Assign(record, values, snap.Resolution.Mapping, snap.Dataset.Columns)
	if err != nil {
		return nil, err
	}

	result := &core.EnrichResult{
		Subject: record.Get(snap.Identity),
		Record:  assigned.Record,
		Changed: assigned.Changed,
		Status:  core.EnrichUnchanged,
	}
	if len(assigned.Changed) == 0 {
		return result, nil
	}

	snap.Dataset.Rows[idx] = assigned.Record
	if err := e.save(ctx, snap.Dataset); err != nil {
		return nil, err
	}
	result.Status = core.EnrichApplied
	e.debug("Record updated",
		zap.String("subject", result.Subject),
		zap.Strings("changed", assigned.Changed))
	return result, nil
}

// requestedFields returns the enrichable fields the sheet has columns for, and a
// mapping restricted to them so a response cannot rewrite other cells.
func (e *Enricher) requestedFields(res columns.Resolution) ([]string, core.Mapping) {
	wanted := e.Fields
	if len(wanted) == 0 {
		wanted = res.Fields()
	}
	identity := core.NormalizeField(e.identityField())

	fields := make([]string, 0, len(wanted))
	mapping := make(core.Mapping, len(wanted))
	for _, field := range wanted {
		key := core.NormalizeField(field)
		if key == "" || key == identity {
			continue
		}
		column, ok := res.Mapping.Column(key)
		if !ok {
			continue
		}
		if _, dup := mapping[key]; dup {
			continue
		}
		mapping[key] = column
		fields = append(fields, key)
	}
	return fields, mapping
}

func knownValues(record core.Record, mapping core.Mapping) map[string]string {
	known := make(map[string]string, len(mapping))
	for field, column := range mapping {
		if value := strings.TrimSpace(record.Get(column)); value != "" {
			known[field] = value
		}
	}
	return known
}

func (e *Enricher) save(ctx context.Context, ds *core.Dataset) error {
	err := e.Store.WriteAll(ctx, e.Table, ds)
	metrics.RecordSheetWrite(e.Table, len(ds.Rows), err == nil)
	if err != nil {
		return fmt.Errorf("save sheet: %w", err)
	}
	return nil
}

func (e *Enricher) finish(ctx context.Context, started time.Time, entry core.HistoryEntry, provider string) {
	metrics.RecordEnrichment(entry.Status, provider, e.now().Sub(started))

	if e.History == nil {
		return
	}
	entry.CreatedAt = e.now()
	if err := e.History.LogEnrichment(ctx, entry); err != nil && e.Logger != nil {
		e.Logger.Warn("Failed to log enrichment", zap.String("subject", entry.Subject), zap.Error(err))
	}
}

func (e *Enricher) debug(msg string, fields ...zap.Field) {
	if e != nil && e.Logger != nil {
		e.Logger.Debug(msg, fields...)
	}
}

func (e *Enricher) identityField() string {
	if e == nil || strings.TrimSpace(e.IdentityField) == "" {
		return "name"
	}
	return e.IdentityField
}

func (e *Enricher) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}
