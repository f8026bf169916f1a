package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/prospectlens/prospectlens/internal/core"
	"github.com/prospectlens/prospectlens/internal/core/dataset"
	"github.com/prospectlens/prospectlens/internal/core/engine"
	apperrors "github.com/prospectlens/prospectlens/internal/errors"
)

// Prospects is the sheet-backed service behind the API. *engine.Enricher
// satisfies it.
type Prospects interface {
	Load(ctx context.Context) (*engine.Snapshot, error)
	Enrich(ctx context.Context, subject string, opts engine.EnrichOptions) (*core.EnrichResult, error)
	Update(ctx context.Context, subject string, values map[string]string) (*core.EnrichResult, error)
}

// ProspectHandler serves /api/v1.
type ProspectHandler struct {
	Prospects Prospects
	// PriorityField is the canonical field used by the priority filter.
	PriorityField string
	// Statuses lists the follow-up values offered for manual edits.
	Statuses []string
}

// ProspectList is the GET /prospects body.
type ProspectList struct {
	Columns []string      `json:"columns"`
	Total   int           `json:"total"`
	Matched int           `json:"matched"`
	Rows    []core.Record `json:"rows"`
}

// ProspectView is one record with its canonical field values.
type ProspectView struct {
	Subject string            `json:"subject"`
	Record  core.Record       `json:"record"`
	Fields  map[string]string `json:"fields"`
}

// ColumnsView reports how sheet headers resolved.
type ColumnsView struct {
	Columns  []string          `json:"columns"`
	Mapping  map[string]string `json:"mapping"`
	Missing  []string          `json:"missing,omitempty"`
	Statuses []string          `json:"statuses,omitempty"`
}

// EnrichRequest is the optional POST /prospects/{name}/enrich body.
type EnrichRequest struct {
	DryRun bool   `json:"dry_run"`
	Model  string `json:"model"`
}

// Routes mounts the API on r.
func (h *ProspectHandler) Routes(r chi.Router) {
	r.Get("/prospects", h.List)
	r.Get("/prospects/{name}", h.Get)
	r.Patch("/prospects/{name}", h.Update)
	r.Post("/prospects/{name}/enrich", h.Enrich)
	r.Get("/columns", h.Columns)
	r.Get("/priorities", h.Priorities)
}

// List returns the filtered sheet as JSON, or CSV with ?format=csv.
func (h *ProspectHandler) List(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Prospects.Load(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	query := r.URL.Query()
	filter := dataset.Filter{
		Search:   query.Get("search"),
		Priority: query.Get("priority"),
	}
	matches := filter.Apply(snap.Dataset, snap.Identity, h.priorityColumn(snap))

	rows := make([]core.Record, 0, len(matches))
	for _, idx := range matches {
		rows = append(rows, snap.Dataset.Rows[idx])
	}

	if strings.EqualFold(query.Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = dataset.Encode(w, &core.Dataset{Columns: snap.Dataset.Columns, Rows: rows}, ',')
		return
	}

	respondJSON(w, http.StatusOK, ProspectList{
		Columns: snap.Dataset.Columns,
		Total:   len(snap.Dataset.Rows),
		Matched: len(rows),
		Rows:    rows,
	})
}

// Get returns one prospect.
func (h *ProspectHandler) Get(w http.ResponseWriter, r *http.Request) {
	name, ok := subjectParam(w, r)
	if !ok {
		return
	}
	snap, err := h.Prospects.Load(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	idx, err := snap.Find(name)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(snap, snap.Dataset.Rows[idx]))
}

// Update applies manual edits keyed by canonical field.
func (h *ProspectHandler) Update(w http.ResponseWriter, r *http.Request) {
	name, ok := subjectParam(w, r)
	if !ok {
		return
	}

	var values map[string]string
	if err := decodeBody(r, &values); err != nil {
		respondWithError(w, r, apperrors.Wrap(r.Context(), apperrors.CodeInvalidInput, err, "body must be a JSON object of field values"))
		return
	}
	if len(values) == 0 {
		respondWithError(w, r, apperrors.NewInvalidInputError("no values to update"))
		return
	}

	result, err := h.Prospects.Update(r.Context(), name, values)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Enrich runs one enrichment cycle. A throttled cycle answers 429 with Retry-After.
func (h *ProspectHandler) Enrich(w http.ResponseWriter, r *http.Request) {
	name, ok := subjectParam(w, r)
	if !ok {
		return
	}

	var req EnrichRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, r, apperrors.Wrap(r.Context(), apperrors.CodeInvalidInput, err, "invalid enrich request"))
		return
	}
	query := r.URL.Query()
	if raw := query.Get("dry_run"); raw != "" {
		dryRun, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, r, apperrors.NewInvalidInputError("dry_run must be a boolean"))
			return
		}
		req.DryRun = dryRun
	}
	if model := strings.TrimSpace(query.Get("model")); model != "" {
		req.Model = model
	}

	result, err := h.Prospects.Enrich(r.Context(), name, engine.EnrichOptions{
		DryRun: req.DryRun,
		Model:  strings.TrimSpace(req.Model),
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if result.Status == core.EnrichThrottled {
		respondWithError(w, r, apperrors.NewThrottledError(result.Subject, result.RetryAfter))
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Columns reports the header resolution of the current sheet.
func (h *ProspectHandler) Columns(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Prospects.Load(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ColumnsView{
		Columns:  snap.Dataset.Columns,
		Mapping:  snap.Resolution.Mapping,
		Missing:  snap.Resolution.Missing,
		Statuses: h.Statuses,
	})
}

// Priorities lists the distinct priority values for the filter dropdown.
func (h *ProspectHandler) Priorities(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Prospects.Load(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	priorities := dataset.Distinct(snap.Dataset, h.priorityColumn(snap))
	if priorities == nil {
		priorities = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"priorities": priorities})
}

func (h *ProspectHandler) priorityColumn(snap *engine.Snapshot) string {
	field := h.PriorityField
	if field == "" {
		field = "priority"
	}
	column, _ := snap.Resolution.Mapping.Column(field)
	return column
}

func viewOf(snap *engine.Snapshot, record core.Record) ProspectView {
	fields := make(map[string]string, len(snap.Resolution.Mapping))
	for field, column := range snap.Resolution.Mapping {
		fields[field] = record.Get(column)
	}
	return ProspectView{
		Subject: record.Get(snap.Identity),
		Record:  record,
		Fields:  fields,
	}
}

func subjectParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "name")
	name, err := url.PathUnescape(raw)
	if err != nil {
		name = raw
	}
	name = strings.TrimSpace(name)
	if name == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("prospect name is required"))
		return "", false
	}
	return name, true
}
