package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectlens/prospectlens/internal/core"
	"github.com/prospectlens/prospectlens/internal/core/engine"
	apperrors "github.com/prospectlens/prospectlens/internal/errors"
)

type memoryStore struct {
	ds     *core.Dataset
	err    error
	writes int
}

func (m *memoryStore) ReadAll(ctx context.Context, table string) (*core.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ds.Clone(), nil
}

func (m *memoryStore) WriteAll(ctx context.Context, table string, ds *core.Dataset) error {
	m.writes++
	m.ds = ds.Clone()
	return nil
}

type fixedGenerator struct {
	text string
	err  error
}

func (g fixedGenerator) Generate(ctx context.Context, req engine.GenerationRequest) (*engine.Generation, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &engine.Generation{Text: g.text, Provider: "stub", Model: "stub-1"}, nil
}

func testSheet() *core.Dataset {
	return &core.Dataset{
		Columns: []string{"Nom de l'entité", "CA (M€)", "EBITDA (M€)", "Priorité", "Statut Follow-up"},
		Rows: []core.Record{
			{"Nom de l'entité": "Acme SA", "CA (M€)": "10", "EBITDA (M€)": "", "Priorité": "P1", "Statut Follow-up": ""},
			{"Nom de l'entité": "Beta", "CA (M€)": "", "EBITDA (M€)": "", "Priorité": "P2", "Statut Follow-up": ""},
			{"Nom de l'entité": "Gamma Industries", "CA (M€)": "", "EBITDA (M€)": "", "Priorité": "P1", "Statut Follow-up": ""},
		},
	}
}

func newTestRouter(t *testing.T, gen engine.Generator) (http.Handler, *memoryStore, *engine.Enricher) {
	t.Helper()
	store := &memoryStore{ds: testSheet()}
	enricher := &engine.Enricher{
		Store: store,
		Table: "prospects",
		Aliases: map[string][]string{
			"name":     {"nom de l'entité"},
			"revenue":  {"ca (m€)"},
			"ebitda":   {"ebitda"},
			"priority": {"priorité"},
			"status":   {"statut"},
		},
		IdentityField: "name",
		Fields:        []string{"revenue", "ebitda"},
		Gate:          engine.NewRateGate(),
		MinInterval:   time.Minute,
		Generator:     gen,
	}
	handler := &ProspectHandler{Prospects: enricher, Statuses: []string{"À contacter", "RDV fixé"}}

	r := chi.NewRouter()
	r.Route("/api/v1", handler.Routes)
	return r, store, enricher
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListProspectsFilters(t *testing.T) {
	router, _, _ := newTestRouter(t, fixedGenerator{})

	rec := do(t, router, http.MethodGet, "/api/v1/prospects?priority=P1&search=ind", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list ProspectList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 1, list.Matched)
	require.Len(t, list.Rows, 1)
	assert.Equal(t, "Gamma Industries", list.Rows[0]["Nom de l'entité"])

	rec = do(t, router, http.MethodGet, "/api/v1/prospects?priority=all", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Matched)
}

func TestListProspectsCSV(t *testing.T) {
	router, _, _ := newTestRouter(t, fixedGenerator{})

	rec := do(t, router, http.MethodGet, "/api/v1/prospects?format=csv&priority=P2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "Beta")
	assert.NotContains(t, rec.Body.String(), "Acme SA")
}

func TestGetProspect(t *testing.T) {
	router, _, _ := newTestRouter(t, fixedGenerator{})

	rec := do(t, router, http.MethodGet, "/api/v1/prospects/Acme%20SA", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view ProspectView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Acme SA", view.Subject)
	assert.Equal(t, "10", view.Fields["revenue"])
	assert.Equal(t, "P1", view.Fields["priority"])

	rec = do(t, router, http.MethodGet, "/api/v1/prospects/Nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchProspect(t *testing.T) {
	router, store, _ := newTestRouter(t, fixedGenerator{})

	rec := do(t, router, http.MethodPatch, "/api/v1/prospects/Beta", `{"status": "RDV fixé", "revenue": "4,5"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result core.EnrichResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, core.EnrichApplied, result.Status)
	assert.Equal(t, "RDV fixé", store.ds.Rows[1]["Statut Follow-up"])
	assert.Equal(t, "4,5", store.ds.Rows[1]["CA (M€)"])

	rec = do(t, router, http.MethodPatch, "/api/v1/prospects/Beta", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPatch, "/api/v1/prospects/Beta", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPatch, "/api/v1/prospects/Beta", `{"email": "a@b.test"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeResolutionFailed)
}

func TestEnrichThenThrottled(t *testing.T) {
	router, store, _ := newTestRouter(t, fixedGenerator{text: `{"ebitda": 1.5}`})

	rec := do(t, router, http.MethodPost, "/api/v1/prospects/Acme%20SA/enrich", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result core.EnrichResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, core.EnrichApplied, result.Status)
	assert.Equal(t, []string{"ebitda"}, result.Changed)
	assert.Equal(t, "1.5", store.ds.Rows[0]["EBITDA (M€)"])

	rec = do(t, router, http.MethodPost, "/api/v1/prospects/Beta/enrich", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), apperrors.CodeThrottled)
	assert.Equal(t, 1, store.writes)
}

func TestEnrichDryRunQuery(t *testing.T) {
	router, store, _ := newTestRouter(t, fixedGenerator{text: `{"ebitda": 2}`})

	rec := do(t, router, http.MethodPost, "/api/v1/prospects/Beta/enrich?dry_run=true", `{"model": "gemini-2.5-flash"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result core.EnrichResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, core.EnrichDryRun, result.Status)
	assert.Zero(t, store.writes)

	rec = do(t, router, http.MethodPost, "/api/v1/prospects/Beta/enrich?dry_run=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnrichErrorsMapToStatus(t *testing.T) {
	router, _, _ := newTestRouter(t, fixedGenerator{text: "aucune donnée"})
	rec := do(t, router, http.MethodPost, "/api/v1/prospects/Beta/enrich", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	router, _, _ = newTestRouter(t, fixedGenerator{err: &core.UpstreamCallError{Code: core.UpstreamAuth, Message: "bad key"}})
	rec = do(t, router, http.MethodPost, "/api/v1/prospects/Beta/enrich", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestColumnsAndPriorities(t *testing.T) {
	router, _, _ := newTestRouter(t, fixedGenerator{})

	rec := do(t, router, http.MethodGet, "/api/v1/columns", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var columns ColumnsView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &columns))
	assert.Equal(t, "CA (M€)", columns.Mapping["revenue"])
	assert.Empty(t, columns.Missing)
	assert.Equal(t, []string{"À contacter", "RDV fixé"}, columns.Statuses)

	rec = do(t, router, http.MethodGet, "/api/v1/priorities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"P1", "P2"}, body["priorities"])
}

func TestSheetUnavailable(t *testing.T) {
	router, store, _ := newTestRouter(t, fixedGenerator{})
	store.err = context.DeadlineExceeded

	rec := do(t, router, http.MethodGet, "/api/v1/prospects", "")
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}
