package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sharanm/rare-disease-radar/backend/internal/catalog"
)

type stubStore struct {
	dates      []string
	summaries  map[string]*catalog.DailySummaries
	stats      *catalog.Stats
	queries    []catalog.QueryRecord
	storedText []string
}

func (s *stubStore) Ping(context.Context) error { return nil }

func (s *stubStore) Dates(context.Context) ([]string, error) { return s.dates, nil }

func (s *stubStore) LatestSummaries(ctx context.Context) (*catalog.DailySummaries, error) {
	if len(s.dates) == 0 {
		return nil, catalog.ErrNotFound
	}
	return s.SummariesByDate(ctx, s.dates[0])
}

func (s *stubStore) SummariesByDate(_ context.Context, date string) (*catalog.DailySummaries, error) {
	if summary, ok := s.summaries[date]; ok {
		return summary, nil
	}
	return nil, catalog.ErrNotFound
}

func (s *stubStore) Statistics(context.Context) (*catalog.Stats, error) { return s.stats, nil }

func (s *stubStore) StoreQueryResult(_ context.Context, query, response string, _ map[string]any) error {
	s.storedText = append(s.storedText, query+"|"+response)
	return nil
}

func (s *stubStore) RecentQueries(_ context.Context, limit int) ([]catalog.QueryRecord, error) {
	if limit < len(s.queries) {
		return s.queries[:limit], nil
	}
	return s.queries, nil
}

func (s *stubStore) Dump(context.Context) (map[string]any, error) {
	return map[string]any{"total_documents": len(s.dates)}, nil
}

type stubAssistant struct {
	response string
	err      error
}

func (s *stubAssistant) RunQuery(context.Context, string) (string, error) {
	return s.response, s.err
}

type stubCycle struct {
	needsUpdate bool
	ran         chan struct{}
}

func (s *stubCycle) RunCycle(context.Context) error {
	if s.ran != nil {
		close(s.ran)
	}
	return nil
}

func (s *stubCycle) NeedsUpdate(context.Context) (bool, error) { return s.needsUpdate, nil }

type stubSched struct {
	running bool
	next    time.Time
}

func (s *stubSched) Running() bool      { return s.running }
func (s *stubSched) NextRun() time.Time { return s.next }

func newTestServer(store *stubStore, assistant *stubAssistant, cycle *stubCycle, sched *stubSched) *chi.Mux {
	srv := &server{
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		store:     store,
		assistant: assistant,
		cycle:     cycle,
		sched:     sched,
	}

	r := chi.NewRouter()
	r.Get("/analyses/dates", srv.handleDates)
	r.Get("/analyses/latest", srv.handleLatest)
	r.Get("/analyses/stats/summary", srv.handleStats)
	r.Get("/analyses/{date}", srv.handleByDate)
	r.Post("/query", srv.handleQuery)
	r.Post("/update-analyses", srv.handleUpdate)
	r.Get("/scheduler/status", srv.handleSchedulerStatus)
	r.Get("/scheduler/initial-check", srv.handleInitialCheck)
	r.Get("/queries/recent", srv.handleRecentQueries)
	r.Get("/debug/database", srv.handleDebugDatabase)
	return r
}

func strPtr(s string) *string { return &s }

func TestHandleDates(t *testing.T) {
	store := &stubStore{dates: []string{"2025-08-30", "2025-08-29"}}
	r := newTestServer(store, &stubAssistant{}, &stubCycle{}, &stubSched{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyses/dates", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var dates []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dates))
	require.Equal(t, []string{"2025-08-30", "2025-08-29"}, dates)
}

func TestHandleByDatePartialTypes(t *testing.T) {
	store := &stubStore{
		summaries: map[string]*catalog.DailySummaries{
			"2025-08-30": {
				Date:     "2025-08-30",
				Clinical: strPtr("clinical text"),
				Research: strPtr("research text"),
			},
		},
	}
	r := newTestServer(store, &stubAssistant{}, &stubCycle{}, &stubSched{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyses/2025-08-30", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "clinical text", payload["clinical"])
	require.Equal(t, "research text", payload["research"])
	// The type never stored for this date is present but null.
	require.Contains(t, payload, "recent_trends")
	require.Nil(t, payload["recent_trends"])
}

func TestHandleByDateNotFound(t *testing.T) {
	r := newTestServer(&stubStore{}, &stubAssistant{}, &stubCycle{}, &stubSched{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyses/1999-01-01", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleLatest(t *testing.T) {
	store := &stubStore{
		dates: []string{"2025-08-30"},
		summaries: map[string]*catalog.DailySummaries{
			"2025-08-30": {Date: "2025-08-30", RecentTrends: strPtr("trends")},
		},
	}
	r := newTestServer(store, &stubAssistant{}, &stubCycle{}, &stubSched{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyses/latest", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "2025-08-30", payload["date"])
	require.Equal(t, "trends", payload["recent_trends"])
}

func TestHandleLatestEmptyCatalog(t *testing.T) {
	r := newTestServer(&stubStore{}, &stubAssistant{}, &stubCycle{}, &stubSched{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyses/latest", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStats(t *testing.T) {
	store := &stubStore{stats: &catalog.Stats{
		TotalAnalyses: 6,
		UniqueDates:   2,
		AnalysisTypes: []string{"clinical", "recent_trends", "research"},
		TypeCounts:    map[string]int64{"clinical": 2, "recent_trends": 2, "research": 2},
		LatestDate:    "2025-08-30",
		Status:        "active",
	}}
	r := newTestServer(store, &stubAssistant{}, &stubCycle{}, &stubSched{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyses/stats/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var stats catalog.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, int64(6), stats.TotalAnalyses)
	require.Equal(t, "2025-08-30", stats.LatestDate)
}

func TestHandleQueryPersistsRecord(t *testing.T) {
	store := &stubStore{}
	assistant := &stubAssistant{response: "synthesized answer"}
	r := newTestServer(store, assistant, &stubCycle{}, &stubSched{})

	body := strings.NewReader(`{"text": "treatments for pompe disease"}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var payload queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "treatments for pompe disease", payload.Query)
	require.Equal(t, "synthesized answer", payload.Response)
	require.NotEmpty(t, payload.Timestamp)

	require.Len(t, store.storedText, 1)
	require.Equal(t, "treatments for pompe disease|synthesized answer", store.storedText[0])
}

func TestHandleQueryRejectsEmptyText(t *testing.T) {
	r := newTestServer(&stubStore{}, &stubAssistant{}, &stubCycle{}, &stubSched{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"text": "  "}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpdateAcksImmediately(t *testing.T) {
	cycle := &stubCycle{ran: make(chan struct{})}
	r := newTestServer(&stubStore{}, &stubAssistant{}, cycle, &stubSched{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/update-analyses", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, true, payload["success"])

	select {
	case <-cycle.ran:
	case <-time.After(time.Second):
		t.Fatal("background cycle never ran")
	}
}

func TestHandleSchedulerStatus(t *testing.T) {
	next := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	r := newTestServer(&stubStore{}, &stubAssistant{}, &stubCycle{}, &stubSched{running: true, next: next})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scheduler/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "running", payload["status"])
	require.Equal(t, "2025-08-31T00:00:00Z", payload["next_run"])
}

func TestHandleInitialCheckRunsCycleWhenStale(t *testing.T) {
	cycle := &stubCycle{needsUpdate: true, ran: make(chan struct{})}
	sched := &stubSched{next: time.Now().Add(6 * time.Hour)}
	r := newTestServer(&stubStore{}, &stubAssistant{}, cycle, sched)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scheduler/initial-check", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-cycle.ran:
	case <-time.After(time.Second):
		t.Fatal("initial check did not run the cycle")
	}

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, true, payload["needs_update"])
	require.Contains(t, payload["message"], "Initial update completed.")
}

func TestHandleInitialCheckUpToDate(t *testing.T) {
	sched := &stubSched{next: time.Now().Add(90 * time.Minute)}
	r := newTestServer(&stubStore{}, &stubAssistant{}, &stubCycle{needsUpdate: false}, sched)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scheduler/initial-check", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, false, payload["needs_update"])
	require.Contains(t, payload["message"], "Data is up to date.")
	require.Equal(t, float64(1), payload["hours_until_next"])
}

func TestHandleRecentQueries(t *testing.T) {
	store := &stubStore{queries: []catalog.QueryRecord{
		{Query: "q1", Response: "r1"},
		{Query: "q2", Response: "r2"},
		{Query: "q3", Response: "r3"},
	}}
	r := newTestServer(store, &stubAssistant{}, &stubCycle{}, &stubSched{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/queries/recent?limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var records []catalog.QueryRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 2)
}

func TestHandleDebugDatabase(t *testing.T) {
	store := &stubStore{dates: []string{"2025-08-30"}}
	r := newTestServer(store, &stubAssistant{}, &stubCycle{}, &stubSched{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/database", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, float64(1), payload["total_documents"])
}
