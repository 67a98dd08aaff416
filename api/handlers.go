package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sharanm/rare-disease-radar/backend/internal/catalog"
)

// analysisStore is the slice of the catalog the handlers need.
type analysisStore interface {
	Ping(ctx context.Context) error
	Dates(ctx context.Context) ([]string, error)
	LatestSummaries(ctx context.Context) (*catalog.DailySummaries, error)
	SummariesByDate(ctx context.Context, date string) (*catalog.DailySummaries, error)
	Statistics(ctx context.Context) (*catalog.Stats, error)
	StoreQueryResult(ctx context.Context, query, response string, metadata map[string]any) error
	RecentQueries(ctx context.Context, limit int) ([]catalog.QueryRecord, error)
	Dump(ctx context.Context) (map[string]any, error)
}

// queryRunner answers ad-hoc questions through the orchestrator.
type queryRunner interface {
	RunQuery(ctx context.Context, query string) (string, error)
}

// cycleRunner runs the daily update cycle.
type cycleRunner interface {
	RunCycle(ctx context.Context) error
	NeedsUpdate(ctx context.Context) (bool, error)
}

// schedulerInfo exposes scheduler state for the status endpoints.
type schedulerInfo interface {
	Running() bool
	NextRun() time.Time
}

type server struct {
	log       *slog.Logger
	store     analysisStore
	assistant queryRunner
	cycle     cycleRunner
	sched     schedulerInfo
}

type errorResponse struct {
	Error string `json:"error"`
}

type queryRequest struct {
	Text string `json:"text"`
}

type queryResponse struct {
	Query     string `json:"query"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.store.Dates(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, dates)
}

func (s *server) handleLatest(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.LatestSummaries(r.Context())
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no analyses stored yet"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

func (s *server) handleByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	summaries, err := s.store.SummariesByDate(r.Context(), date)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("no analyses found for date: %s", date)})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Statistics(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text must not be empty"})
		return
	}

	response, err := s.assistant.RunQuery(r.Context(), text)
	if err != nil {
		s.log.Error("query run failed", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	now := time.Now().UTC()
	metadata := map[string]any{
		"timestamp":  now.Format(time.RFC3339),
		"query_type": "specific",
	}
	if err := s.store.StoreQueryResult(r.Context(), text, response, metadata); err != nil {
		// The answer is already in hand; a history write failure only loses the log entry.
		s.log.Warn("store query result", slog.Any("err", err))
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Query:     text,
		Response:  response,
		Timestamp: now.Format(time.RFC3339),
	})
}

func (s *server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	go func() {
		// Detached from the request: the ack returns immediately while the
		// cycle runs against its own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		if err := s.cycle.RunCycle(ctx); err != nil {
			s.log.Error("manual cycle failed", slog.Any("err", err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"message":   "Update initiated",
		"success":   true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"details":   "Updates for all analysis types have been queued",
	})
}

func (s *server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	status := "stopped"
	if s.sched.Running() {
		status = "running"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"next_run": s.sched.NextRun().Format(time.RFC3339),
	})
}

func (s *server) handleInitialCheck(w http.ResponseWriter, r *http.Request) {
	needsUpdate, err := s.cycle.NeedsUpdate(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	message := "Data is up to date. "
	if needsUpdate {
		s.log.Info("no analyses for today, running cycle before responding")
		if err := s.cycle.RunCycle(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		message = "Initial update completed. "
	}

	now := time.Now()
	next := s.sched.NextRun()
	until := next.Sub(now)
	message += fmt.Sprintf("Next update scheduled for %s", next.Format("2006-01-02 15:04:05"))

	writeJSON(w, http.StatusOK, map[string]any{
		"message":            message,
		"next_update":        next.Format(time.RFC3339),
		"hours_until_next":   int(until.Hours()),
		"minutes_until_next": int(until.Minutes()) % 60,
		"needs_update":       needsUpdate,
		"current_time":       now.UTC().Format(time.RFC3339),
	})
}

func (s *server) handleRecentQueries(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := s.store.RecentQueries(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *server) handleDebugDatabase(w http.ResponseWriter, r *http.Request) {
	dump, err := s.store.Dump(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, dump)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
