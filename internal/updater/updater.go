package updater

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sharanm/rare-disease-radar/backend/internal/research"
)

// analysisRunner produces a synthesis for one fixed analysis type.
type analysisRunner interface {
	RunAnalysis(ctx context.Context, typ research.AnalysisType) (string, error)
}

// analysisStore persists daily analyses keyed by (date, type).
type analysisStore interface {
	StoreDailyAnalysis(ctx context.Context, date, typ, summary string, metadata map[string]any) error
	HasDate(ctx context.Context, date string) (bool, error)
}

// Updater runs the daily analysis cycle: one orchestrated run per analysis
// type, each stored under today's date. Types fail independently; the cycle
// makes no atomicity promise across them, and a rerun for the same date is
// an idempotent upsert.
type Updater struct {
	runner analysisRunner
	store  analysisStore
	log    *slog.Logger
	now    func() time.Time
}

// New wires a daily updater.
func New(runner analysisRunner, store analysisStore, log *slog.Logger) *Updater {
	return &Updater{runner: runner, store: store, log: log, now: time.Now}
}

// RunCycle updates every analysis type for today. It returns an error only
// when not a single type could be stored; partial failure is logged and
// tolerated.
func (u *Updater) RunCycle(ctx context.Context) error {
	runID := uuid.NewString()
	started := u.now()
	date := started.Format("2006-01-02")

	u.log.Info("daily cycle starting", slog.String("date", date), slog.String("run_id", runID))

	stored := 0
	for _, typ := range research.AnalysisTypes() {
		analysis, err := u.runner.RunAnalysis(ctx, typ)
		if err != nil {
			u.log.Error("analysis run failed", slog.String("type", string(typ)), slog.Any("err", err))
			continue
		}
		if analysis == "" {
			u.log.Warn("no analysis content generated", slog.String("type", string(typ)))
			continue
		}

		metadata := map[string]any{
			"updated_at":    started.Format(time.RFC3339),
			"date":          date,
			"analysis_type": string(typ),
			"run_id":        runID,
		}
		if err := u.store.StoreDailyAnalysis(ctx, date, string(typ), analysis, metadata); err != nil {
			u.log.Error("store analysis failed", slog.String("type", string(typ)), slog.Any("err", err))
			continue
		}
		stored++
	}

	if stored == 0 {
		return fmt.Errorf("daily cycle for %s stored no analyses", date)
	}

	u.log.Info("daily cycle completed",
		slog.String("date", date),
		slog.Int("stored", stored),
		slog.Int("total", len(research.AnalysisTypes())),
	)
	return nil
}

// NeedsUpdate reports whether today has no stored analyses yet.
func (u *Updater) NeedsUpdate(ctx context.Context) (bool, error) {
	date := u.now().Format("2006-01-02")
	has, err := u.store.HasDate(ctx, date)
	if err != nil {
		return false, err
	}
	return !has, nil
}
