// Command updater runs one daily analysis cycle and exits. It exists for
// cron-style deployments where the API server's built-in scheduler is
// disabled or unavailable.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sharanm/rare-disease-radar/backend/internal/catalog"
	"github.com/sharanm/rare-disease-radar/backend/internal/config"
	"github.com/sharanm/rare-disease-radar/backend/internal/gemini"
	"github.com/sharanm/rare-disease-radar/backend/internal/logger"
	"github.com/sharanm/rare-disease-radar/backend/internal/research"
	"github.com/sharanm/rare-disease-radar/backend/internal/sources"
	"github.com/sharanm/rare-disease-radar/backend/internal/updater"
)

func main() {
	log := logger.New("updater")
	cfg, err := config.LoadUpdater()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	store, err := catalog.New(connectCtx, cfg.MongoURI, cfg.MongoDatabase, log)
	cancel()
	if err != nil {
		log.Error("init catalog", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error("close catalog", slog.Any("err", err))
		}
	}()

	synth, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Error("init gemini", slog.Any("err", err))
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: cfg.FetchTimeout}
	registry := []sources.Source{
		sources.NewPubMed(cfg.PubMedAPIKey, cfg.MaxResults, httpClient),
		sources.NewClinicalTrials(cfg.MaxResults, httpClient),
		sources.NewMedRxiv(httpClient),
		sources.NewCDC(),
		sources.NewNIH(cfg.MaxResults, httpClient),
	}

	assistant := research.NewAssistant(registry, synth, log)
	cycle := updater.New(assistant, store, log)

	cycleCtx, cancelCycle := context.WithTimeout(ctx, cfg.CycleTimeout)
	defer cancelCycle()

	log.Info("running daily cycle", slog.Duration("timeout", cfg.CycleTimeout))
	if err := cycle.RunCycle(cycleCtx); err != nil {
		log.Error("cycle failed", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("cycle complete")
}
