package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sharanm/rare-disease-radar/backend/internal/catalog"
	"github.com/sharanm/rare-disease-radar/backend/internal/config"
	"github.com/sharanm/rare-disease-radar/backend/internal/gemini"
	"github.com/sharanm/rare-disease-radar/backend/internal/logger"
	"github.com/sharanm/rare-disease-radar/backend/internal/research"
	"github.com/sharanm/rare-disease-radar/backend/internal/sources"
	"github.com/sharanm/rare-disease-radar/backend/internal/updater"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
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
	sched := updater.NewScheduler(cycle, cfg.UpdateHour, log)
	sched.Start(ctx)
	defer sched.Stop()

	srv := &server{log: log, store: store, assistant: assistant, cycle: cycle, sched: sched}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", srv.handleHealth)
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

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Query and initial-check responses wait on outbound fetches plus a
		// model call, so the write timeout has to be generous.
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
