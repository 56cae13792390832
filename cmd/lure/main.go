package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/decoylab/lure/internal/agent"
	"github.com/decoylab/lure/internal/api"
	"github.com/decoylab/lure/internal/config"
	"github.com/decoylab/lure/internal/dispatch"
	"github.com/decoylab/lure/internal/events"
	"github.com/decoylab/lure/internal/extractor"
	"github.com/decoylab/lure/internal/gate"
	"github.com/decoylab/lure/internal/gemini"
	"github.com/decoylab/lure/internal/intel"
	"github.com/decoylab/lure/internal/processor"
	"github.com/decoylab/lure/internal/session"
	"github.com/decoylab/lure/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("lure starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Gemini client — shared by the reply persona and the extractor.
	if cfg.GeminiAPIKey == "" {
		slog.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}
	llm := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModels, slog.Default())
	slog.Info("gemini client ready", "models", len(cfg.GeminiModels))

	// Callback target for reports.
	if cfg.CallbackURL == "" {
		slog.Error("LURE_CALLBACK_URL is required")
		os.Exit(1)
	}
	dispatcher := dispatch.New(cfg.CallbackURL, slog.Default()).
		WithRetryPolicy(cfg.DispatchAttempts, cfg.DispatchBackoff, cfg.DispatchBackoffMax)

	// Report archive (optional — lure works without Postgres, just no audit trail).
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		dispatcher.WithArchive(db)
		slog.Info("report archive connected")
	} else {
		slog.Warn("DATABASE_URL not set — running without report archive")
	}

	// Event bus (optional — delivery signals are log-only without NATS).
	var bus *events.Client
	if cfg.NatsURL != "" {
		var err error
		bus, err = events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		dispatcher.WithNotifier(bus)
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set — running without delivery signals")
	}

	responder := agent.NewResponder(llm, slog.Default())
	ext := extractor.New(llm, slog.Default())
	aggregator := intel.NewAggregator(ext, slog.Default())
	sessions := session.NewStore()

	proc := processor.New(sessions, responder, aggregator, dispatcher, slog.Default()).
		WithThresholds(gate.Thresholds{MinTurns: cfg.ReportMinTurns, MinIntel: cfg.ReportMinIntel}).
		WithReplyTimeout(cfg.ReplyTimeout)
	if bus != nil {
		proc.WithNotifier(bus)
	}

	srv := api.NewServer(cfg.Port, proc, cfg.APIKey, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("lure ready", "port", cfg.Port,
		"min_turns", cfg.ReportMinTurns,
		"min_intel", cfg.ReportMinIntel,
	)

	// Graceful shutdown: drain in-flight reporting before exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	proc.Drain()
	slog.Info("lure stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
