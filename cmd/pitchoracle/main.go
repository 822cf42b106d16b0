package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rewired-gh/pitchoracle/internal/config"
	"github.com/rewired-gh/pitchoracle/internal/gamma"
	"github.com/rewired-gh/pitchoracle/internal/gemini"
	"github.com/rewired-gh/pitchoracle/internal/logger"
	"github.com/rewired-gh/pitchoracle/internal/server"
	"github.com/rewired-gh/pitchoracle/internal/store"
	"github.com/rewired-gh/pitchoracle/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Best-effort .env load for local development (GEMINI_API_KEY and friends)
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	state := store.New()

	fetcher := gamma.NewClient(
		cfg.Gamma.BaseURL,
		cfg.Gamma.Relays,
		cfg.Gamma.Tag,
		cfg.Gamma.Limit,
		cfg.Gamma.Timeout,
	)

	analyzer := gemini.NewClient(
		cfg.Gemini.BaseURL,
		cfg.Gemini.APIKey,
		cfg.Gemini.ResearchModel,
		cfg.Gemini.AnalysisModel,
		cfg.Gemini.Timeout,
	)
	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; analysis requests will fail upstream")
	}

	var notifier server.Notifier
	if cfg.Telegram.Enabled {
		tg, err := telegram.NewClient(
			cfg.Telegram.BotToken,
			cfg.Telegram.ChatID,
			cfg.Telegram.MinEdge,
			cfg.Telegram.MaxRetries,
			cfg.Telegram.RetryDelayBase,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		notifier = tg
		logger.Info("Telegram value alerts enabled (min edge: %.1f%%)", cfg.Telegram.MinEdge)
	} else {
		logger.Debug("Telegram value alerts disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping server...")
		cancel()
	}()

	// Populate the dashboard before the first request lands
	events, source, advisory := fetcher.FetchEvents(ctx)
	state.ReplaceEvents(events, source, advisory)
	logger.Info("Initial fetch complete: %d events (source=%s)", len(events), source)

	srv := server.New(state, fetcher, analyzer, notifier)
	logger.Info("Dashboard API listening on %s", cfg.Server.Addr)
	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		logger.Fatal("Server error: %v", err)
	}
	logger.Info("Service stopped")
}
