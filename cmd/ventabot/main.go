package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ventabot/ventabot/internal/ai"
	"github.com/ventabot/ventabot/internal/commerce"
	"github.com/ventabot/ventabot/internal/config"
	"github.com/ventabot/ventabot/internal/dispatch"
	"github.com/ventabot/ventabot/internal/engine"
	"github.com/ventabot/ventabot/internal/history"
	"github.com/ventabot/ventabot/internal/intent"
	"github.com/ventabot/ventabot/internal/router"
	"github.com/ventabot/ventabot/internal/server"
	"github.com/ventabot/ventabot/internal/session"
	"github.com/ventabot/ventabot/internal/session/memory"
	"github.com/ventabot/ventabot/internal/session/sqlite"
	"github.com/ventabot/ventabot/internal/telemetry"
	"github.com/ventabot/ventabot/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdown, err := telemetry.InitTracer("ventabot", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	var store session.Store
	switch cfg.Storage.Type {
	case "sqlite":
		s, err := sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open session store: %v", err)
		}
		defer s.Close()
		store = s
	default:
		store = memory.New()
	}
	logger.Info("session store ready", slog.String("type", cfg.Storage.Type))

	var collab ai.Collaborator
	if cfg.AI.BaseURL != "" {
		collab = ai.NewClient(cfg.AI.BaseURL,
			ai.WithModel(cfg.AI.Model),
			ai.WithAPIKey(cfg.AI.APIKey))
	} else {
		logger.Warn("no AI base URL configured, running deterministic-only")
	}

	var api commerce.API
	if cfg.Commerce.BaseURL != "" {
		api = commerce.NewHTTPClient(cfg.Commerce.BaseURL, cfg.Commerce.APIKey)
	} else {
		logger.Warn("no commerce base URL configured, using in-memory fake")
		api = commerce.NewFake()
	}

	var sender transport.Sender
	if cfg.Transport.WebhookURL != "" {
		sender = transport.NewWebhookSender(cfg.Transport.WebhookURL, cfg.Transport.APIKey)
	} else {
		sender = transport.NewLogSender(logger)
	}

	detector := intent.NewDetector(intent.Config{
		Threshold:       cfg.Intent.Threshold,
		ContextBonus:    cfg.Intent.ContextBonus,
		ClassifyTimeout: cfg.AI.ClassifyTimeout,
	}, ai.KeywordClassifier{}, logger)

	rtr := router.New(detector, collab, api, router.Config{
		OrderParseTimeout: cfg.AI.OrderParseTimeout,
		GenerateTimeout:   cfg.AI.GenerateTimeout,
		History: history.Budget{
			MaxTurns:  cfg.History.MaxTurns,
			MaxTokens: cfg.History.MaxTokens,
		},
	}, logger)

	dispatcher := dispatch.New(api, store, logger)
	eng := engine.New(rtr, dispatcher, store, sender, logger)
	srv := server.New(cfg.Server.Port, cfg.Server.RequestTimeout, eng, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	case <-sigChan:
		logger.Info("shutdown signal received")
	}
}
