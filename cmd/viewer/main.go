package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"portfoliorisk/internal/artifact"
	"portfoliorisk/internal/config"
	"portfoliorisk/internal/infrastructure"
	"portfoliorisk/internal/openai"
	"portfoliorisk/internal/server"
	"portfoliorisk/internal/telegram"
	"portfoliorisk/internal/viewer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "viewer:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadViewer()
	if err != nil {
		return err
	}
	logger, err := infrastructure.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := artifact.NewCache(cfg.CacheSize, cfg.CacheTTL)
	var regen viewer.Regenerator
	if len(cfg.GeneratorCmd) > 0 {
		regen = viewer.NewCommandRegenerator(cfg.GeneratorCmd, logger.Named("regenerate"))
	}
	dash := viewer.New(cfg.ReportPath, cache, regen, logger.Named("dashboard"))
	if _, err := dash.Summary(); err != nil {
		// The report may not exist yet.
		logger.Warn("viewer: report not loaded yet", zap.String("path", cfg.ReportPath), zap.Error(err))
	} else {
		logger.Info("viewer: report loaded", zap.String("path", cfg.ReportPath))
	}

	var webhook http.HandlerFunc
	if cfg.TelegramToken != "" {
		var commentator telegram.Commentator
		if cfg.OpenAIKey != "" {
			commentator = openai.NewCommentator(cfg.OpenAIKey, cfg.OpenAIModel)
		}
		bot, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, dash, commentator, logger.Named("telegram"))
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		webhook = bot.WebhookHandler
		logger.Info("telegram: bot initialized", zap.String("webhook", cfg.WebhookPublicURL))
	}

	mux := server.NewHTTPMux(dash, webhook, logger.Named("http"))
	addr := ":" + cfg.Port
	logger.Info("http: listening", zap.String("addr", addr))
	if err := server.ListenAndServe(ctx, addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("viewer: stopped")
	return nil
}
