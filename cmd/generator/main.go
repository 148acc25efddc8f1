package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"portfoliorisk/internal/artifact"
	"portfoliorisk/internal/config"
	"portfoliorisk/internal/finance"
	"portfoliorisk/internal/infrastructure"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "generator:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadGenerator()
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

	src, err := finance.NewPriceSource(cfg.Provider)
	if err != nil {
		return err
	}
	logger.Info("generator: starting",
		zap.String("provider", cfg.Provider),
		zap.Strings("tickers", cfg.Symbols()),
		zap.String("benchmark", cfg.Benchmark))

	rep, err := finance.BuildReport(ctx, src, portfolioConfig(cfg), logger)
	if err != nil {
		logger.Error("generator: run aborted", zap.Error(err))
		return err
	}
	if err := artifact.Write(cfg.ReportPath, rep); err != nil {
		logger.Error("generator: export failed", zap.Error(err))
		return err
	}
	logger.Info("generator: report written", zap.String("path", cfg.ReportPath), zap.Int("rows", rep.Value.Len()))

	fmt.Printf("Advanced portfolio analysis exported to %s\n", cfg.ReportPath)
	return nil
}

func portfolioConfig(cfg config.Generator) *finance.PortfolioConfig {
	assets := make([]finance.WeightedAsset, len(cfg.Holdings))
	for i, h := range cfg.Holdings {
		assets[i] = finance.WeightedAsset{Symbol: h.Symbol, Weight: h.Weight}
	}
	return &finance.PortfolioConfig{
		Assets:        assets,
		Benchmark:     cfg.Benchmark,
		Start:         cfg.Start,
		End:           cfg.End,
		InitialValue:  cfg.InitialInvestment,
		RiskFreeRate:  cfg.RiskFreeRate,
		RollingWindow: cfg.RollingWindow,
		HorizonYears:  cfg.HorizonYears,
	}
}
