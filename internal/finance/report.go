package finance

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// BuildReport runs the whole generator pipeline: two price fetches (tickers,
// then benchmark), returns, portfolio series and the risk metrics. Any error
// aborts the run.
func BuildReport(ctx context.Context, src PriceSource, cfg *PortfolioConfig, logger *zap.Logger) (*Report, error) {
	if cfg == nil {
		return nil, fmt.Errorf("portfolio config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sum := sumWeights(cfg.Assets); math.Abs(sum-1) > 1e-6 {
		logger.Warn("portfolio weights do not sum to 1", zap.Float64("sum", sum))
	}

	symbols := cfg.symbols()
	logger.Info("fetching prices", zap.Strings("symbols", symbols), zap.Time("start", cfg.Start), zap.Time("end", cfg.End))
	prices, err := FetchPrices(ctx, src, symbols, cfg.Start, cfg.End)
	if err != nil {
		return nil, err
	}
	logger.Info("prices fetched", zap.Int("rows", prices.Len()))

	logger.Info("fetching benchmark", zap.String("symbol", cfg.Benchmark))
	bench, err := FetchPrices(ctx, src, []string{cfg.Benchmark}, cfg.Start, cfg.End)
	if err != nil {
		return nil, err
	}
	logger.Info("benchmark fetched", zap.Int("rows", bench.Len()))

	returns := ComputeReturns(prices)
	portfolio, err := ComputePortfolioSeries(returns, cfg.weights(), cfg.InitialValue)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate portfolio: %w", err)
	}

	benchReturns, _ := ComputeReturns(bench).Column(cfg.Benchmark)
	beta, err := ComputeBeta(portfolio.Returns, benchReturns)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate beta: %w", err)
	}

	risk := ComputeRiskMetrics(portfolio.Returns, cfg.RiskFreeRate)
	drawdown := ComputeDrawdown(portfolio.Value)
	rolling := ComputeRollingSharpe(portfolio.Returns, cfg.RollingWindow, cfg.RiskFreeRate/TradingDaysPerYear)

	horizon := cfg.HorizonYears
	if horizon == 0 {
		horizon = HorizonYears(portfolio.Value.Dates)
	}
	final := portfolio.Value.Last()
	stats := PortfolioStats{
		InitialValue: cfg.InitialValue,
		FinalValue:   final,
		TotalPnL:     final - cfg.InitialValue,
		CAGR:         ComputeCAGR(final, cfg.InitialValue, horizon),
		Volatility:   risk.Volatility,
		SharpeRatio:  risk.SharpeRatio,
		Beta:         beta,
		MaxDrawdown:  MaxDrawdown(drawdown),
	}
	logger.Info("metrics computed",
		zap.Float64("final_value", stats.FinalValue),
		zap.Float64("cagr", stats.CAGR),
		zap.Float64("horizon_years", horizon),
		zap.Float64("volatility", stats.Volatility),
		zap.Float64("sharpe", stats.SharpeRatio),
		zap.Float64("beta", stats.Beta),
		zap.Float64("max_drawdown", stats.MaxDrawdown),
	)

	return &Report{
		Prices:        prices.LeftJoin(bench),
		Returns:       returns.WithSeries(portfolio.Returns),
		Value:         portfolio.Value,
		Drawdown:      drawdown,
		RollingSharpe: rolling,
		Metrics:       stats.SummaryMetrics(),
	}, nil
}

func sumWeights(assets []WeightedAsset) float64 {
	sum := 0.0
	for _, a := range assets {
		sum += a.Weight
	}
	return sum
}
