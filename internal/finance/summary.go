package finance

// Summary metric names, in table order. The viewer looks metrics up by these
// exact strings.
const (
	MetricFinalValue  = "Final Value"
	MetricTotalPnL    = "Total PnL"
	MetricCAGR        = "Annualized Return (CAGR)"
	MetricVolatility  = "Volatility (Annualized)"
	MetricSharpe      = "Sharpe Ratio"
	MetricBeta        = "Beta vs Benchmark"
	MetricMaxDrawdown = "Maximum Drawdown"
)

// MetricNames lists every summary metric in table order.
var MetricNames = []string{
	MetricFinalValue,
	MetricTotalPnL,
	MetricCAGR,
	MetricVolatility,
	MetricSharpe,
	MetricBeta,
	MetricMaxDrawdown,
}

// PortfolioStats are the full-horizon scalars behind the summary table.
type PortfolioStats struct {
	InitialValue float64
	FinalValue   float64
	TotalPnL     float64
	CAGR         float64
	Volatility   float64 // annualized
	SharpeRatio  float64
	Beta         float64
	MaxDrawdown  float64 // fraction <= 0
}

// SummaryMetrics returns the stats as the ordered summary table.
func (s PortfolioStats) SummaryMetrics() []Metric {
	return []Metric{
		{MetricFinalValue, s.FinalValue},
		{MetricTotalPnL, s.TotalPnL},
		{MetricCAGR, s.CAGR},
		{MetricVolatility, s.Volatility},
		{MetricSharpe, s.SharpeRatio},
		{MetricBeta, s.Beta},
		{MetricMaxDrawdown, s.MaxDrawdown},
	}
}

// MetricValue looks up a metric by name.
func MetricValue(metrics []Metric, name string) (float64, bool) {
	for _, m := range metrics {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}
