package finance

import "time"

// Series is a single date-indexed numeric column. NaN marks an undefined
// value.
type Series struct {
	Name   string
	Dates  []time.Time
	Values []float64
}

func (s Series) Len() int { return len(s.Values) }

// Last returns the final value, or NaN for an empty series.
func (s Series) Last() float64 {
	if len(s.Values) == 0 {
		return nan
	}
	return s.Values[len(s.Values)-1]
}

// PortfolioSeries is the output of ComputePortfolioSeries. All three series
// share one date index.
type PortfolioSeries struct {
	Returns Series
	Value   Series
	PnL     Series
}

// RiskMetrics are the full-horizon volatility and Sharpe ratio.
type RiskMetrics struct {
	Volatility  float64 // annualized
	SharpeRatio float64
}

// Metric is one named scalar in the summary table.
type Metric struct {
	Name  string
	Value float64
}

// Report holds every entity produced by one generator run.
type Report struct {
	Prices        *Frame // tickers plus benchmark column
	Returns       *Frame // per-ticker daily returns plus the portfolio column
	Value         Series
	Drawdown      Series
	RollingSharpe Series
	Metrics       []Metric
}
