package finance

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization base for daily statistics.
const TradingDaysPerYear = 252.0

// ComputeReturns derives simple day-over-day returns. The first row is
// dropped and so is any row with an unresolved value.
func ComputeReturns(prices *Frame) *Frame {
	if prices.Len() < 2 {
		return &Frame{Columns: append([]string(nil), prices.Columns...), Data: make([][]float64, len(prices.Columns))}
	}
	out := &Frame{
		Dates:   append([]time.Time(nil), prices.Dates[1:]...),
		Columns: append([]string(nil), prices.Columns...),
		Data:    make([][]float64, len(prices.Columns)),
	}
	for c := range prices.Columns {
		col := prices.Data[c]
		out.Data[c] = make([]float64, len(col)-1)
		for r := 1; r < len(col); r++ {
			prev := col[r-1]
			ret := (col[r] - prev) / prev
			if prev == 0 || !isFinite(ret) {
				ret = nan
			}
			out.Data[c][r-1] = ret
		}
	}
	return out.DropMissing()
}

// ComputePortfolioSeries combines per-ticker returns with static weights and
// compounds the result from initialValue. Value on the first date is
// initialValue * (1 + return on that date).
func ComputePortfolioSeries(returns *Frame, weights map[string]float64, initialValue float64) (PortfolioSeries, error) {
	if returns == nil || returns.Len() == 0 {
		return PortfolioSeries{}, fmt.Errorf("%w: no return observations", ErrDataUnavailable)
	}
	if len(weights) == 0 {
		return PortfolioSeries{}, fmt.Errorf("no portfolio weights provided")
	}
	if initialValue <= 0 || !isFinite(initialValue) {
		return PortfolioSeries{}, fmt.Errorf("invalid initial investment: %f", initialValue)
	}

	for sym := range weights {
		if returns.ColumnIndex(sym) < 0 {
			return PortfolioSeries{}, fmt.Errorf("%w: no returns for %s", ErrDataUnavailable, sym)
		}
	}
	// Sum in column order so results do not depend on map iteration.
	type leg struct {
		col    int
		weight float64
	}
	var legs []leg
	for c, sym := range returns.Columns {
		if w, ok := weights[sym]; ok {
			legs = append(legs, leg{col: c, weight: w})
		}
	}

	n := returns.Len()
	dates := append([]time.Time(nil), returns.Dates...)
	portReturns := make([]float64, n)
	values := make([]float64, n)
	pnl := make([]float64, n)

	value := initialValue
	for day := 0; day < n; day++ {
		r := 0.0
		for _, l := range legs {
			r += l.weight * returns.Data[l.col][day]
		}
		portReturns[day] = r
		value *= 1 + r
		if !isFinite(value) {
			return PortfolioSeries{}, fmt.Errorf("invalid portfolio value on %s: %f", dates[day].Format("2006-01-02"), value)
		}
		values[day] = value
		pnl[day] = value - initialValue
	}

	return PortfolioSeries{
		Returns: Series{Name: "Portfolio", Dates: dates, Values: portReturns},
		Value:   Series{Name: "Portfolio Value", Dates: append([]time.Time(nil), dates...), Values: values},
		PnL:     Series{Name: "Portfolio PnL", Dates: append([]time.Time(nil), dates...), Values: pnl},
	}, nil
}

// ComputeRiskMetrics returns annualized volatility and the Sharpe ratio over
// the whole series. Zero volatility or fewer than two observations yield NaN.
func ComputeRiskMetrics(returns Series, riskFreeRate float64) RiskMetrics {
	if returns.Len() < 2 {
		return RiskMetrics{Volatility: nan, SharpeRatio: nan}
	}
	mean, std := stat.MeanStdDev(returns.Values, nil)
	vol := std * math.Sqrt(TradingDaysPerYear)
	sharpe := nan
	if vol > 0 {
		sharpe = (mean*TradingDaysPerYear - riskFreeRate) / vol
	}
	return RiskMetrics{Volatility: vol, SharpeRatio: sharpe}
}

// ComputeBeta aligns both series on common dates and returns
// Cov(portfolio, benchmark) / Var(benchmark) from sample statistics.
func ComputeBeta(portfolio, benchmark Series) (float64, error) {
	pos := make(map[time.Time]int, benchmark.Len())
	for i, d := range benchmark.Dates {
		pos[d] = i
	}
	var x, y []float64
	for i, d := range portfolio.Dates {
		j, ok := pos[d]
		if !ok {
			continue
		}
		if math.IsNaN(portfolio.Values[i]) || math.IsNaN(benchmark.Values[j]) {
			continue
		}
		x = append(x, portfolio.Values[i])
		y = append(y, benchmark.Values[j])
	}
	if len(x) < 2 {
		return nan, fmt.Errorf("%w: %d common dates between portfolio and benchmark", ErrInsufficientOverlap, len(x))
	}
	variance := stat.Variance(y, nil)
	if variance == 0 {
		return nan, nil
	}
	return stat.Covariance(x, y, nil) / variance, nil
}

// ComputeDrawdown returns (value - running max) / running max at each date.
// The running maximum spans the whole history.
func ComputeDrawdown(value Series) Series {
	out := Series{Name: "Drawdown", Dates: append([]time.Time(nil), value.Dates...), Values: make([]float64, value.Len())}
	peak := math.Inf(-1)
	for i, v := range value.Values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			out.Values[i] = (v - peak) / peak
		} else {
			out.Values[i] = 0
		}
	}
	return out
}

// MaxDrawdown is the deepest drawdown, a value <= 0.
func MaxDrawdown(drawdown Series) float64 {
	if drawdown.Len() == 0 {
		return nan
	}
	worst := 0.0
	for _, v := range drawdown.Values {
		if v < worst {
			worst = v
		}
	}
	return worst
}

// ComputeRollingSharpe computes the Sharpe ratio over each trailing window of
// returns. The first window-1 entries are NaN.
func ComputeRollingSharpe(returns Series, window int, riskFreeDaily float64) Series {
	out := Series{Name: "Rolling Sharpe", Dates: append([]time.Time(nil), returns.Dates...), Values: make([]float64, returns.Len())}
	for i := range out.Values {
		out.Values[i] = nan
	}
	if window < 2 {
		return out
	}
	for end := window; end <= returns.Len(); end++ {
		mean, std := stat.MeanStdDev(returns.Values[end-window:end], nil)
		if std > 0 {
			out.Values[end-1] = (mean - riskFreeDaily) / std * math.Sqrt(TradingDaysPerYear)
		}
	}
	return out
}

// ComputeCAGR is (final/initial)^(1/years) - 1. Non-positive inputs yield NaN.
func ComputeCAGR(finalValue, initialValue, years float64) float64 {
	if years <= 0 || initialValue <= 0 || finalValue < 0 {
		return nan
	}
	return math.Pow(finalValue/initialValue, 1/years) - 1
}

// HorizonYears is the elapsed time between the first and last date in
// years of 365.25 days.
func HorizonYears(dates []time.Time) float64 {
	if len(dates) < 2 {
		return 0
	}
	return dates[len(dates)-1].Sub(dates[0]).Hours() / 24 / 365.25
}
