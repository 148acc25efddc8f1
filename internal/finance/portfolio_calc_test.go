package finance

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func days(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = day(i)
	}
	return out
}

func frameOf(cols map[string][]float64, order ...string) *Frame {
	values := map[string]map[time.Time]float64{}
	for _, name := range order {
		values[name] = map[time.Time]float64{}
		for i, v := range cols[name] {
			if !math.IsNaN(v) {
				values[name][day(i)] = v
			}
		}
	}
	return NewFrame(order, values)
}

func seriesOf(vals ...float64) Series {
	return Series{Dates: days(len(vals)), Values: vals}
}

func TestComputeReturnsDropsFirstRow(t *testing.T) {
	prices := frameOf(map[string][]float64{
		"A": {100, 110, 99, 99, 108.9},
		"B": {50, 50, 55, 44, 44},
	}, "A", "B")

	ret := ComputeReturns(prices)
	require.Equal(t, prices.Len()-1, ret.Len())
	assert.NotContains(t, ret.Dates, day(0))
	assert.Equal(t, day(1), ret.Dates[0])

	a, _ := ret.Column("A")
	assert.InDeltaSlice(t, []float64{0.1, -0.1, 0, 0.1}, a.Values, 1e-12)
	b, _ := ret.Column("B")
	assert.InDeltaSlice(t, []float64{0, 0.1, -0.2, 0}, b.Values, 1e-12)
}

func TestComputeReturnsSkipsMissing(t *testing.T) {
	prices := frameOf(map[string][]float64{
		"A": {100, 101, 102, 103},
		"B": {10, math.NaN(), 11, 12},
	}, "A", "B")
	ret := ComputeReturns(prices)
	// Rows touching the missing B price cannot be resolved.
	assert.Equal(t, []time.Time{day(3)}, ret.Dates)

	assert.Zero(t, ComputeReturns(frameOf(map[string][]float64{"A": {1}}, "A")).Len())
}

func TestComputePortfolioSeriesCompounds(t *testing.T) {
	returns := frameOf(map[string][]float64{
		"A": {0.10, -0.05, 0.02},
		"B": {0.00, 0.05, -0.01},
	}, "A", "B")

	ps, err := ComputePortfolioSeries(returns, map[string]float64{"A": 0.6, "B": 0.4}, 1000)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.06, -0.01, 0.008}, ps.Returns.Values, 1e-12)
	assert.Equal(t, returns.Dates, ps.Value.Dates)
	assert.InDelta(t, 1000*(1+ps.Returns.Values[0]), ps.Value.Values[0], 1e-9)
	for i := 1; i < ps.Value.Len(); i++ {
		assert.InDelta(t, ps.Value.Values[i-1]*(1+ps.Returns.Values[i]), ps.Value.Values[i], 1e-9)
		assert.InDelta(t, ps.Value.Values[i]-1000, ps.PnL.Values[i], 1e-9)
	}
}

func TestComputePortfolioSeriesErrors(t *testing.T) {
	returns := frameOf(map[string][]float64{"A": {0.1}}, "A")

	_, err := ComputePortfolioSeries(returns, map[string]float64{"Z": 1}, 1000)
	assert.ErrorIs(t, err, ErrDataUnavailable)

	_, err = ComputePortfolioSeries(&Frame{}, map[string]float64{"A": 1}, 1000)
	assert.ErrorIs(t, err, ErrDataUnavailable)

	_, err = ComputePortfolioSeries(returns, map[string]float64{"A": 1}, 0)
	assert.Error(t, err)
}

func TestComputeRiskMetrics(t *testing.T) {
	r := seriesOf(0.01, -0.02, 0.03, 0.00)
	m := ComputeRiskMetrics(r, 0.02)

	mean := 0.005
	variance := (0.005*0.005 + 0.025*0.025 + 0.025*0.025 + 0.005*0.005) / 3
	vol := math.Sqrt(variance) * math.Sqrt(252)
	assert.InDelta(t, vol, m.Volatility, 1e-12)
	assert.InDelta(t, (mean*252-0.02)/vol, m.SharpeRatio, 1e-9)
}

func TestComputeRiskMetricsDegenerate(t *testing.T) {
	flat := ComputeRiskMetrics(seriesOf(0.25, 0.25, 0.25), 0.02)
	assert.Zero(t, flat.Volatility)
	assert.True(t, math.IsNaN(flat.SharpeRatio))

	short := ComputeRiskMetrics(seriesOf(0.01), 0.02)
	assert.True(t, math.IsNaN(short.Volatility))
	assert.True(t, math.IsNaN(short.SharpeRatio))
}

func TestComputeBeta(t *testing.T) {
	x := seriesOf(0.01, -0.02, 0.03, 0.005, -0.01)

	beta, err := ComputeBeta(x, x)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, beta, 1e-12)

	double := seriesOf(0.02, -0.04, 0.06, 0.01, -0.02)
	beta, err = ComputeBeta(double, x)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, beta, 1e-12)

	// Zero covariance: orthogonal around their means.
	p := seriesOf(1, -1, 1, -1)
	b := seriesOf(1, 1, -1, -1)
	beta, err = ComputeBeta(p, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, beta, 1e-12)
}

func TestComputeBetaAlignsDates(t *testing.T) {
	p := Series{Dates: []time.Time{day(0), day(1), day(2), day(5)}, Values: []float64{0.01, 0.02, -0.01, 0.5}}
	b := Series{Dates: []time.Time{day(1), day(2), day(3)}, Values: []float64{0.01, -0.005, 0.2}}

	beta, err := ComputeBeta(p, b)
	require.NoError(t, err)
	// Only day 1 and day 2 overlap: cov/var of two points is the slope.
	assert.InDelta(t, (0.02-(-0.01))/(0.01-(-0.005)), beta, 1e-9)

	_, err = ComputeBeta(p, Series{Dates: []time.Time{day(1)}, Values: []float64{0.01}})
	assert.ErrorIs(t, err, ErrInsufficientOverlap)

	flat, err := ComputeBeta(seriesOf(0.1, 0.2), seriesOf(0.01, 0.01))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(flat))
}

func TestComputeDrawdown(t *testing.T) {
	v := seriesOf(100, 110, 99, 105, 121, 90.75)
	dd := ComputeDrawdown(v)

	assert.InDeltaSlice(t, []float64{0, 0, -0.1, -0.1 + 6.0/110, 0, -0.25}, dd.Values, 1e-12)
	for _, x := range dd.Values {
		assert.LessOrEqual(t, x, 0.0)
	}
	assert.Equal(t, v.Dates, dd.Dates)
	assert.InDelta(t, -0.25, MaxDrawdown(dd), 1e-12)
	assert.True(t, math.IsNaN(MaxDrawdown(Series{})))
}

func TestComputeRollingSharpe(t *testing.T) {
	r := seriesOf(0.01, -0.02, 0.03, 0.00, 0.015, -0.005)
	const window = 3
	rs := ComputeRollingSharpe(r, window, 0.0001)

	require.Equal(t, r.Len(), rs.Len())
	for i := 0; i < window-1; i++ {
		assert.True(t, math.IsNaN(rs.Values[i]), "index %d should be undefined", i)
	}
	for i := window - 1; i < rs.Len(); i++ {
		assert.False(t, math.IsNaN(rs.Values[i]), "index %d should be defined", i)
	}

	w := r.Values[0:3]
	mean := (w[0] + w[1] + w[2]) / 3
	sd := math.Sqrt(((w[0]-mean)*(w[0]-mean) + (w[1]-mean)*(w[1]-mean) + (w[2]-mean)*(w[2]-mean)) / 2)
	assert.InDelta(t, (mean-0.0001)/sd*math.Sqrt(252), rs.Values[2], 1e-9)
}

func TestComputeCAGR(t *testing.T) {
	assert.InDelta(t, 0.1, ComputeCAGR(121, 100, 2), 1e-12)
	assert.InDelta(t, math.Pow(2, 0.2)-1, ComputeCAGR(200000, 100000, 5), 1e-12)
	assert.True(t, math.IsNaN(ComputeCAGR(100, 100, 0)))
	assert.True(t, math.IsNaN(ComputeCAGR(100, 0, 1)))
}

func TestHorizonYears(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1461)
	assert.InDelta(t, 4.0, HorizonYears([]time.Time{start, end}), 1e-9)
	assert.Zero(t, HorizonYears([]time.Time{start}))
}
