package finance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func syntheticConfig() *PortfolioConfig {
	return &PortfolioConfig{
		Assets:        []WeightedAsset{{Symbol: "A", Weight: 0.6}, {Symbol: "B", Weight: 0.4}},
		Benchmark:     "IDX",
		Start:         day(0),
		End:           day(6),
		InitialValue:  1000,
		RiskFreeRate:  0.02,
		RollingWindow: 3,
		HorizonYears:  5,
	}
}

func syntheticSource() *fakeSource {
	return &fakeSource{closes: map[string]map[time.Time]float64{
		"A":   closesOf(100, 102, 101, 105, 104, 108),
		"B":   closesOf(50, 49, 51, 50, 52, 53),
		"IDX": closesOf(4000, 4040, 4020, 4100, 4080, 4150),
	}}
}

func TestBuildReportSynthetic(t *testing.T) {
	src := syntheticSource()
	rep, err := BuildReport(context.Background(), src, syntheticConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	// One call for the tickers, one for the benchmark.
	assert.Equal(t, []string{"A", "B", "IDX"}, src.calls)

	require.Equal(t, 5, rep.Value.Len())
	assert.Equal(t, rep.Value.Dates, rep.Drawdown.Dates)
	assert.Equal(t, rep.Value.Dates, rep.RollingSharpe.Dates)
	assert.Equal(t, day(1), rep.Value.Dates[0])

	r0 := 0.6*0.02 + 0.4*(-0.02)
	assert.InDelta(t, 1000*(1+r0), rep.Value.Values[0], 1e-9)

	assert.Equal(t, []string{"A", "B", "IDX"}, rep.Prices.Columns)
	assert.Equal(t, 6, rep.Prices.Len())
	assert.Equal(t, []string{"A", "B", "Portfolio"}, rep.Returns.Columns)
	assert.Equal(t, 5, rep.Returns.Len())

	names := make([]string, len(rep.Metrics))
	for i, m := range rep.Metrics {
		names[i] = m.Name
	}
	assert.Equal(t, MetricNames, names)
	require.Len(t, rep.Metrics, 7)

	final := rep.Value.Last()
	v, _ := MetricValue(rep.Metrics, MetricFinalValue)
	assert.Equal(t, final, v)
	v, _ = MetricValue(rep.Metrics, MetricTotalPnL)
	assert.InDelta(t, final-1000, v, 1e-9)
	v, _ = MetricValue(rep.Metrics, MetricCAGR)
	assert.InDelta(t, ComputeCAGR(final, 1000, 5), v, 1e-12)
	v, _ = MetricValue(rep.Metrics, MetricMaxDrawdown)
	assert.LessOrEqual(t, v, 0.0)
}

func TestBuildReportDerivedHorizon(t *testing.T) {
	cfg := syntheticConfig()
	cfg.HorizonYears = 0
	rep, err := BuildReport(context.Background(), syntheticSource(), cfg, nil)
	require.NoError(t, err)

	final := rep.Value.Last()
	v, _ := MetricValue(rep.Metrics, MetricCAGR)
	assert.InDelta(t, ComputeCAGR(final, 1000, 4.0/365.25), v, 1e-9)
}

func TestBuildReportAborts(t *testing.T) {
	src := syntheticSource()
	delete(src.closes, "IDX")
	_, err := BuildReport(context.Background(), src, syntheticConfig(), nil)
	assert.ErrorIs(t, err, ErrDataUnavailable)

	// Benchmark trading on other days leaves nothing to align against.
	src = syntheticSource()
	src.closes["IDX"] = map[time.Time]float64{day(20): 1, day(21): 2, day(22): 3}
	_, err = BuildReport(context.Background(), src, syntheticConfig(), nil)
	assert.ErrorIs(t, err, ErrInsufficientOverlap)
}
