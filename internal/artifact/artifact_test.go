package artifact

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliorisk/internal/finance"
)

func day(i int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func series(name string, vals ...float64) finance.Series {
	s := finance.Series{Name: name, Values: vals}
	for i := range vals {
		s.Dates = append(s.Dates, day(i+1))
	}
	return s
}

func sampleReport() *finance.Report {
	nan := math.NaN()
	prices := &finance.Frame{
		Dates:   []time.Time{day(0), day(1), day(2), day(3)},
		Columns: []string{"A", "B", "^GSPC"},
		Data: [][]float64{
			{100, 102, 101, 105},
			{50, 49, 51, 50},
			{4000, 4040, nan, 4100},
		},
	}
	returns := &finance.Frame{
		Dates:   []time.Time{day(1), day(2), day(3)},
		Columns: []string{"A", "B", "Portfolio"},
		Data: [][]float64{
			{0.02, -0.00980392156862745, 0.039603960396039604},
			{-0.02, 0.04081632653061224, -0.0196078431372549},
			{0.004, 0.010442, 0.015919},
		},
	}
	stats := finance.PortfolioStats{
		FinalValue:  1030.4,
		TotalPnL:    30.4,
		CAGR:        0.0059,
		Volatility:  0.1234567891234,
		SharpeRatio: 1.75,
		Beta:        0.98,
		MaxDrawdown: -0.0123,
	}
	return &finance.Report{
		Prices:        prices,
		Returns:       returns,
		Value:         series("Portfolio Value", 1004, 1014.48, 1030.4),
		Drawdown:      series("Drawdown", 0, 0, 0),
		RollingSharpe: series("Rolling Sharpe", nan, nan, 2.5),
		Metrics:       stats.SummaryMetrics(),
	}
}

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports", "Portfolio_Analysis_Advanced.xlsx")
	require.NoError(t, Write(path, sampleReport()))
	return path
}

func TestWriteLoadRoundTrip(t *testing.T) {
	path := writeSample(t)
	wb, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{SheetValue, SheetReturns, SheetDrawdown, SheetRollingSharpe, SheetPrices, SheetSummary}, wb.SheetNames())

	value, err := wb.Series(SheetValue)
	require.NoError(t, err)
	assert.Equal(t, []string{"Portfolio Value"}, value.Columns)
	assert.Equal(t, []time.Time{day(1), day(2), day(3)}, value.Dates)
	assert.Equal(t, []float64{1004, 1014.48, 1030.4}, value.Data[0])

	returns, err := wb.Series(SheetReturns)
	require.NoError(t, err)
	assert.Equal(t, sampleReport().Returns.Data, returns.Data)

	// Undefined rolling values are written blank and dropped on read.
	rs, err := wb.Series(SheetRollingSharpe)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(3)}, rs.Dates)
	assert.Equal(t, []float64{2.5}, rs.Data[0])

	prices, err := wb.Series(SheetPrices)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "^GSPC"}, prices.Columns)
	assert.Equal(t, 3, prices.Len())
}

func TestMetricsRoundTrip(t *testing.T) {
	wb, err := Load(writeSample(t))
	require.NoError(t, err)

	got, err := wb.Metrics()
	require.NoError(t, err)
	want := sampleReport().Metrics
	require.Len(t, got, len(finance.MetricNames))
	for i, m := range want {
		assert.Equal(t, m.Name, got[i].Name)
		v, ok := finance.MetricValue(got, m.Name)
		require.True(t, ok, m.Name)
		assert.InDelta(t, m.Value, v, 1e-12, m.Name)
	}
}

func TestWriteBlankMetric(t *testing.T) {
	rep := sampleReport()
	rep.Metrics[4].Value = math.NaN()
	path := filepath.Join(t.TempDir(), "r.xlsx")
	require.NoError(t, Write(path, rep))

	wb, err := Load(path)
	require.NoError(t, err)
	got, err := wb.Metrics()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got[4].Value))
	assert.Equal(t, finance.MetricSharpe, got[4].Name)
}

func TestWriteOverwrites(t *testing.T) {
	path := writeSample(t)
	rep := sampleReport()
	rep.Value = series("Portfolio Value", 1, 2, 3)
	require.NoError(t, Write(path, rep))

	wb, err := Load(path)
	require.NoError(t, err)
	v, err := wb.Series(SheetValue)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, v.Data[0])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.ErrorIs(t, err, ErrArtifactMissing)

	junk := filepath.Join(t.TempDir(), "junk.xlsx")
	require.NoError(t, os.WriteFile(junk, []byte("not a workbook"), 0o644))
	_, err = Load(junk)
	assert.ErrorIs(t, err, ErrMalformedArtifact)

	wb := &Workbook{sheets: map[string]*Sheet{}}
	_, err = wb.Sheet(SheetDrawdown)
	assert.ErrorIs(t, err, ErrMalformedArtifact)
	_, err = wb.Metrics()
	assert.ErrorIs(t, err, ErrMalformedArtifact)
}

func TestMetricsMissingColumns(t *testing.T) {
	wb := &Workbook{sheets: map[string]*Sheet{
		SheetSummary: {Name: SheetSummary, Header: []string{"Name", "Amount"}, Rows: [][]string{{"Final Value", "1"}}},
	}}
	_, err := wb.Metrics()
	assert.ErrorIs(t, err, ErrMalformedArtifact)
}

func TestNormalizeDateColumnShapes(t *testing.T) {
	tests := []struct {
		name  string
		sheet *Sheet
	}{
		{"named date column", &Sheet{
			Header: []string{"Value", "Date"},
			Rows:   [][]string{{"1.5", "2024-03-02"}, {"2.5", "2024-03-03"}},
		}},
		{"unnamed index column", &Sheet{
			Header: []string{"Unnamed: 0", "Value"},
			Rows:   [][]string{{"2024-03-02 00:00:00", "1.5"}, {"2024-03-03 00:00:00", "2.5"}},
		}},
		{"blank header", &Sheet{
			Header: []string{"", "Value"},
			Rows:   [][]string{{"45353", "1.5"}, {"45354", "2.5"}},
		}},
		{"positional first column", &Sheet{
			Header: []string{"when", "Value"},
			Rows:   [][]string{{"03/02/2024", "1.5"}, {"03/03/2024", "2.5"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NormalizeForSeries(tt.sheet)
			require.NoError(t, err)
			assert.Equal(t, []string{"Value"}, f.Columns)
			assert.Equal(t, []time.Time{day(1), day(2)}, f.Dates)
			assert.Equal(t, []float64{1.5, 2.5}, f.Data[0])
		})
	}
}

func TestNormalizeDropsAndFilters(t *testing.T) {
	sh := &Sheet{
		Name:   "mixed",
		Header: []string{"Date", "Label", "X", "Y"},
		Rows: [][]string{
			{"2024-03-01", "a", "1", "10"},
			{"not a date", "b", "2", "20"},
			{"2024-03-03", "c", "", "30"},
			{"2024-03-04", "d", "4"},
			{"2024-03-05", "e", "5", "50"},
		},
	}
	f, err := NormalizeForSeries(sh)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, f.Columns)
	assert.Equal(t, []time.Time{day(0), day(4)}, f.Dates)
	assert.Equal(t, []float64{1, 5}, f.Data[0])
	assert.Equal(t, []float64{10, 50}, f.Data[1])
}

func TestNormalizeMalformed(t *testing.T) {
	tests := map[string]*Sheet{
		"nil":        nil,
		"no header":  {Name: "x"},
		"no dates":   {Name: "x", Header: []string{"Date", "V"}, Rows: [][]string{{"soon", "1"}}},
		"no numbers": {Name: "x", Header: []string{"Date", "V"}, Rows: [][]string{{"2024-03-01", "abc"}}},
	}
	for name, sh := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeForSeries(sh)
			assert.ErrorIs(t, err, ErrMalformedArtifact)
		})
	}
}

func TestFilterByDateRange(t *testing.T) {
	f := &finance.Frame{
		Dates:   []time.Time{day(0), day(1), day(2), day(3), day(4)},
		Columns: []string{"V"},
		Data:    [][]float64{{0, 1, 2, 3, 4}},
	}
	got := FilterByDateRange(f, day(1), day(3).Add(15*time.Hour))
	assert.Equal(t, []time.Time{day(1), day(2), day(3)}, got.Dates)
	assert.Equal(t, []float64{1, 2, 3}, got.Data[0])

	assert.Zero(t, FilterByDateRange(f, day(3), day(1)).Len())
}

func TestCache(t *testing.T) {
	loads := map[string]int{}
	now := day(0)
	c := NewCache(2, time.Hour)
	c.now = func() time.Time { return now }
	c.load = func(path string) (*Workbook, error) {
		loads[path]++
		if path == "bad" {
			return nil, ErrArtifactMissing
		}
		return &Workbook{Path: path}, nil
	}

	a1, err := c.Get("a")
	require.NoError(t, err)
	a2, err := c.Get("a")
	require.NoError(t, err)
	assert.Same(t, a1, a2)
	assert.Equal(t, 1, loads["a"])

	c.Invalidate("a")
	_, err = c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 2, loads["a"])

	// Bounded: touching a then adding b and c evicts b, the least recently used.
	now = now.Add(time.Minute)
	_, _ = c.Get("b")
	now = now.Add(time.Minute)
	_, _ = c.Get("a")
	now = now.Add(time.Minute)
	_, _ = c.Get("c")
	assert.Equal(t, 2, c.Len())
	_, _ = c.Get("a")
	assert.Equal(t, 2, loads["a"])
	_, _ = c.Get("b")
	assert.Equal(t, 2, loads["b"])

	// Expiry.
	now = now.Add(2 * time.Hour)
	_, _ = c.Get("b")
	assert.Equal(t, 3, loads["b"])

	_, err = c.Get("bad")
	assert.True(t, errors.Is(err, ErrArtifactMissing))
	_, _ = c.Get("bad")
	assert.Equal(t, 2, loads["bad"], "errors are not cached")

	c.Purge()
	assert.Zero(t, c.Len())
}
