package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"portfoliorisk/internal/artifact"
	"portfoliorisk/internal/finance"
)

const (
	// DefaultTailRows is the size of the tail tables.
	DefaultTailRows = 10
	// MissingReportMessage is shown whenever the artifact has not been generated.
	MissingReportMessage = "No report found. Run the generator first."
)

var (
	// ErrUnknownSheet is returned for sheet names that are not dated series.
	ErrUnknownSheet = errors.New("unknown report sheet")
	// ErrInvalidRange is returned when the requested start falls after the end.
	ErrInvalidRange = errors.New("invalid date range")
)

// SeriesSheets are the dated sheets a client may query.
var SeriesSheets = []string{
	artifact.SheetValue,
	artifact.SheetReturns,
	artifact.SheetDrawdown,
	artifact.SheetRollingSharpe,
	artifact.SheetPrices,
}

// Card is one headline figure.
type Card struct {
	Label   string  `json:"label"`
	Metric  string  `json:"metric"`
	Value   float64 `json:"-"`
	Display string  `json:"display"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Clamp resolves a requested range against r. Zero bounds default to r's,
// and anything outside r is pulled back inside it.
func (r DateRange) Clamp(start, end time.Time) (DateRange, error) {
	out := r
	if !start.IsZero() && start.After(r.Start) {
		out.Start = start
	}
	if !end.IsZero() && end.Before(r.End) {
		out.End = end
	}
	if out.Start.After(out.End) {
		return DateRange{}, fmt.Errorf("%w: %s after %s", ErrInvalidRange,
			out.Start.Format(time.DateOnly), out.End.Format(time.DateOnly))
	}
	return out, nil
}

// Summary is the headline view of a report.
type Summary struct {
	Cards    []Card           `json:"cards"`
	Metrics  []finance.Metric `json:"-"`
	Range    DateRange        `json:"range"`
	LoadedAt time.Time        `json:"loaded_at"`
}

// Dashboard renders one report artifact. Loads go through a shared cache and
// Refresh regenerates the artifact before reloading it.
type Dashboard struct {
	path   string
	cache  *artifact.Cache
	regen  Regenerator
	charts *chartCache
	logger *zap.Logger
}

func New(path string, cache *artifact.Cache, regen Regenerator, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = artifact.NewCache(1, 0)
	}
	return &Dashboard{
		path:   path,
		cache:  cache,
		regen:  regen,
		charts: newChartCache(chartCacheTTL),
		logger: logger,
	}
}

func (d *Dashboard) Path() string { return d.path }

func (d *Dashboard) workbook() (*artifact.Workbook, error) {
	return d.cache.Get(d.path)
}

// Summary returns the headline cards and the full metric list.
func (d *Dashboard) Summary() (*Summary, error) {
	wb, err := d.workbook()
	if err != nil {
		return nil, err
	}
	metrics, err := wb.Metrics()
	if err != nil {
		return nil, err
	}
	bounds, err := bounds(wb)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Cards:    buildCards(metrics),
		Metrics:  metrics,
		Range:    bounds,
		LoadedAt: wb.LoadedAt,
	}, nil
}

var cardSpecs = []struct {
	label  string
	metric string
	format func(float64) string
}{
	{"Final Value", finance.MetricFinalValue, FormatCurrency},
	{"CAGR", finance.MetricCAGR, FormatPercent},
	{"Volatility", finance.MetricVolatility, FormatPercent},
	{"Sharpe", finance.MetricSharpe, FormatRatio},
	{"Total PnL", finance.MetricTotalPnL, FormatCurrency},
	{"Beta", finance.MetricBeta, FormatRatio},
	{"Max Drawdown", finance.MetricMaxDrawdown, FormatPercent},
}

func buildCards(metrics []finance.Metric) []Card {
	cards := make([]Card, 0, len(cardSpecs))
	for _, cs := range cardSpecs {
		v, ok := finance.MetricValue(metrics, cs.metric)
		display := notAvailable
		if ok {
			display = cs.format(v)
		}
		cards = append(cards, Card{Label: cs.label, Metric: cs.metric, Value: v, Display: display})
	}
	return cards
}

// FormatMetric renders a summary metric the way its card does.
func FormatMetric(m finance.Metric) string {
	for _, cs := range cardSpecs {
		if cs.metric == m.Name {
			return cs.format(m.Value)
		}
	}
	return FormatRatio(m.Value)
}

// Bounds is the date span of the Portfolio Value sheet.
func (d *Dashboard) Bounds() (DateRange, error) {
	wb, err := d.workbook()
	if err != nil {
		return DateRange{}, err
	}
	return bounds(wb)
}

func bounds(wb *artifact.Workbook) (DateRange, error) {
	value, err := wb.Series(artifact.SheetValue)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{Start: value.Dates[0], End: value.Dates[value.Len()-1]}, nil
}

// Series returns a dated sheet filtered to the requested range, which is
// resolved against the Portfolio Value bounds.
func (d *Dashboard) Series(sheet string, start, end time.Time) (*finance.Frame, DateRange, error) {
	if !isSeriesSheet(sheet) {
		return nil, DateRange{}, fmt.Errorf("%w: %q", ErrUnknownSheet, sheet)
	}
	wb, err := d.workbook()
	if err != nil {
		return nil, DateRange{}, err
	}
	b, err := bounds(wb)
	if err != nil {
		return nil, DateRange{}, err
	}
	rng, err := b.Clamp(start, end)
	if err != nil {
		return nil, DateRange{}, err
	}
	frame, err := wb.Series(sheet)
	if err != nil {
		return nil, DateRange{}, err
	}
	return artifact.FilterByDateRange(frame, rng.Start, rng.End), rng, nil
}

// Table returns the last rows of a dated sheet.
func (d *Dashboard) Table(sheet string, rows int) (*finance.Frame, error) {
	if !isSeriesSheet(sheet) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSheet, sheet)
	}
	if rows <= 0 {
		rows = DefaultTailRows
	}
	wb, err := d.workbook()
	if err != nil {
		return nil, err
	}
	frame, err := wb.Series(sheet)
	if err != nil {
		return nil, err
	}
	return frame.Tail(rows), nil
}

// Refresh regenerates the artifact, then drops cached state and reloads it.
func (d *Dashboard) Refresh(ctx context.Context) error {
	if d.regen == nil {
		return ErrNoRegenerator
	}
	if err := d.regen.Regenerate(ctx); err != nil {
		if errors.Is(err, ErrRegenerateFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrRegenerateFailed, err)
	}
	d.cache.Invalidate(d.path)
	d.charts.purge()
	if _, err := d.workbook(); err != nil {
		return fmt.Errorf("reload after regenerate: %w", err)
	}
	d.logger.Info("report refreshed", zap.String("path", d.path))
	return nil
}

func isSeriesSheet(name string) bool {
	for _, s := range SeriesSheets {
		if s == name {
			return true
		}
	}
	return false
}
