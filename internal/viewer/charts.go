package viewer

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vicanso/go-charts/v2"

	"portfoliorisk/internal/artifact"
	"portfoliorisk/internal/infrastructure"
)

type ChartKind string

const (
	ChartValue    ChartKind = "value"
	ChartDrawdown ChartKind = "drawdown"
	ChartSharpe   ChartKind = "sharpe"
)

var (
	ErrUnknownChart = errors.New("unknown chart")
	ErrEmptyRange   = errors.New("no data in the selected range")
)

type chartSpec struct {
	sheet string
	title string
	// scale is applied to every value before plotting.
	scale float64
	fill  bool
}

var chartSpecs = map[ChartKind]chartSpec{
	ChartValue:    {sheet: artifact.SheetValue, title: "Portfolio Value", scale: 1},
	ChartDrawdown: {sheet: artifact.SheetDrawdown, title: "Drawdown (%)", scale: 100, fill: true},
	ChartSharpe:   {sheet: artifact.SheetRollingSharpe, title: "Rolling Sharpe", scale: 1},
}

func ParseChartKind(s string) (ChartKind, error) {
	k := ChartKind(strings.ToLower(strings.TrimSpace(strings.TrimSuffix(s, ".png"))))
	if _, ok := chartSpecs[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownChart, s)
	}
	return k, nil
}

// Chart renders a PNG of one dashboard series over the resolved range.
func (d *Dashboard) Chart(kind ChartKind, start, end time.Time) ([]byte, DateRange, error) {
	spec, ok := chartSpecs[kind]
	if !ok {
		return nil, DateRange{}, fmt.Errorf("%w: %q", ErrUnknownChart, kind)
	}
	frame, rng, err := d.Series(spec.sheet, start, end)
	if err != nil {
		return nil, DateRange{}, err
	}
	if frame.Len() == 0 {
		return nil, rng, ErrEmptyRange
	}
	wb, err := d.workbook()
	if err != nil {
		return nil, DateRange{}, err
	}

	cacheKey := fmt.Sprintf("%s|%s|%d|%s|%s", kind, d.path, wb.LoadedAt.UnixNano(),
		rng.Start.Format(time.DateOnly), rng.End.Format(time.DateOnly))
	if img, found := d.charts.get(cacheKey); found {
		return img, rng, nil
	}

	values := make([]float64, frame.Len())
	for i, v := range frame.Data[0] {
		values[i] = v * spec.scale
	}
	subtitle := fmt.Sprintf("%s to %s", rng.Start.Format(time.DateOnly), rng.End.Format(time.DateOnly))
	img, err := renderLine(spec.title, subtitle, dateLabels(frame.Dates), values, spec.fill)
	if err != nil {
		return nil, DateRange{}, fmt.Errorf("render %s chart: %w", kind, err)
	}
	infrastructure.ChartRenders.WithLabelValues(string(kind)).Inc()
	d.charts.set(cacheKey, img)
	return img, rng, nil
}

func dateLabels(dates []time.Time) []string {
	labels := make([]string, len(dates))
	for i, d := range dates {
		if len(dates) <= 60 {
			labels[i] = d.Format("Jan 02")
		} else {
			labels[i] = d.Format("Jan '06")
		}
	}
	return labels
}

// yRange pads the value span by 5% on both sides.
func yRange(values []float64) (float64, float64) {
	minVal, maxVal := values[0], values[0]
	for _, v := range values {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = math.Abs(maxVal) * 0.05
	}
	if padding == 0 {
		padding = 1
	}
	return minVal - padding, maxVal + padding
}

func renderLine(title, subtitle string, labels []string, values []float64, fill bool) ([]byte, error) {
	yMin, yMax := yRange(values)
	if fill && yMax > 0 {
		yMax = 0
	}

	splitNum := 6
	if len(labels) <= 30 {
		splitNum = len(labels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	p, err := charts.Render(charts.ChartOption{
		SeriesList: charts.NewSeriesListDataFromValues([][]float64{values}, charts.ChartTypeLine),
		FillArea:   fill,
	},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(900),
		charts.HeightOptionFunc(480),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}
