package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"portfoliorisk/internal/finance"
	"portfoliorisk/internal/infrastructure"
)

// Sheet is the raw cell text of one worksheet. Rows exclude the header and
// may be shorter than it when trailing cells are blank.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Cell returns the value at row r, column c, or "" past the row's end.
func (s *Sheet) Cell(r, c int) string {
	if r >= len(s.Rows) || c >= len(s.Rows[r]) {
		return ""
	}
	return strings.TrimSpace(s.Rows[r][c])
}

// Workbook is a loaded export artifact.
type Workbook struct {
	Path     string
	LoadedAt time.Time
	sheets   map[string]*Sheet
	order    []string
}

// Load reads every sheet of the artifact at path.
func Load(path string) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			infrastructure.ArtifactLoads.WithLabelValues("missing").Inc()
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		infrastructure.ArtifactLoads.WithLabelValues("error").Inc()
		return nil, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		infrastructure.ArtifactLoads.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("%w: open %s: %v", ErrMalformedArtifact, path, err)
	}
	defer f.Close()

	wb := &Workbook{Path: path, LoadedAt: time.Now(), sheets: map[string]*Sheet{}}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			infrastructure.ArtifactLoads.WithLabelValues("malformed").Inc()
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrMalformedArtifact, name, err)
		}
		sh := &Sheet{Name: name}
		if len(rows) > 0 {
			sh.Header = rows[0]
			sh.Rows = rows[1:]
		}
		wb.sheets[name] = sh
		wb.order = append(wb.order, name)
	}
	infrastructure.ArtifactLoads.WithLabelValues("ok").Inc()
	return wb, nil
}

// SheetNames lists the sheets in workbook order.
func (w *Workbook) SheetNames() []string {
	return append([]string(nil), w.order...)
}

func (w *Workbook) Sheet(name string) (*Sheet, error) {
	sh, ok := w.sheets[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing sheet %q", ErrMalformedArtifact, name)
	}
	return sh, nil
}

// Series returns the named sheet normalized into a dated numeric frame.
func (w *Workbook) Series(name string) (*finance.Frame, error) {
	sh, err := w.Sheet(name)
	if err != nil {
		return nil, err
	}
	return NormalizeForSeries(sh)
}

// Metrics reads the summary sheet in row order. Blank values read as NaN.
func (w *Workbook) Metrics() ([]finance.Metric, error) {
	sh, err := w.Sheet(SheetSummary)
	if err != nil {
		return nil, err
	}
	mi, vi := -1, -1
	for i, h := range sh.Header {
		switch strings.TrimSpace(h) {
		case MetricColumn:
			mi = i
		case ValueColumn:
			vi = i
		}
	}
	if mi < 0 || vi < 0 {
		return nil, fmt.Errorf("%w: %s needs %q and %q columns", ErrMalformedArtifact, SheetSummary, MetricColumn, ValueColumn)
	}
	var out []finance.Metric
	for r := range sh.Rows {
		name := sh.Cell(r, mi)
		if name == "" {
			continue
		}
		raw := sh.Cell(r, vi)
		v := math.NaN()
		if raw != "" {
			v, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: metric %q has non-numeric value %q", ErrMalformedArtifact, name, raw)
			}
		}
		out = append(out, finance.Metric{Name: name, Value: v})
	}
	return out, nil
}
