package artifact

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"portfoliorisk/internal/finance"
)

const dateNumFmt = "yyyy-mm-dd"

// Write serializes the report to an xlsx workbook at path, one sheet per
// entity. The workbook is written to a temporary file next to path and
// renamed over it, so readers never observe a partial file.
func Write(path string, rep *finance.Report) error {
	if rep == nil {
		return fmt.Errorf("artifact: nil report")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetValue); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	numFmt := dateNumFmt
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("artifact: date style: %w", err)
	}

	frames := []struct {
		sheet string
		frame *finance.Frame
	}{
		{SheetValue, seriesFrame(rep.Value)},
		{SheetReturns, rep.Returns},
		{SheetDrawdown, seriesFrame(rep.Drawdown)},
		{SheetRollingSharpe, seriesFrame(rep.RollingSharpe)},
		{SheetPrices, rep.Prices},
	}
	for _, fr := range frames {
		if fr.frame == nil {
			return fmt.Errorf("artifact: %s: no data", fr.sheet)
		}
		if fr.sheet != SheetValue {
			if _, err := f.NewSheet(fr.sheet); err != nil {
				return fmt.Errorf("artifact: %s: %w", fr.sheet, err)
			}
		}
		if err := writeFrame(f, fr.sheet, fr.frame, dateStyle); err != nil {
			return fmt.Errorf("artifact: %s: %w", fr.sheet, err)
		}
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("artifact: %s: %w", SheetSummary, err)
	}
	if err := writeMetrics(f, rep.Metrics); err != nil {
		return fmt.Errorf("artifact: %s: %w", SheetSummary, err)
	}
	f.SetActiveSheet(0)

	return saveAtomic(f, path)
}

func seriesFrame(s finance.Series) *finance.Frame {
	return &finance.Frame{Dates: s.Dates, Columns: []string{s.Name}, Data: [][]float64{s.Values}}
}

func writeFrame(f *excelize.File, sheet string, fr *finance.Frame, dateStyle int) error {
	header := make([]interface{}, 0, len(fr.Columns)+1)
	header = append(header, DateColumn)
	for _, c := range fr.Columns {
		header = append(header, c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for r, d := range fr.Dates {
		row := r + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, d); err != nil {
			return err
		}
		for c := range fr.Columns {
			v := fr.Data[c][r]
			// Undefined values stay blank.
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+2, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	if fr.Len() > 0 {
		last, _ := excelize.CoordinatesToCellName(1, fr.Len()+1)
		if err := f.SetCellStyle(sheet, "A2", last, dateStyle); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "A", 12)
}

func writeMetrics(f *excelize.File, metrics []finance.Metric) error {
	if err := f.SetSheetRow(SheetSummary, "A1", &[]interface{}{MetricColumn, ValueColumn}); err != nil {
		return err
	}
	for i, m := range metrics {
		row := i + 2
		if err := f.SetCellValue(SheetSummary, fmt.Sprintf("A%d", row), m.Name); err != nil {
			return err
		}
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			continue
		}
		if err := f.SetCellValue(SheetSummary, fmt.Sprintf("B%d", row), m.Value); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetSummary, "A", "A", 26)
}

func saveAtomic(f *excelize.File, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.xlsx")
	if err != nil {
		return fmt.Errorf("artifact: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifact: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("artifact: rename: %w", err)
	}
	return nil
}
