package artifact

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"portfoliorisk/internal/finance"
)

// Older generator revisions wrote the date index without a header, which
// spreadsheet readers surface as "Unnamed: 0" or a blank cell.
const unnamedIndex = "Unnamed: 0"

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/06",
	"1/2/06 15:04",
	"01-02-06",
}

// NormalizeForSeries turns a raw sheet into a date-indexed numeric frame.
//
// The date axis is the column headed "Date" (or an unnamed index column) when
// present, otherwise the first column. Rows whose date cannot be parsed are
// dropped, only columns holding numbers are kept, and rows with any missing
// value are dropped.
func NormalizeForSeries(sh *Sheet) (*finance.Frame, error) {
	if sh == nil || len(sh.Header) == 0 {
		return nil, fmt.Errorf("%w: empty sheet", ErrMalformedArtifact)
	}
	dateCol := namedDateColumn(sh.Header)
	if dateCol < 0 {
		dateCol = 0
	}

	var rows []int
	var dates []time.Time
	for r := range sh.Rows {
		d, ok := parseDate(sh.Cell(r, dateCol))
		if !ok {
			continue
		}
		rows = append(rows, r)
		dates = append(dates, d)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has no parsable dates", ErrMalformedArtifact, sh.Name)
	}

	frame := &finance.Frame{Dates: dates}
	for c := range sh.Header {
		if c == dateCol {
			continue
		}
		vals, ok := numericColumn(sh, c, rows)
		if !ok {
			continue
		}
		frame.Columns = append(frame.Columns, columnName(sh.Header[c], c))
		frame.Data = append(frame.Data, vals)
	}
	if len(frame.Columns) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has no numeric columns", ErrMalformedArtifact, sh.Name)
	}
	return frame.DropMissing(), nil
}

func namedDateColumn(header []string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == DateColumn {
			return i
		}
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == unnamedIndex || (i == 0 && h == "") {
			return i
		}
	}
	return -1
}

// numericColumn parses column c over rows. A column is numeric when it has at
// least one value and every non-blank value parses as a number.
func numericColumn(sh *Sheet, c int, rows []int) ([]float64, bool) {
	out := make([]float64, len(rows))
	seen := false
	for i, r := range rows {
		raw := sh.Cell(r, c)
		if raw == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
		seen = true
	}
	return out, seen
}

func columnName(h string, c int) string {
	h = strings.TrimSpace(h)
	if h == "" {
		return fmt.Sprintf("Unnamed: %d", c)
	}
	return h
}

// parseDate accepts Excel serial dates and common text layouts.
func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC().Round(time.Second), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FilterByDateRange keeps rows whose calendar date lies in [start, end].
func FilterByDateRange(frame *finance.Frame, start, end time.Time) *finance.Frame {
	from, to := dateOnly(start), dateOnly(end)
	return frame.Filter(func(d time.Time) bool {
		day := dateOnly(d)
		return !day.Before(from) && !day.After(to)
	})
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
