package finance

import (
	"math"
	"sort"
	"time"
)

// Frame is a date-indexed numeric table with one column per symbol.
// Data[c][r] is the value of column c on Dates[r]; NaN marks a missing value.
type Frame struct {
	Dates   []time.Time
	Columns []string
	Data    [][]float64
}

// NewFrame builds a frame from per-column date to value maps. The index is
// the sorted union of all dates; absent values become NaN.
func NewFrame(columns []string, values map[string]map[time.Time]float64) *Frame {
	seen := map[time.Time]struct{}{}
	for _, col := range columns {
		for d := range values[col] {
			seen[d] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	f := &Frame{Dates: dates, Columns: append([]string(nil), columns...), Data: make([][]float64, len(columns))}
	for c, col := range columns {
		f.Data[c] = make([]float64, len(dates))
		for r, d := range dates {
			if v, ok := values[col][d]; ok {
				f.Data[c][r] = v
			} else {
				f.Data[c][r] = nan
			}
		}
	}
	return f
}

func (f *Frame) Len() int { return len(f.Dates) }

// ColumnIndex returns the position of name, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column extracts one column as a series.
func (f *Frame) Column(name string) (Series, bool) {
	i := f.ColumnIndex(name)
	if i < 0 {
		return Series{}, false
	}
	return Series{
		Name:   name,
		Dates:  append([]time.Time(nil), f.Dates...),
		Values: append([]float64(nil), f.Data[i]...),
	}, true
}

// Row returns the values of row r in column order.
func (f *Frame) Row(r int) []float64 {
	out := make([]float64, len(f.Columns))
	for c := range f.Columns {
		out[c] = f.Data[c][r]
	}
	return out
}

// DropMissing returns a copy without rows holding any NaN value.
func (f *Frame) DropMissing() *Frame {
	keep := make([]int, 0, len(f.Dates))
	for r := range f.Dates {
		ok := true
		for c := range f.Columns {
			if math.IsNaN(f.Data[c][r]) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, r)
		}
	}
	return f.pick(keep)
}

// Slice returns rows [from, to).
func (f *Frame) Slice(from, to int) *Frame {
	idx := make([]int, 0, to-from)
	for r := from; r < to; r++ {
		idx = append(idx, r)
	}
	return f.pick(idx)
}

// Tail returns the last n rows.
func (f *Frame) Tail(n int) *Frame {
	if n >= f.Len() {
		return f.Slice(0, f.Len())
	}
	return f.Slice(f.Len()-n, f.Len())
}

// Filter returns the rows whose date satisfies keep.
func (f *Frame) Filter(keep func(time.Time) bool) *Frame {
	idx := make([]int, 0, f.Len())
	for r, d := range f.Dates {
		if keep(d) {
			idx = append(idx, r)
		}
	}
	return f.pick(idx)
}

// LeftJoin appends the columns of other, aligned on the dates of f. Dates
// missing from other become NaN.
func (f *Frame) LeftJoin(other *Frame) *Frame {
	pos := make(map[time.Time]int, other.Len())
	for r, d := range other.Dates {
		pos[d] = r
	}
	out := f.Slice(0, f.Len())
	for c, col := range other.Columns {
		vals := make([]float64, f.Len())
		for r, d := range f.Dates {
			if j, ok := pos[d]; ok {
				vals[r] = other.Data[c][j]
			} else {
				vals[r] = nan
			}
		}
		out.Columns = append(out.Columns, col)
		out.Data = append(out.Data, vals)
	}
	return out
}

// WithSeries returns a copy of f with s appended as a column. s must share
// the index of f.
func (f *Frame) WithSeries(s Series) *Frame {
	out := f.Slice(0, f.Len())
	out.Columns = append(out.Columns, s.Name)
	out.Data = append(out.Data, append([]float64(nil), s.Values...))
	return out
}

func (f *Frame) pick(rows []int) *Frame {
	out := &Frame{
		Dates:   make([]time.Time, len(rows)),
		Columns: append([]string(nil), f.Columns...),
		Data:    make([][]float64, len(f.Columns)),
	}
	for i, r := range rows {
		out.Dates[i] = f.Dates[r]
	}
	for c := range f.Columns {
		out.Data[c] = make([]float64, len(rows))
		for i, r := range rows {
			out.Data[c][i] = f.Data[c][r]
		}
	}
	return out
}
