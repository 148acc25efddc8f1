package finance

import (
	"context"
	"fmt"
	"time"
)

// PriceSource fetches daily closing prices for one symbol over [start, end).
// Keys are calendar dates at UTC midnight.
type PriceSource interface {
	FetchCloses(ctx context.Context, symbol string, start, end time.Time) (map[time.Time]float64, error)
}

// FetchPrices builds a price frame with one column per symbol. Dates are the
// union across symbols; rows with any missing close are dropped.
func FetchPrices(ctx context.Context, src PriceSource, symbols []string, start, end time.Time) (*Frame, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols requested", ErrDataUnavailable)
	}
	closes := make(map[string]map[time.Time]float64, len(symbols))
	for _, symbol := range symbols {
		cl, err := src.FetchCloses(ctx, symbol, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", symbol, err)
		}
		if len(cl) == 0 {
			return nil, fmt.Errorf("%w: no prices for %s between %s and %s", ErrDataUnavailable, symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
		closes[symbol] = cl
	}
	frame := NewFrame(symbols, closes).DropMissing()
	if frame.Len() == 0 {
		return nil, fmt.Errorf("%w: no common dates across %v", ErrDataUnavailable, symbols)
	}
	return frame, nil
}

// calendarDate maps an instant to its calendar date in loc, as UTC midnight.
func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
