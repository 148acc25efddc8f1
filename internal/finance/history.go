package finance

import (
	"context"
	"fmt"
	"math"
	"time"

	yahoofinanceapi "github.com/oscarli916/yahoo-finance-api"
)

// YahooHistorySource fetches daily history through the yahoo-finance-api
// client. The client takes no context; cancellation is only checked before
// the request.
type YahooHistorySource struct{}

func (YahooHistorySource) FetchCloses(ctx context.Context, symbol string, start, end time.Time) (map[time.Time]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ticker := yahoofinanceapi.NewTicker(symbol)
	data, err := ticker.History(yahoofinanceapi.HistoryQuery{
		Start:    start.Format("2006-01-02"),
		End:      end.Format("2006-01-02"),
		Interval: "1d",
	})
	if err != nil {
		return nil, fmt.Errorf("history error %s: %w", symbol, err)
	}

	out := make(map[time.Time]float64, len(data))
	for dateStr, price := range data {
		if math.IsNaN(price.Close) || price.Close <= 0 {
			continue
		}
		d, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			d, err = time.Parse("2006-01-02 15:04:05", dateStr)
			if err != nil {
				return nil, fmt.Errorf("parse date %s for %s: %w", dateStr, symbol, err)
			}
		}
		if d.Before(start) || !d.Before(end) {
			continue
		}
		out[calendarDate(d, time.UTC)] = price.Close
	}
	return out, nil
}

// NewPriceSource returns the provider registered under name.
func NewPriceSource(name string) (PriceSource, error) {
	switch name {
	case "", "yahoo-chart":
		return NewYahooChartSource(), nil
	case "yahoo-history":
		return YahooHistorySource{}, nil
	default:
		return nil, fmt.Errorf("unknown market data provider %q", name)
	}
}
