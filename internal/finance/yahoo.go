package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const yahooChartBaseURL = "https://query1.finance.yahoo.com"

// yahooChartResp mirrors Yahoo v8 chart response (trimmed to needed fields)
type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooChartSource reads daily bars from the Yahoo v8 chart endpoint.
// Adjusted closes are preferred when the response carries them.
type YahooChartSource struct {
	Client  *http.Client
	BaseURL string
}

func NewYahooChartSource() *YahooChartSource {
	return &YahooChartSource{Client: http.DefaultClient, BaseURL: yahooChartBaseURL}
}

func (s *YahooChartSource) FetchCloses(ctx context.Context, symbol string, start, end time.Time) (map[time.Time]float64, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div,splits",
		strings.TrimRight(s.BaseURL, "/"), url.PathEscape(symbol), start.Unix(), end.Unix())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/history", strings.ToUpper(symbol)))

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read yahoo response: %w", err)
	}

	var yc yahooChartResp
	if err := json.Unmarshal(body, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse yahoo json (status %d): %v; body: %s", resp.StatusCode, err, preview(body))
	}
	if yc.Chart.Error != nil {
		if resp.StatusCode == http.StatusNotFound || yc.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s: %s", ErrDataUnavailable, symbol, yc.Chart.Error.Description)
		}
		return nil, fmt.Errorf("yahoo returned %d: %s: %s", resp.StatusCode, yc.Chart.Error.Code, yc.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo returned %d: %s", resp.StatusCode, preview(body))
	}
	if len(yc.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: empty chart result for %s", ErrDataUnavailable, symbol)
	}

	res := yc.Chart.Result[0]
	var raw []*float64
	switch {
	case len(res.Indicators.AdjClose) > 0 && len(res.Indicators.AdjClose[0].AdjClose) > 0:
		raw = res.Indicators.AdjClose[0].AdjClose
	case len(res.Indicators.Quote) > 0:
		raw = res.Indicators.Quote[0].Close
	}
	ts, cl := filterValidCloses(res.Timestamp, raw)

	loc := exchangeLocation(res.Meta.ExchangeTimezoneName)
	out := make(map[time.Time]float64, len(ts))
	for i, t := range ts {
		out[calendarDate(time.Unix(t, 0), loc)] = cl[i]
	}
	return out, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
