package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"portfoliorisk/internal/artifact"
	"portfoliorisk/internal/finance"
	"portfoliorisk/internal/viewer"
)

// Short sheet names accepted in URLs next to the full sheet names.
var sheetAliases = map[string]string{
	"value":          artifact.SheetValue,
	"returns":        artifact.SheetReturns,
	"drawdown":       artifact.SheetDrawdown,
	"rolling-sharpe": artifact.SheetRollingSharpe,
	"prices":         artifact.SheetPrices,
}

type handlers struct {
	dash   *viewer.Dashboard
	logger *zap.Logger
}

// NewHTTPMux wires the dashboard routes. webhook may be nil when the
// Telegram surface is disabled.
func NewHTTPMux(dash *viewer.Dashboard, webhook http.HandlerFunc, logger *zap.Logger) *http.ServeMux {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{dash: dash, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/summary", h.summary)
	mux.HandleFunc("GET /api/series/{sheet}", h.series)
	mux.HandleFunc("GET /api/table/{sheet}", h.table)
	mux.HandleFunc("GET /charts/{chart}", h.chart)
	mux.HandleFunc("POST /api/refresh", h.refresh)
	if webhook != nil {
		mux.HandleFunc("POST /telegram/webhook", webhook)
	}
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type metricJSON struct {
	Name    string   `json:"name"`
	Value   *float64 `json:"value"`
	Display string   `json:"display"`
}

type summaryJSON struct {
	*viewer.Summary
	Metrics []metricJSON `json:"metrics"`
}

func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.dash.Summary()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryBody(s))
}

func summaryBody(s *viewer.Summary) summaryJSON {
	out := summaryJSON{Summary: s}
	for _, m := range s.Metrics {
		out.Metrics = append(out.Metrics, metricJSON{Name: m.Name, Value: number(m.Value), Display: viewer.FormatMetric(m)})
	}
	return out
}

type rowJSON struct {
	Date   string     `json:"date"`
	Values []*float64 `json:"values"`
}

type frameJSON struct {
	Sheet   string            `json:"sheet"`
	Range   *viewer.DateRange `json:"range,omitempty"`
	Columns []string          `json:"columns"`
	Rows    []rowJSON         `json:"rows"`
}

func frameBody(sheet string, f *finance.Frame, rng *viewer.DateRange) frameJSON {
	out := frameJSON{Sheet: sheet, Range: rng, Columns: f.Columns, Rows: make([]rowJSON, 0, f.Len())}
	for r, d := range f.Dates {
		row := rowJSON{Date: d.Format(time.DateOnly)}
		for _, v := range f.Row(r) {
			row.Values = append(row.Values, number(v))
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func (h *handlers) series(w http.ResponseWriter, r *http.Request) {
	sheet := resolveSheet(r.PathValue("sheet"))
	start, end, err := parseRange(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	frame, rng, err := h.dash.Series(sheet, start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, frameBody(sheet, frame, &rng))
}

func (h *handlers) table(w http.ResponseWriter, r *http.Request) {
	sheet := resolveSheet(r.PathValue("sheet"))
	rows := viewer.DefaultTailRows
	if raw := r.URL.Query().Get("rows"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.fail(w, r, fmt.Errorf("%w: rows must be a positive integer", errBadRequest))
			return
		}
		rows = n
	}
	frame, err := h.dash.Table(sheet, rows)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, frameBody(sheet, frame, nil))
}

func (h *handlers) chart(w http.ResponseWriter, r *http.Request) {
	kind, err := viewer.ParseChartKind(r.PathValue("chart"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	start, end, err := parseRange(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	img, _, err := h.dash.Chart(kind, start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.dash.Refresh(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := h.dash.Summary()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryBody(s))
}

var errBadRequest = errors.New("bad request")

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	start, err := parseDay(q.Get("start"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDay(q.Get("end"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseDay(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", errBadRequest, raw)
	}
	return t, nil
}

func resolveSheet(name string) string {
	if full, ok := sheetAliases[strings.ToLower(name)]; ok {
		return full
	}
	return name
}

// StatusFor maps viewer errors to HTTP status codes and client messages.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, artifact.ErrArtifactMissing):
		return http.StatusNotFound, viewer.MissingReportMessage
	case errors.Is(err, artifact.ErrMalformedArtifact):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, viewer.ErrUnknownSheet), errors.Is(err, viewer.ErrUnknownChart), errors.Is(err, viewer.ErrEmptyRange):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, viewer.ErrInvalidRange), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, viewer.ErrNoRegenerator):
		return http.StatusNotImplemented, err.Error()
	case errors.Is(err, viewer.ErrRegenerateFailed):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := StatusFor(err)
	if status >= 500 {
		h.logger.Error("http: request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		h.logger.Debug("http: request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func number(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
