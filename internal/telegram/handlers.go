package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"portfoliorisk/internal/artifact"
	"portfoliorisk/internal/finance"
	"portfoliorisk/internal/viewer"
)

var (
	// /help
	reHelp    = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
	reMetrics = regexp.MustCompile(`^/metrics(?:@[\w_]+)?$`)
	// /value|/drawdown|/sharpe [start] [end], dates as YYYY-MM-DD
	reChart = regexp.MustCompile(`^/(value|drawdown|sharpe)(?:@[\w_]+)?(?:\s+(\d{4}-\d{2}-\d{2}))?(?:\s+(\d{4}-\d{2}-\d{2}))?$`)
	// /returns|/prices [rows]
	reTable      = regexp.MustCompile(`^/(returns|prices)(?:@[\w_]+)?(?:\s+(\d{1,3}))?$`)
	reRefresh    = regexp.MustCompile(`^/refresh(?:@[\w_]+)?$`)
	reCommentary = regexp.MustCompile(`^/commentary(?:@[\w_]+)?$`)
)

// Commentator narrates summary metrics.
type Commentator interface {
	Comment(ctx context.Context, metrics []finance.Metric) (string, error)
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Handlers struct {
	api        sender
	dash       *viewer.Dashboard
	commentary Commentator
	logger     *zap.Logger
}

func NewHandlers(api sender, dash *viewer.Dashboard, commentary Commentator, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{api: api, dash: dash, commentary: commentary, logger: logger}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	chatID := m.Chat.ID
	txt := strings.TrimSpace(m.Text)
	switch {
	case reHelp.MatchString(txt):
		h.handleHelp(chatID)

	case reMetrics.MatchString(txt):
		h.handleMetrics(chatID)

	case reChart.MatchString(txt):
		g := reChart.FindStringSubmatch(txt)
		start, _ := time.Parse(time.DateOnly, g[2])
		end, _ := time.Parse(time.DateOnly, g[3])
		h.handleChart(chatID, viewer.ChartKind(g[1]), start, end)

	case reTable.MatchString(txt):
		g := reTable.FindStringSubmatch(txt)
		sheet := artifact.SheetReturns
		if g[1] == "prices" {
			sheet = artifact.SheetPrices
		}
		rows := viewer.DefaultTailRows
		if g[2] != "" {
			rows, _ = strconv.Atoi(g[2])
		}
		h.handleTable(chatID, sheet, rows)

	case reRefresh.MatchString(txt):
		h.reply(chatID, "Regenerating report…")
		h.handleRefresh(chatID)

	case reCommentary.MatchString(txt):
		h.handleCommentary(chatID)
	}
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /metrics - Summary cards and every metric\n" +
		"- /value [start] [end] - Portfolio value chart\n" +
		"- /drawdown [start] [end] - Drawdown chart\n" +
		"- /sharpe [start] [end] - Rolling Sharpe chart\n" +
		"- /returns [rows] - Last daily returns (default 10)\n" +
		"- /prices [rows] - Last closing prices (default 10)\n" +
		"- /refresh - Re-run the generator and reload the report\n" +
		"- /commentary - Short narrative on the risk metrics\n" +
		"\nDates are YYYY-MM-DD and are clamped to the report's range."
	h.reply(chatID, help)
}

func (h *Handlers) handleMetrics(chatID int64) {
	s, err := h.dash.Summary()
	if err != nil {
		h.replyErr(chatID, "Metrics", err)
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Report %s to %s\n\n", s.Range.Start.Format(time.DateOnly), s.Range.End.Format(time.DateOnly))
	for _, c := range s.Cards {
		fmt.Fprintf(&b, "%s: %s\n", c.Label, c.Display)
	}
	h.reply(chatID, strings.TrimRight(b.String(), "\n"))
}

func (h *Handlers) handleChart(chatID int64, kind viewer.ChartKind, start, end time.Time) {
	img, rng, err := h.dash.Chart(kind, start, end)
	if err != nil {
		h.replyErr(chatID, "Chart", err)
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: string(kind) + ".png", Bytes: img})
	photo.Caption = strings.ToUpper(string(kind)) + " • " + rng.Start.Format(time.DateOnly) + " → " + rng.End.Format(time.DateOnly)
	h.send(photo)
}

func (h *Handlers) handleTable(chatID int64, sheet string, rows int) {
	frame, err := h.dash.Table(sheet, rows)
	if err != nil {
		h.replyErr(chatID, "Table", err)
		return
	}
	format := formatPrice
	if sheet == artifact.SheetReturns {
		format = viewer.FormatPercent
	}
	msg := tgbotapi.NewMessage(chatID, sheet+"\n```\n"+renderTable(frame, format)+"```")
	msg.ParseMode = "Markdown"
	h.send(msg)
}

func (h *Handlers) handleRefresh(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := h.dash.Refresh(ctx); err != nil {
		h.replyErr(chatID, "Refresh", err)
		return
	}
	h.handleMetrics(chatID)
}

func (h *Handlers) handleCommentary(chatID int64) {
	if h.commentary == nil {
		h.reply(chatID, "Commentary is not configured.")
		return
	}
	s, err := h.dash.Summary()
	if err != nil {
		h.replyErr(chatID, "Commentary", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()
	out, err := h.commentary.Comment(ctx, s.Metrics)
	if err != nil {
		h.replyErr(chatID, "Commentary", err)
		return
	}
	h.reply(chatID, out)
}

func renderTable(f *finance.Frame, format func(float64) string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-10s", artifact.DateColumn))
	for _, c := range f.Columns {
		b.WriteString(fmt.Sprintf(" %10s", c))
	}
	b.WriteString("\n")
	for r, d := range f.Dates {
		b.WriteString(d.Format(time.DateOnly))
		for _, v := range f.Row(r) {
			b.WriteString(fmt.Sprintf(" %10s", format(v)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// userMessage turns a viewer error into something a chat user can act on.
func userMessage(err error) string {
	switch {
	case errors.Is(err, artifact.ErrArtifactMissing):
		return viewer.MissingReportMessage
	case errors.Is(err, artifact.ErrMalformedArtifact):
		return "The report file is malformed: " + err.Error()
	default:
		return err.Error()
	}
}

func (h *Handlers) replyErr(chatID int64, what string, err error) {
	h.logger.Warn("telegram: command failed", zap.String("command", what), zap.Int64("chat_id", chatID), zap.Error(err))
	if errors.Is(err, artifact.ErrArtifactMissing) {
		h.reply(chatID, userMessage(err))
		return
	}
	h.reply(chatID, what+" failed: "+userMessage(err))
}

func (h *Handlers) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handlers) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		h.logger.Error("telegram: send failed", zap.Error(err))
	}
}
