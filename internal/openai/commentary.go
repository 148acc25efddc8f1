package openai

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"portfoliorisk/internal/finance"
)

const DefaultModel = "gpt-4o-mini"

const systemPrompt = `You are a portfolio risk analyst writing for a private investor. You will receive the summary metrics of a backtested, statically weighted equity portfolio.

Write a short plain-text commentary:
- One sentence on overall performance (final value, PnL, CAGR).
- One or two sentences on risk (volatility, Sharpe ratio, beta, maximum drawdown) and what they imply.
- One sentence naming the most important caveat of a historical backtest.

Guidelines:
- No markdown, no links, no investment advice.
- Quote the numbers you are given; do not invent others.
- At most 120 words.`

// Commentator narrates summary metrics through a chat completion.
type Commentator struct {
	cli   oa.Client
	model string
}

func NewCommentator(apiKey, model string, opts ...option.RequestOption) *Commentator {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Commentator{cli: oa.NewClient(opts...), model: model}
}

func (c *Commentator) Comment(ctx context.Context, metrics []finance.Metric) (string, error) {
	if len(metrics) == 0 {
		return "", fmt.Errorf("no metrics to comment on")
	}
	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(metricsPrompt(metrics)),
		},
		MaxTokens: oa.Int(400),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return sanitize(resp.Choices[0].Message.Content), nil
}

func metricsPrompt(metrics []finance.Metric) string {
	var b strings.Builder
	b.WriteString("Summary metrics (fractions, not percentages, unless currency):\n")
	for _, m := range metrics {
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			fmt.Fprintf(&b, "- %s: undefined\n", m.Name)
			continue
		}
		fmt.Fprintf(&b, "- %s: %.4f\n", m.Name, m.Value)
	}
	return b.String()
}

var (
	reMarkdownImg = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`) // ![alt](url)
	reURL         = regexp.MustCompile(`https?://\S+`)
)

// sanitize strips links and caps the reply so it fits one chat message.
func sanitize(text string) string {
	text = reMarkdownImg.ReplaceAllString(text, "")
	text = reURL.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if len(text) > 2000 {
		text = text[:2000]
	}
	return text
}
