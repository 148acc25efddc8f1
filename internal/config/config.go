package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

// Holding is one ticker and its static portfolio weight.
type Holding struct {
	Symbol string
	Weight float64
}

// Generator holds everything a report run needs.
type Generator struct {
	Holdings          []Holding
	Benchmark         string
	Start             time.Time
	End               time.Time // exclusive
	InitialInvestment float64
	RiskFreeRate      float64 // annual
	RollingWindow     int
	// HorizonYears is the CAGR exponent base. Zero means derive it from the
	// first and last retained dates.
	HorizonYears float64
	ReportPath   string
	Provider     string
	LogLevel     string
	LogFormat    string
}

// Viewer holds the dashboard settings.
type Viewer struct {
	ReportPath       string
	Port             string
	CacheSize        int
	CacheTTL         time.Duration
	GeneratorCmd     []string
	TelegramToken    string
	WebhookPublicURL string
	OpenAIKey        string
	OpenAIModel      string
	LogLevel         string
	LogFormat        string
}

// Symbols returns the ticker symbols in configured order.
func (g Generator) Symbols() []string {
	out := make([]string, len(g.Holdings))
	for i, h := range g.Holdings {
		out[i] = h.Symbol
	}
	return out
}

// Weights returns the symbol to weight mapping.
func (g Generator) Weights() map[string]float64 {
	out := make(map[string]float64, len(g.Holdings))
	for _, h := range g.Holdings {
		out[h.Symbol] = h.Weight
	}
	return out
}

// WeightSum is the sum of all holding weights.
func (g Generator) WeightSum() float64 {
	sum := 0.0
	for _, h := range g.Holdings {
		sum += h.Weight
	}
	return sum
}

func (g Generator) Validate() error {
	if len(g.Holdings) == 0 {
		return errors.New("config: no tickers configured")
	}
	seen := make(map[string]bool, len(g.Holdings))
	for _, h := range g.Holdings {
		if h.Symbol == "" {
			return errors.New("config: empty ticker symbol")
		}
		if seen[h.Symbol] {
			return fmt.Errorf("config: duplicate ticker %s", h.Symbol)
		}
		seen[h.Symbol] = true
		if h.Weight < 0 || math.IsNaN(h.Weight) {
			return fmt.Errorf("config: weight for %s must be non-negative, got %v", h.Symbol, h.Weight)
		}
	}
	if g.Benchmark == "" {
		return errors.New("config: benchmark symbol is empty")
	}
	if !g.End.After(g.Start) {
		return fmt.Errorf("config: end date %s must be after start date %s", g.End.Format(dateLayout), g.Start.Format(dateLayout))
	}
	if g.InitialInvestment <= 0 {
		return fmt.Errorf("config: initial investment must be positive, got %v", g.InitialInvestment)
	}
	if g.RollingWindow < 2 {
		return fmt.Errorf("config: rolling window must be at least 2, got %d", g.RollingWindow)
	}
	if g.HorizonYears < 0 {
		return fmt.Errorf("config: CAGR horizon must not be negative, got %v", g.HorizonYears)
	}
	if g.ReportPath == "" {
		return errors.New("config: report path is empty")
	}
	return nil
}

// ParseHoldings parses "AAPL:0.25,MSFT:0.25" into holdings, keeping order.
func ParseHoldings(s string) ([]Holding, error) {
	var out []Holding
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sym, w, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid holding %q: want SYMBOL:WEIGHT", part)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q for %s: %w", w, sym, err)
		}
		out = append(out, Holding{Symbol: strings.ToUpper(strings.TrimSpace(sym)), Weight: weight})
	}
	return out, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORTFOLIO_TICKERS", "AAPL:0.25,MSFT:0.25,TSLA:0.2,AMZN:0.2,JPM:0.1")
	v.SetDefault("BENCHMARK", "^GSPC")
	v.SetDefault("START_DATE", "2020-01-01")
	v.SetDefault("END_DATE", "2025-01-01")
	v.SetDefault("INITIAL_INVESTMENT", 100000.0)
	v.SetDefault("RISK_FREE_RATE", 0.02)
	v.SetDefault("ROLLING_WINDOW", 90)
	v.SetDefault("CAGR_HORIZON_YEARS", 5.0)
	v.SetDefault("REPORT_PATH", "reports/Portfolio_Analysis_Advanced.xlsx")
	v.SetDefault("MARKET_DATA_PROVIDER", "yahoo-chart")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PORT", "8501")
	v.SetDefault("CACHE_SIZE", 4)
	v.SetDefault("CACHE_TTL", "0s")
	v.SetDefault("GENERATOR_CMD", "go run ./cmd/generator")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	return v
}

func readConfig(v *viper.Viper) error {
	err := v.ReadInConfig()
	// No app.env is fine, env vars and defaults still apply.
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

// LoadGenerator reads generator settings from app.env, the environment and
// the documented defaults.
func LoadGenerator() (Generator, error) {
	v := newViper()
	if err := readConfig(v); err != nil {
		return Generator{}, fmt.Errorf("config: read: %w", err)
	}
	return generatorFrom(v)
}

func generatorFrom(v *viper.Viper) (Generator, error) {
	holdings, err := ParseHoldings(v.GetString("PORTFOLIO_TICKERS"))
	if err != nil {
		return Generator{}, fmt.Errorf("config: PORTFOLIO_TICKERS: %w", err)
	}
	start, err := time.Parse(dateLayout, v.GetString("START_DATE"))
	if err != nil {
		return Generator{}, fmt.Errorf("config: START_DATE: %w", err)
	}
	end, err := time.Parse(dateLayout, v.GetString("END_DATE"))
	if err != nil {
		return Generator{}, fmt.Errorf("config: END_DATE: %w", err)
	}
	cfg := Generator{
		Holdings:          holdings,
		Benchmark:         strings.TrimSpace(v.GetString("BENCHMARK")),
		Start:             start,
		End:               end,
		InitialInvestment: v.GetFloat64("INITIAL_INVESTMENT"),
		RiskFreeRate:      v.GetFloat64("RISK_FREE_RATE"),
		RollingWindow:     v.GetInt("ROLLING_WINDOW"),
		HorizonYears:      v.GetFloat64("CAGR_HORIZON_YEARS"),
		ReportPath:        v.GetString("REPORT_PATH"),
		Provider:          v.GetString("MARKET_DATA_PROVIDER"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
	}
	return cfg, cfg.Validate()
}

// LoadViewer reads viewer settings the same way LoadGenerator does.
func LoadViewer() (Viewer, error) {
	v := newViper()
	if err := readConfig(v); err != nil {
		return Viewer{}, fmt.Errorf("config: read: %w", err)
	}
	return viewerFrom(v)
}

func viewerFrom(v *viper.Viper) (Viewer, error) {
	ttl, err := time.ParseDuration(v.GetString("CACHE_TTL"))
	if err != nil {
		return Viewer{}, fmt.Errorf("config: CACHE_TTL: %w", err)
	}
	cfg := Viewer{
		ReportPath:       v.GetString("REPORT_PATH"),
		Port:             v.GetString("PORT"),
		CacheSize:        v.GetInt("CACHE_SIZE"),
		CacheTTL:         ttl,
		GeneratorCmd:     strings.Fields(v.GetString("GENERATOR_CMD")),
		TelegramToken:    v.GetString("TELEGRAM_BOT_TOKEN"),
		WebhookPublicURL: v.GetString("WEBHOOK_PUBLIC_URL"),
		OpenAIKey:        v.GetString("OPENAI_API_KEY"),
		OpenAIModel:      v.GetString("OPENAI_MODEL"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
	}
	if cfg.CacheSize < 1 {
		cfg.CacheSize = 1
	}
	if cfg.TelegramToken != "" && cfg.WebhookPublicURL == "" {
		return Viewer{}, errors.New("config: WEBHOOK_PUBLIC_URL is required when TELEGRAM_BOT_TOKEN is set")
	}
	return cfg, nil
}
