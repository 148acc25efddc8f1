package finance

import "time"

// WeightedAsset represents an asset with its static weight in the portfolio
type WeightedAsset struct {
	Symbol string
	Weight float64 // 0.0 to 1.0, not required to sum to 1
}

// PortfolioConfig is the fixed configuration of one report run
type PortfolioConfig struct {
	Assets        []WeightedAsset
	Benchmark     string
	Start         time.Time
	End           time.Time // exclusive
	InitialValue  float64
	RiskFreeRate  float64 // annual
	RollingWindow int
	// HorizonYears is the CAGR horizon; zero derives it from the retained dates
	HorizonYears float64
}

func (c *PortfolioConfig) symbols() []string {
	out := make([]string, len(c.Assets))
	for i, a := range c.Assets {
		out[i] = a.Symbol
	}
	return out
}

func (c *PortfolioConfig) weights() map[string]float64 {
	out := make(map[string]float64, len(c.Assets))
	for _, a := range c.Assets {
		out[a.Symbol] = a.Weight
	}
	return out
}
