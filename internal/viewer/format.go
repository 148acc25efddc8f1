package viewer

import (
	"math"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const (
	currencyCode = money.USD
	notAvailable = "n/a"
)

// FormatCurrency renders an amount in dollars, e.g. "$100,000.00".
func FormatCurrency(v float64) string {
	if !finite(v) {
		return notAvailable
	}
	cur := money.GetCurrency(currencyCode)
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	minor := decimal.NewFromFloat(v).Mul(factor).Round(0)
	return money.New(minor.IntPart(), currencyCode).Display()
}

// FormatPercent renders a fraction as a percentage with two decimals.
func FormatPercent(v float64) string {
	if !finite(v) {
		return notAvailable
	}
	return decimal.NewFromFloat(v).Shift(2).StringFixed(2) + "%"
}

// FormatRatio renders a unitless ratio such as Sharpe or beta.
func FormatRatio(v float64) string {
	if !finite(v) {
		return notAvailable
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
