package finance

import (
	"errors"
	"math"
)

var (
	// ErrDataUnavailable is returned when the provider yields no rows or a
	// symbol cannot be resolved.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrInsufficientOverlap is returned when fewer than two dates align
	// between the portfolio and the benchmark.
	ErrInsufficientOverlap = errors.New("insufficient overlapping dates")
)

var nan = math.NaN()

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
