// Package strategy holds the interchangeable signal policies that turn a
// window of price history into a BUY/SELL/HOLD decision.
package strategy

import (
	"time"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// accuracy is the absolute threshold under which a price move is treated as
// no move at all.
const accuracy = 1e-4

// Policy maps a window of observations, oldest first, to a decision. Policies
// return domain.ErrInsufficientData when the window is too short; callers
// should wait for more data rather than treat it as a fault.
type Policy interface {
	Name() string
	Decide(window []domain.PriceObservation) (domain.Signal, error)
}

// Windowed is implemented by policies that look back over a fixed duration
// ending now. Policies that do not implement it only see the newest
// observation.
type Windowed interface {
	Lookback() time.Duration
}

// Config holds strategy configuration.
type Config struct {
	Name     string
	Lookback time.Duration
	// Seed feeds the random policy. Zero picks a time-based seed.
	Seed uint64
}

// LookbackFor derives the momentum window from the trading frequency (Hz)
// and the number of cycles to accumulate.
func LookbackFor(frequency float64, accumulator int) time.Duration {
	if frequency <= 0 || accumulator <= 0 {
		return 0
	}
	return time.Duration(float64(accumulator) / frequency * float64(time.Second))
}
