package strategy

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// Momentum goes with the average log-return of the midquote over the
// lookback window.
type Momentum struct {
	lookback time.Duration
	logger   *slog.Logger
}

// NewMomentum creates a Momentum policy reading lookback worth of history.
func NewMomentum(cfg Config, logger *slog.Logger) *Momentum {
	return &Momentum{
		lookback: cfg.Lookback,
		logger:   logger.With(slog.String("strategy", "momentum")),
	}
}

// Name returns the strategy identifier.
func (m *Momentum) Name() string { return "momentum" }

// Lookback returns the history duration Decide expects.
func (m *Momentum) Lookback() time.Duration { return m.lookback }

// Decide returns the sign of the mean log-return. Moves under 1e-4 are HOLD.
func (m *Momentum) Decide(window []domain.PriceObservation) (domain.Signal, error) {
	momentum, err := MeanLogReturn(window)
	if err != nil {
		return domain.SignalHold, err
	}
	m.logger.Debug("momentum computed",
		slog.Int("observations", len(window)),
		slog.Float64("momentum", momentum),
	)
	return domain.SignalOf(momentum), nil
}

// MeanLogReturn computes the mean of consecutive log-midquote differences. The
// first observation has no predecessor and contributes no difference.
// Differences that are not finite are skipped, so a zero or negative midquote
// counts as bad data rather than an infinite move; a window with no finite
// difference left reports ErrInsufficientData. The result is snapped to zero
// when its magnitude is below 1e-4.
func MeanLogReturn(window []domain.PriceObservation) (float64, error) {
	if len(window) < 2 {
		return 0, fmt.Errorf("momentum: have %d observation(s), need at least 2: %w",
			len(window), domain.ErrInsufficientData)
	}

	var sum float64
	var n int
	prev := math.Log(window[0].Midquote())
	for _, obs := range window[1:] {
		cur := math.Log(obs.Midquote())
		diff := cur - prev
		prev = cur
		if math.IsNaN(diff) || math.IsInf(diff, 0) {
			continue
		}
		sum += diff
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("momentum: no finite log-returns in %d observations: %w",
			len(window), domain.ErrInsufficientData)
	}

	momentum := sum / float64(n)
	if math.Abs(momentum) < accuracy {
		momentum = 0
	}
	return momentum, nil
}
