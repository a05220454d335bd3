package strategy

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// Threshold compares the newest quote with the window average. A buy price
// above its mean wins over a sell price below its mean.
type Threshold struct {
	lookback time.Duration
	logger   *slog.Logger
}

// NewThreshold creates a Threshold policy.
func NewThreshold(cfg Config, logger *slog.Logger) *Threshold {
	return &Threshold{
		lookback: cfg.Lookback,
		logger:   logger.With(slog.String("strategy", "threshold")),
	}
}

// Name returns the strategy identifier.
func (t *Threshold) Name() string { return "threshold" }

// Lookback returns the history duration Decide expects.
func (t *Threshold) Lookback() time.Duration { return t.lookback }

// Decide evaluates the buy side first, then the sell side.
func (t *Threshold) Decide(window []domain.PriceObservation) (domain.Signal, error) {
	if len(window) == 0 {
		return domain.SignalHold, fmt.Errorf("threshold: empty window: %w", domain.ErrInsufficientData)
	}

	var sumBuy, sumSell float64
	for _, obs := range window {
		sumBuy += obs.BuyPrice
		sumSell += obs.SellPrice
	}
	n := float64(len(window))
	meanBuy, meanSell := sumBuy/n, sumSell/n
	current := window[len(window)-1]

	t.logger.Debug("threshold evaluated",
		slog.Float64("buy", current.BuyPrice),
		slog.Float64("mean_buy", meanBuy),
		slog.Float64("sell", current.SellPrice),
		slog.Float64("mean_sell", meanSell),
	)

	switch {
	case current.BuyPrice-meanBuy > accuracy:
		return domain.SignalBuy, nil
	case current.SellPrice-meanSell < -accuracy:
		return domain.SignalSell, nil
	default:
		return domain.SignalHold, nil
	}
}
