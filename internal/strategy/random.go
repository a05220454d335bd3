package strategy

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// Random draws SELL, HOLD or BUY with equal probability. It ignores the
// window and is meant as a baseline.
type Random struct {
	rng *rand.Rand
	mu  sync.Mutex
}

// NewRandom creates a Random policy. A zero cfg.Seed seeds from the clock.
func NewRandom(cfg Config) *Random {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Random{rng: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

// Name returns the strategy identifier.
func (r *Random) Name() string { return "random" }

// Decide returns a uniformly drawn signal.
func (r *Random) Decide(_ []domain.PriceObservation) (domain.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.Signal(r.rng.IntN(3) - 1), nil
}

// Noop always holds.
type Noop struct{}

// Name returns the strategy identifier.
func (Noop) Name() string { return "noop" }

// Decide returns HOLD.
func (Noop) Decide(_ []domain.PriceObservation) (domain.Signal, error) {
	return domain.SignalHold, nil
}
