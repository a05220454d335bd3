package strategy

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func window(mids ...float64) []domain.PriceObservation {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.PriceObservation, len(mids))
	for i, m := range mids {
		out[i] = domain.PriceObservation{
			AssetPair: "BTCUSD",
			Timestamp: base.Add(time.Duration(i) * time.Second),
			BuyPrice:  m,
			SellPrice: m,
		}
	}
	return out
}

func TestMomentumConstantPriceHolds(t *testing.T) {
	m := NewMomentum(Config{Lookback: time.Minute}, discard)

	sig, err := m.Decide(window(100, 100, 100, 100))
	require.NoError(t, err)
	assert.Equal(t, domain.SignalHold, sig)
}

func TestMomentumSingleObservation(t *testing.T) {
	m := NewMomentum(Config{}, discard)

	sig, err := m.Decide(window(100))
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
	assert.Equal(t, domain.SignalHold, sig)

	_, err = m.Decide(nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestMomentumRisingBuys(t *testing.T) {
	mom, err := MeanLogReturn(window(100, 110))
	require.NoError(t, err)
	assert.InDelta(t, math.Log(1.1), mom, 1e-9)

	sig, err := NewMomentum(Config{}, discard).Decide(window(100, 110))
	require.NoError(t, err)
	assert.Equal(t, domain.SignalBuy, sig)
}

func TestMomentumFallingSells(t *testing.T) {
	sig, err := NewMomentum(Config{}, discard).Decide(window(110, 105, 100))
	require.NoError(t, err)
	assert.Equal(t, domain.SignalSell, sig)
}

func TestMomentumBelowAccuracyHolds(t *testing.T) {
	// log(100.005/100) is roughly 5e-5.
	mom, err := MeanLogReturn(window(100, 100.005))
	require.NoError(t, err)
	assert.Zero(t, mom)
}

func TestMomentumMidquoteUsesBothSides(t *testing.T) {
	w := []domain.PriceObservation{
		{BuyPrice: 99, SellPrice: 101},
		{BuyPrice: 109, SellPrice: 111},
	}
	mom, err := MeanLogReturn(w)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(110.0/100.0), mom, 1e-9)
}

func TestMomentumSkipsNonFiniteReturns(t *testing.T) {
	mom, err := MeanLogReturn(window(0, 100, 110))
	require.NoError(t, err)
	assert.InDelta(t, math.Log(1.1), mom, 1e-9)

	_, err = MeanLogReturn(window(0, 0))
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	// A jump from a zero midquote is bad data, not an infinite upward move.
	_, err = MeanLogReturn(window(0, 100))
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestThreshold(t *testing.T) {
	th := NewThreshold(Config{}, discard)

	t.Run("buy above mean", func(t *testing.T) {
		sig, err := th.Decide(window(100, 100, 103))
		require.NoError(t, err)
		assert.Equal(t, domain.SignalBuy, sig)
	})

	t.Run("sell below mean", func(t *testing.T) {
		w := window(100, 100, 100)
		w[2].BuyPrice = 100
		w[2].SellPrice = 97
		sig, err := th.Decide(w)
		require.NoError(t, err)
		assert.Equal(t, domain.SignalSell, sig)
	})

	t.Run("buy wins over sell", func(t *testing.T) {
		w := window(100, 100, 100)
		w[2].BuyPrice = 103
		w[2].SellPrice = 97
		sig, err := th.Decide(w)
		require.NoError(t, err)
		assert.Equal(t, domain.SignalBuy, sig)
	})

	t.Run("flat holds", func(t *testing.T) {
		sig, err := th.Decide(window(100, 100))
		require.NoError(t, err)
		assert.Equal(t, domain.SignalHold, sig)
	})

	t.Run("empty window", func(t *testing.T) {
		_, err := th.Decide(nil)
		assert.ErrorIs(t, err, domain.ErrInsufficientData)
	})
}

func TestRandomStaysInSignalSet(t *testing.T) {
	r := NewRandom(Config{Seed: 42})
	seen := map[domain.Signal]int{}
	for i := 0; i < 300; i++ {
		sig, err := r.Decide(nil)
		require.NoError(t, err)
		assert.Contains(t, []domain.Signal{domain.SignalSell, domain.SignalHold, domain.SignalBuy}, sig)
		seen[sig]++
	}
	assert.Len(t, seen, 3)
}

func TestRandomSeedIsReproducible(t *testing.T) {
	a, b := NewRandom(Config{Seed: 7}), NewRandom(Config{Seed: 7})
	for i := 0; i < 20; i++ {
		sa, _ := a.Decide(nil)
		sb, _ := b.Decide(nil)
		assert.Equal(t, sa, sb)
	}
}

func TestNoopHolds(t *testing.T) {
	sig, err := Noop{}.Decide(window(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, domain.SignalHold, sig)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"momentum", "noop", "random", "threshold"}, DefaultRegistry().List())

	p, err := New(Config{Name: "momentum", Lookback: 30 * time.Second}, discard)
	require.NoError(t, err)
	assert.Equal(t, "momentum", p.Name())
	w, ok := p.(Windowed)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, w.Lookback())

	p, err = New(Config{Name: "noop"}, discard)
	require.NoError(t, err)
	_, ok = p.(Windowed)
	assert.False(t, ok)

	_, err = New(Config{Name: "martingale"}, discard)
	assert.Error(t, err)
}

func TestLookbackFor(t *testing.T) {
	assert.Equal(t, 20*time.Second, LookbackFor(0.5, 10))
	assert.Equal(t, 5*time.Second, LookbackFor(1, 5))
	assert.Zero(t, LookbackFor(0, 5))
}
