// Package paper simulates order execution against live quotes. Orders never
// reach the exchange; balances are tracked in memory.
package paper

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// Compile-time interface check.
var _ domain.ExchangeGateway = (*Gateway)(nil)

// Fill is a simulated execution.
type Fill struct {
	ID        string
	AssetPair string
	Action    domain.Action
	Volume    float64
	Price     float64
	Timestamp time.Time
}

// Gateway fills market orders at the touch: buys at the best ask, sells at
// the best bid.
type Gateway struct {
	source   domain.QuoteSource
	balances map[string]decimal.Decimal
	fills    []Fill
	now      func() time.Time
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewGateway creates a paper gateway reading prices from source and starting
// from the given balances.
func NewGateway(source domain.QuoteSource, initial map[string]float64, logger *slog.Logger) *Gateway {
	balances := make(map[string]decimal.Decimal, len(initial))
	for asset, amount := range initial {
		balances[asset] = decimal.NewFromFloat(amount)
	}
	return &Gateway{
		source:   source,
		balances: balances,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "paper_gateway")),
	}
}

// GetPrice passes through to the quote source.
func (g *Gateway) GetPrice(ctx context.Context, assetPair string, side domain.Side) (domain.Quote, error) {
	return g.source.GetPrice(ctx, assetPair, side)
}

// GetBalance returns the simulated balances sorted by asset. The API key is
// ignored.
func (g *Gateway) GetBalance(_ context.Context, _ string) ([]domain.Balance, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.Balance, 0, len(g.balances))
	for asset, amount := range g.balances {
		out = append(out, domain.Balance{Asset: asset, Balance: amount.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out, nil
}

// GetPendingOrders always returns none: simulated market orders fill
// immediately.
func (g *Gateway) GetPendingOrders(_ context.Context, _ string) ([]domain.PendingOrder, error) {
	return []domain.PendingOrder{}, nil
}

// SendMarketOrder fills the order at the opposite touch and moves balances.
// An order the simulated account cannot cover is rejected.
func (g *Gateway) SendMarketOrder(ctx context.Context, req domain.MarketOrderRequest) (domain.Execution, error) {
	var side domain.Side
	switch req.Action {
	case domain.ActionBuy:
		side = domain.SideSell
	case domain.ActionSell:
		side = domain.SideBuy
	default:
		return domain.Execution{}, &domain.GatewayError{
			Op:  "send market order",
			Err: fmt.Errorf("action %q: %w", req.Action, domain.ErrInvalidOrder),
		}
	}
	if req.Volume <= 0 {
		return domain.Execution{}, &domain.GatewayError{
			Op:  "send market order",
			Err: fmt.Errorf("volume %v: %w", req.Volume, domain.ErrInvalidOrder),
		}
	}

	quote, err := g.source.GetPrice(ctx, req.AssetPair, side)
	if err != nil {
		return domain.Execution{}, err
	}

	base := req.Asset
	counter := CounterAsset(req.AssetPair, base)
	volume := decimal.NewFromFloat(req.Volume)
	notional := volume.Mul(decimal.NewFromFloat(quote.Price))

	g.mu.Lock()
	defer g.mu.Unlock()

	switch req.Action {
	case domain.ActionBuy:
		if g.balances[counter].LessThan(notional) {
			return domain.Execution{}, g.insufficient(counter, notional)
		}
		g.balances[counter] = g.balances[counter].Sub(notional)
		g.balances[base] = g.balances[base].Add(volume)
	case domain.ActionSell:
		if g.balances[base].LessThan(volume) {
			return domain.Execution{}, g.insufficient(base, volume)
		}
		g.balances[base] = g.balances[base].Sub(volume)
		g.balances[counter] = g.balances[counter].Add(notional)
	}

	fill := Fill{
		ID:        uuid.NewString(),
		AssetPair: req.AssetPair,
		Action:    req.Action,
		Volume:    req.Volume,
		Price:     quote.Price,
		Timestamp: g.now(),
	}
	g.fills = append(g.fills, fill)

	g.logger.InfoContext(ctx, "paper fill",
		slog.String("fill_id", fill.ID),
		slog.String("asset_pair", fill.AssetPair),
		slog.String("action", string(fill.Action)),
		slog.Float64("volume", fill.Volume),
		slog.Float64("price", fill.Price),
	)
	return domain.Execution{Timestamp: fill.Timestamp, Price: fill.Price}, nil
}

// Fills returns a copy of all simulated executions, oldest first.
func (g *Gateway) Fills() []Fill {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Fill, len(g.fills))
	copy(out, g.fills)
	return out
}

func (g *Gateway) insufficient(asset string, need decimal.Decimal) error {
	return &domain.GatewayError{
		Op: "send market order",
		Err: fmt.Errorf("paper balance %s %s below %s: %w",
			g.balances[asset].String(), asset, need.String(), domain.ErrInvalidOrder),
	}
}

// CounterAsset returns the other asset of pair, e.g. "USD" for ("BTCUSD",
// "BTC"). Separators such as "-" and "/" are tolerated.
func CounterAsset(pair, asset string) string {
	rest := pair
	switch {
	case strings.HasPrefix(pair, asset):
		rest = pair[len(asset):]
	case strings.HasSuffix(pair, asset):
		rest = pair[:len(pair)-len(asset)]
	}
	return strings.Trim(rest, "-/_")
}
