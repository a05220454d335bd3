package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// PriceService fans recorded observations out to the quote cache and the
// event bus. Either may be nil.
type PriceService struct {
	cache  domain.QuoteCache
	bus    domain.EventBus
	logger *slog.Logger
}

// NewPriceService creates a PriceService.
func NewPriceService(cache domain.QuoteCache, bus domain.EventBus, logger *slog.Logger) *PriceService {
	return &PriceService{
		cache:  cache,
		bus:    bus,
		logger: logger.With(slog.String("component", "price_service")),
	}
}

// HandleObservation caches obs as the latest quote and publishes a price
// event. Failures are logged and never reach the trading cycle.
func (s *PriceService) HandleObservation(ctx context.Context, obs domain.PriceObservation) {
	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, obs); err != nil {
			s.logger.WarnContext(ctx, "price_service: cache latest quote failed",
				slog.String("asset_pair", obs.AssetPair),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus == nil {
		return
	}
	evt, _ := json.Marshal(map[string]any{
		"event":       "price",
		"observation": obs,
		"midquote":    obs.Midquote(),
	})
	if err := s.bus.Publish(ctx, domain.ChannelPrices, evt); err != nil {
		s.logger.WarnContext(ctx, "price_service: publish price event failed",
			slog.String("asset_pair", obs.AssetPair),
			slog.String("error", err.Error()),
		)
	}
}

// Latest returns the cached latest observation for assetPair.
func (s *PriceService) Latest(ctx context.Context, assetPair string) (domain.PriceObservation, error) {
	if s.cache == nil {
		return domain.PriceObservation{}, fmt.Errorf("price_service: latest %q: %w", assetPair, domain.ErrNotFound)
	}
	obs, err := s.cache.GetLatest(ctx, assetPair)
	if err != nil {
		return domain.PriceObservation{}, fmt.Errorf("price_service: latest %q: %w", assetPair, err)
	}
	return obs, nil
}
