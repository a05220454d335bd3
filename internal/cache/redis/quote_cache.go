package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// QuoteCache stores the latest observation per asset pair as a hash at
// "quote:{pair}" with fields buy, sell, buy_volume, sell_volume and ts
// (Unix nanoseconds).
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuoteCache creates a QuoteCache. A positive ttl expires quotes that
// are not refreshed, so a stopped trader does not leave a stale price.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying(), ttl: ttl}
}

func quoteKey(assetPair string) string {
	return "quote:" + assetPair
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func quoteFields(obs domain.PriceObservation) map[string]any {
	return map[string]any{
		"buy":         formatFloat(obs.BuyPrice),
		"sell":        formatFloat(obs.SellPrice),
		"buy_volume":  formatFloat(obs.BuyVolume),
		"sell_volume": formatFloat(obs.SellVolume),
		"ts":          strconv.FormatInt(obs.Timestamp.UnixNano(), 10),
	}
}

// parseQuote rebuilds an observation from hash fields. Missing price or
// timestamp fields read as domain.ErrNotFound.
func parseQuote(assetPair string, vals map[string]string) (domain.PriceObservation, error) {
	obs := domain.PriceObservation{AssetPair: assetPair}
	for _, f := range []struct {
		name     string
		dst      *float64
		required bool
	}{
		{"buy", &obs.BuyPrice, true},
		{"sell", &obs.SellPrice, true},
		{"buy_volume", &obs.BuyVolume, false},
		{"sell_volume", &obs.SellVolume, false},
	} {
		raw, ok := vals[f.name]
		if !ok {
			if f.required {
				return domain.PriceObservation{}, domain.ErrNotFound
			}
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.PriceObservation{}, fmt.Errorf("redis: parse %s %s: %w", f.name, assetPair, err)
		}
		*f.dst = v
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return domain.PriceObservation{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return domain.PriceObservation{}, fmt.Errorf("redis: parse ts %s: %w", assetPair, err)
	}
	obs.Timestamp = time.Unix(0, tsNano).UTC()
	return obs, nil
}

// SetLatest overwrites the cached quote for obs.AssetPair.
func (qc *QuoteCache) SetLatest(ctx context.Context, obs domain.PriceObservation) error {
	key := quoteKey(obs.AssetPair)
	pipe := qc.rdb.TxPipeline()
	pipe.HSet(ctx, key, quoteFields(obs))
	if qc.ttl > 0 {
		pipe.Expire(ctx, key, qc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", obs.AssetPair, err)
	}
	return nil
}

// GetLatest returns the cached quote, or domain.ErrNotFound.
func (qc *QuoteCache) GetLatest(ctx context.Context, assetPair string) (domain.PriceObservation, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(assetPair)).Result()
	if err != nil {
		return domain.PriceObservation{}, fmt.Errorf("redis: get quote %s: %w", assetPair, err)
	}
	if len(vals) == 0 {
		return domain.PriceObservation{}, domain.ErrNotFound
	}
	return parseQuote(assetPair, vals)
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
