package domain

import (
	"context"
	"time"
)

// QuoteCache holds the latest observation per asset pair for fast reads by
// other processes.
type QuoteCache interface {
	SetLatest(ctx context.Context, obs PriceObservation) error
	GetLatest(ctx context.Context, assetPair string) (PriceObservation, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// Lock is a held distributed lock.
type Lock interface {
	// Extend pushes the expiry out by ttl. It fails with ErrLockHeld when the
	// lock has expired and been taken by someone else.
	Extend(ctx context.Context, ttl time.Duration) error
	Release()
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// EventBus provides pub/sub and durable streams.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// Event channel names shared by publishers and the websocket hub.
const (
	ChannelPrices = "prices"
	ChannelCycles = "cycles"
	ChannelOrders = "orders"
	StreamOrders  = "tradebot:orders"
)

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
