package redis

import (
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

func TestQuoteFieldsRoundTrip(t *testing.T) {
	obs := domain.PriceObservation{
		AssetPair:  "BTCUSD",
		Timestamp:  time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC),
		BuyPrice:   100.25,
		SellPrice:  101.5,
		BuyVolume:  0.3,
		SellVolume: 1.2,
	}

	raw := map[string]string{}
	for k, v := range quoteFields(obs) {
		raw[k] = v.(string)
	}

	got, err := parseQuote("BTCUSD", raw)
	require.NoError(t, err)
	assert.Equal(t, obs, got)
}

func TestParseQuoteMissingFields(t *testing.T) {
	_, err := parseQuote("BTCUSD", map[string]string{"buy": "1", "ts": "0"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = parseQuote("BTCUSD", map[string]string{"buy": "1", "sell": "2"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = parseQuote("BTCUSD", map[string]string{"buy": "x", "sell": "2", "ts": "0"})
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "quote:BTCUSD", quoteKey("BTCUSD"))
	assert.Equal(t, "lock:trader:BTCUSD", lockKey(TraderLockKey("BTCUSD")))
	assert.Equal(t, "ratelimit:api:10.0.0.1", rateLimitKey("api:10.0.0.1"))
}

func TestHasPattern(t *testing.T) {
	assert.True(t, hasPattern("tradebot:*"))
	assert.False(t, hasPattern(domain.ChannelOrders))
}

func TestDecodeMessagesSkipsForeignEntries(t *testing.T) {
	msgs := decodeMessages([]goredis.XMessage{
		{ID: "1-0", Values: map[string]any{"payload": `{"id":"a"}`}},
		{ID: "2-0", Values: map[string]any{"other": "x"}},
	})
	require.Len(t, msgs, 1)
	assert.Equal(t, "1-0", msgs[0].ID)
	assert.Equal(t, []byte(`{"id":"a"}`), msgs[0].Payload)
}

func TestOptionsFromURL(t *testing.T) {
	opts, err := options(ClientConfig{Addr: "redis://:secret@cache:6380/2", PoolSize: 7})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)

	opts, err = options(ClientConfig{Addr: "localhost:6379", TLSEnabled: true})
	require.NoError(t, err)
	assert.NotNil(t, opts.TLSConfig)
}
