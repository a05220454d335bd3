package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

type chanBus struct {
	chans map[string]chan []byte
}

func newChanBus(channels ...string) *chanBus {
	b := &chanBus{chans: make(map[string]chan []byte)}
	for _, ch := range channels {
		b.chans[ch] = make(chan []byte, 8)
	}
	return b
}

func (b *chanBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.chans[channel] <- payload
	return nil
}

func (b *chanBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	return b.chans[channel], nil
}

func (b *chanBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (b *chanBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHubBridgesBusToClient(t *testing.T) {
	bus := newChanBus(DefaultChannels...)
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Mode: "Paper", AssetPair: "BTCUSD"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := readEnvelope(t, conn)
	assert.Equal(t, "hello", hello.Type)
	assert.Contains(t, string(hello.Payload), `"mode":"paper"`)

	require.NoError(t, bus.Publish(ctx, domain.ChannelOrders, []byte(`{"event":"order","id":"o-1"}`)))
	ev := readEnvelope(t, conn)
	assert.Equal(t, "event", ev.Type)
	assert.Equal(t, domain.ChannelOrders, ev.Channel)
	assert.JSONEq(t, `{"event":"order","id":"o-1"}`, string(ev.Payload))
}

func TestClientSubscriptionChanges(t *testing.T) {
	known := func(ch string) bool { return ch == "prices" || ch == "orders" }
	c := &client{subs: map[string]bool{"prices": true, "orders": true}}

	current, unknown := c.applySubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"prices"}}, known)
	assert.Equal(t, []string{"orders"}, current)
	assert.Empty(t, unknown)
	assert.False(t, c.isSubscribed("prices"))
	assert.True(t, c.isSubscribed("orders"))

	current, unknown = c.applySubscription(subscribeMsg{Action: "subscribe", Channels: []string{"prices", "trades"}}, known)
	assert.Equal(t, []string{"orders", "prices"}, current)
	assert.Equal(t, []string{"trades"}, unknown)
	assert.False(t, c.isSubscribed("trades"))
}

func TestUnsubscribeOverTheWire(t *testing.T) {
	bus := newChanBus(DefaultChannels...)
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "hello", readEnvelope(t, conn).Type)

	require.NoError(t, conn.WriteJSON(subscribeMsg{Action: "unsubscribe", Channels: []string{domain.ChannelPrices}}))
	ack := readEnvelope(t, conn)
	assert.Equal(t, "subscriptions", ack.Type)
	assert.JSONEq(t, `{"channels":["cycles","orders"]}`, string(ack.Payload))

	require.NoError(t, bus.Publish(ctx, domain.ChannelPrices, []byte(`{"event":"price"}`)))
	require.NoError(t, bus.Publish(ctx, domain.ChannelCycles, []byte(`{"event":"cycle"}`)))
	ev := readEnvelope(t, conn)
	assert.Equal(t, domain.ChannelCycles, ev.Channel)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("nonsense")))
	assert.Equal(t, "error", readEnvelope(t, conn).Type)
}

func TestAsJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(asJSON([]byte(`{"a":1}`))))
	assert.Equal(t, `"plain text"`, string(asJSON([]byte("plain text"))))
}
