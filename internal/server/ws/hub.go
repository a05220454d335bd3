// Package ws streams trader events (prices, cycles, orders) from the event
// bus to websocket clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// DefaultChannels are the bus channels bridged when Config.Channels is empty.
var DefaultChannels = []string{
	domain.ChannelPrices,
	domain.ChannelCycles,
	domain.ChannelOrders,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Access is gated by the API-key middleware, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// envelope is every frame the hub sends. Type is hello, event,
// subscriptions or error.
type envelope struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Config carries the metadata reported to clients on connect.
type Config struct {
	Mode      string
	AssetPair string
	StartedAt time.Time
	Channels  []string
}

// Hub fans bus messages out to the clients subscribed to their channel.
type Hub struct {
	bus       domain.EventBus
	channels  []string
	mode      string
	assetPair string
	startedAt time.Time
	logger    *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a Hub reading from bus.
func NewHub(bus domain.EventBus, logger *slog.Logger, cfg Config) *Hub {
	channels := cfg.Channels
	if len(channels) == 0 {
		channels = DefaultChannels
	}
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	return &Hub{
		bus:       bus,
		channels:  channels,
		mode:      strings.ToLower(strings.TrimSpace(cfg.Mode)),
		assetPair: cfg.AssetPair,
		startedAt: startedAt,
		logger:    logger.With(slog.String("component", "ws_hub")),
		clients:   make(map[*client]struct{}),
	}
}

// Run bridges every channel from the bus until ctx is cancelled, then
// disconnects all clients.
func (h *Hub) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, ch := range h.channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.bridge(ctx, ch)
		}()
	}

	<-ctx.Done()
	wg.Wait()

	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		c.close()
	}
	clear(h.clients)
	h.mu.Unlock()
	return ctx.Err()
}

// bridge forwards one bus channel to the clients.
func (h *Hub) bridge(ctx context.Context, channel string) {
	msgs, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.ErrorContext(ctx, "subscribe to channel failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.DebugContext(ctx, "bridging channel", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgs:
			if !ok {
				h.logger.WarnContext(ctx, "channel subscription closed", slog.String("channel", channel))
				return
			}
			h.fanout(ctx, channel, data)
		}
	}
}

func (h *Hub) fanout(ctx context.Context, channel string, data []byte) {
	frame, err := json.Marshal(envelope{Type: "event", Channel: channel, Payload: asJSON(data)})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.isSubscribed(channel) && !c.enqueue(frame) {
			h.logger.WarnContext(ctx, "dropping message for slow client", slog.String("channel", channel))
		}
	}
}

// asJSON passes valid JSON through and quotes anything else.
func asJSON(data []byte) json.RawMessage {
	if json.Valid(data) {
		return data
	}
	quoted, _ := json.Marshal(string(data))
	return quoted
}

func (h *Hub) known(channel string) bool { return slices.Contains(h.channels, channel) }

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Info("client connected", slog.Int("total_clients", len(h.clients)))
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	h.logger.Info("client disconnected", slog.Int("total_clients", len(h.clients)))
}

// HandleWS upgrades the request and subscribes the client to every bridged
// channel. Clients narrow the set with subscribe/unsubscribe messages.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newClient(h, conn)
	if !h.add(c) {
		_ = conn.Close()
		return
	}
	c.enqueue(c.helloFrame())

	go c.writePump()
	go c.readPump()
}
