package ws

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must stay below pongWait
	maxMessageSize = 4096
	sendBufferSize = 256
)

// subscribeMsg changes a client's channel set:
// {"action":"unsubscribe","channels":["prices"]}.
type subscribeMsg struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

// client is one websocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	subs   map[string]bool
	closed bool
}

func newClient(h *Hub, conn *websocket.Conn) *client {
	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool, len(h.channels)),
	}
	for _, ch := range h.channels {
		c.subs[ch] = true
	}
	return c
}

// enqueue queues frame without blocking. It reports false when the buffer is
// full or the client is gone.
func (c *client) enqueue(frame []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close stops the write pump; it is idempotent.
func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[channel]
}

// applySubscription updates the channel set and returns the channels now
// subscribed, sorted, along with any names the hub does not bridge.
func (c *client) applySubscription(msg subscribeMsg, known func(string) bool) (current, unknown []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range msg.Channels {
		if !known(ch) {
			unknown = append(unknown, ch)
			continue
		}
		switch msg.Action {
		case "subscribe":
			c.subs[ch] = true
		case "unsubscribe":
			delete(c.subs, ch)
		}
	}
	for ch := range c.subs {
		current = append(current, ch)
	}
	slices.Sort(current)
	return current, unknown
}

func (c *client) handleMessage(data []byte) {
	var msg subscribeMsg
	if err := json.Unmarshal(data, &msg); err != nil || (msg.Action != "subscribe" && msg.Action != "unsubscribe") {
		c.enqueue(frame("error", map[string]string{"error": `expected {"action":"subscribe|unsubscribe","channels":[...]}`}))
		return
	}

	current, unknown := c.applySubscription(msg, c.hub.known)
	if len(unknown) > 0 {
		c.enqueue(frame("error", map[string]any{"error": "unknown channels", "channels": unknown}))
	}
	c.enqueue(frame("subscriptions", map[string]any{"channels": current}))
}

// helloFrame lets clients mark the stream live before the first event.
func (c *client) helloFrame() []byte {
	return frame("hello", map[string]any{
		"mode":           c.hub.mode,
		"asset_pair":     c.hub.assetPair,
		"channels":       c.hub.channels,
		"uptime_seconds": int64(time.Since(c.hub.startedAt).Seconds()),
	})
}

func frame(kind string, payload any) []byte {
	body, _ := json.Marshal(payload)
	out, _ := json.Marshal(envelope{Type: kind, Payload: body})
	return out
}

// readPump applies subscription messages until the connection drops.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close error", slog.String("error", err.Error()))
			}
			return
		}
		c.handleMessage(data)
	}
}

// writePump sends queued frames as text messages and pings on an interval.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
