package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/tradebot/internal/server/handler"
	"github.com/alanyoungcy/tradebot/internal/store/memory"
)

func newTestServer(apiKey string) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewHistoryStore()
	return NewServer(Config{Port: 0, APIKey: apiKey}, Handlers{
		Health: handler.NewHealthHandler(nil, logger),
		Status: handler.NewStatusHandler("server", "BTCUSD", nil, nil, logger),
		Prices: handler.NewPriceHandler(store, "BTCUSD", logger),
		Orders: handler.NewOrderHandler(store, "BTCUSD", logger),
	}, nil, nil, logger)
}

func get(h http.Handler, path string, header ...string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRoutes(t *testing.T) {
	h := newTestServer("").Handler()

	assert.Equal(t, http.StatusOK, get(h, "/api/health"))
	assert.Equal(t, http.StatusOK, get(h, "/api/status"))
	assert.Equal(t, http.StatusOK, get(h, "/api/prices"))
	assert.Equal(t, http.StatusOK, get(h, "/api/orders"))
	assert.Equal(t, http.StatusOK, get(h, "/metrics"))
	// Not configured in this process.
	assert.Equal(t, http.StatusNotFound, get(h, "/api/archives"))
	assert.Equal(t, http.StatusNotFound, get(h, "/ws"))
}

func TestRoutesRequireKey(t *testing.T) {
	h := newTestServer("sekret").Handler()

	assert.Equal(t, http.StatusOK, get(h, "/api/health"))
	assert.Equal(t, http.StatusOK, get(h, "/metrics"))
	assert.Equal(t, http.StatusUnauthorized, get(h, "/api/status"))
	assert.Equal(t, http.StatusOK, get(h, "/api/status", "X-API-Key", "sekret"))
}
