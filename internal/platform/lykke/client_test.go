package lykke

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const orderBookJSON = `[
  {"AssetPair":"BTCUSD","IsBuy":false,"Timestamp":"2024-05-01T10:00:00.123","Prices":[
    {"Volume":-0.5,"Price":101.5},{"Volume":-1.2,"Price":101.0},{"Volume":-2,"Price":102.25}]},
  {"AssetPair":"BTCUSD","IsBuy":true,"Timestamp":"2024-05-01T10:00:00.123","Prices":[
    {"Volume":0.7,"Price":99.0},{"Volume":0.3,"Price":100.5}]}
]`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Timeout: time.Second, VolumeAccuracy: 4}, discard)
}

func TestGetPriceUsesBestOfEachBook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/OrderBooks/BTCUSD", r.URL.Path)
		_, _ = io.WriteString(w, orderBookJSON)
	})

	buy, err := c.GetPrice(context.Background(), "BTCUSD", domain.SideBuy)
	require.NoError(t, err)
	assert.Equal(t, 100.5, buy.Price)
	assert.Equal(t, 0.3, buy.Volume)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC), buy.Timestamp)

	sell, err := c.GetPrice(context.Background(), "BTCUSD", domain.SideSell)
	require.NoError(t, err)
	assert.Equal(t, 101.0, sell.Price)
	assert.Equal(t, 1.2, sell.Volume)
}

func TestGetPriceEmptyBook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"IsBuy":true,"Prices":[]},{"IsBuy":false,"Prices":[]}]`)
	})

	_, err := c.GetPrice(context.Background(), "BTCUSD", domain.SideBuy)
	require.Error(t, err)
	assert.True(t, domain.IsGatewayError(err))
	assert.ErrorIs(t, err, domain.ErrEmptyOrderBook)
}

func TestGetBalanceSendsAPIKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `[{"AssetId":"BTC","Balance":1.5,"Reserved":0.25},{"AssetId":"USD","Balance":100,"Reserved":0}]`)
	})

	balances, err := c.GetBalance(context.Background(), "secret")
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, domain.Balance{Asset: "BTC", Balance: 1.5, Reserved: 0.25}, balances[0])

	_, err = c.GetBalance(context.Background(), "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.True(t, domain.IsGatewayError(err))
}

func TestGetPendingOrders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "InOrderBook", r.URL.Query().Get("status"))
		_, _ = io.WriteString(w, `[{"Id":"o-1","Status":"InOrderBook","AssetPairId":"BTCUSD","Volume":0.1,"Price":99,"RemainingVolume":0.1,"CreatedAt":"2024-05-01T09:00:00Z"}]`)
	})

	orders, err := c.GetPendingOrders(context.Background(), "secret")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o-1", orders[0].ID)
	assert.Equal(t, "BTCUSD", orders[0].AssetPair)
}

func TestSendMarketOrderRoundsVolume(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/Orders/v2/market", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"Price":101.37}`)
	})

	exec, err := c.SendMarketOrder(context.Background(), domain.MarketOrderRequest{
		APIKey: "secret", AssetPair: "BTCUSD", Asset: "BTC", Action: domain.ActionSell, Volume: 0.123456,
	})
	require.NoError(t, err)
	assert.Equal(t, 101.37, exec.Price)
	assert.False(t, exec.Timestamp.IsZero())

	assert.Equal(t, "Sell", got["OrderAction"])
	assert.Equal(t, "BTCUSD", got["AssetPairId"])
	assert.Equal(t, 0.1235, got["Volume"])
}

func TestSendMarketOrderRejectsTinyVolume(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.SendMarketOrder(context.Background(), domain.MarketOrderRequest{
		Action: domain.ActionBuy, Volume: 0.00001,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestServerErrorIsGatewayError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"Code":"NotEnoughFunds","Message":"not enough funds"}`)
	})

	_, err := c.SendMarketOrder(context.Background(), domain.MarketOrderRequest{Action: domain.ActionBuy, Volume: 1})
	require.Error(t, err)
	assert.True(t, domain.IsGatewayError(err))
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
	assert.Contains(t, err.Error(), "not enough funds")
}

func TestIsAlive(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/IsAlive", r.URL.Path)
		_, _ = io.WriteString(w, `{"Version":"1.0"}`)
	})
	assert.NoError(t, c.IsAlive(context.Background()))
}
