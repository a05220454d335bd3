package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradebot/internal/domain"
	"github.com/alanyoungcy/tradebot/internal/store/memory"
	"github.com/alanyoungcy/tradebot/internal/trader"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var t0 = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func do(h http.HandlerFunc, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func seeded(t *testing.T) *memory.HistoryStore {
	t.Helper()
	store := memory.NewHistoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordPrice(ctx, domain.PriceObservation{
			AssetPair: "BTCUSD",
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
			BuyPrice:  100 + float64(i),
			SellPrice: 101 + float64(i),
		}))
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordOrder(ctx, domain.OrderRecord{
			ID:         string(rune('a' + i)),
			AssetPair:  "BTCUSD",
			ExecutedAt: t0.Add(time.Duration(i) * time.Minute),
			Action:     domain.ActionBuy,
		}))
	}
	return store
}

func TestListPrices(t *testing.T) {
	h := NewPriceHandler(seeded(t), "BTCUSD", discard)

	rec := do(h.ListPrices, http.MethodGet, "/api/prices?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		AssetPair    string                    `json:"asset_pair"`
		Observations []domain.PriceObservation `json:"observations"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Observations, 2)
	assert.Equal(t, t0.Add(3*time.Minute), body.Observations[0].Timestamp)
	assert.Equal(t, t0.Add(4*time.Minute), body.Observations[1].Timestamp)

	rec = do(h.ListPrices, http.MethodGet, "/api/prices?since="+t0.Add(2*time.Minute).Format(time.RFC3339))
	decode(t, rec, &body)
	assert.Len(t, body.Observations, 2)

	rec = do(h.ListPrices, http.MethodGet, "/api/prices?pair=ETHUSD")
	decode(t, rec, &body)
	assert.Equal(t, "ETHUSD", body.AssetPair)
	assert.NotNil(t, body.Observations)
	assert.Empty(t, body.Observations)

	assert.Equal(t, http.StatusBadRequest, do(h.ListPrices, http.MethodGet, "/api/prices?since=yesterday").Code)
	assert.Equal(t, http.StatusBadRequest, do(h.ListPrices, http.MethodGet, "/api/prices?limit=-3").Code)
}

func TestListOrders(t *testing.T) {
	h := NewOrderHandler(seeded(t), "BTCUSD", discard)

	rec := do(h.ListOrders, http.MethodGet, "/api/orders?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Orders []domain.OrderRecord `json:"orders"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Orders, 2)
	assert.Equal(t, "c", body.Orders[0].ID)

	rec = do(h.ListOrders, http.MethodGet, "/api/orders?offset=2")
	decode(t, rec, &body)
	require.Len(t, body.Orders, 1)
	assert.Equal(t, "a", body.Orders[0].ID)
}

type statusSource struct{}

func (statusSource) Status() trader.Status {
	return trader.Status{AssetPair: "BTCUSD", Policy: "momentum", Cycles: 4}
}

func (statusSource) Recent(limit int) []domain.CycleReport {
	out := []domain.CycleReport{{ID: "2"}, {ID: "1"}}
	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

type quoter struct {
	obs domain.PriceObservation
	err error
}

func (q quoter) Latest(context.Context, string) (domain.PriceObservation, error) {
	return q.obs, q.err
}

func TestGetStatus(t *testing.T) {
	q := quoter{obs: domain.PriceObservation{AssetPair: "BTCUSD", BuyPrice: 100, SellPrice: 102}}
	h := NewStatusHandler("paper", "BTCUSD", statusSource{}, q, discard)

	rec := do(h.GetStatus, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var body statusResponse
	decode(t, rec, &body)
	assert.Equal(t, "paper", body.Mode)
	require.NotNil(t, body.Trader)
	assert.Equal(t, int64(4), body.Trader.Cycles)
	assert.Equal(t, 101.0, body.Midquote)

	// Server mode: no trader, no cached quote yet.
	h = NewStatusHandler("server", "BTCUSD", nil, quoter{err: domain.ErrNotFound}, discard)
	rec = do(h.GetStatus, http.MethodGet, "/api/status")
	body = statusResponse{}
	decode(t, rec, &body)
	assert.Nil(t, body.Trader)
	assert.Nil(t, body.LatestQuote)

	assert.Equal(t, http.StatusNotFound, do(h.ListCycles, http.MethodGet, "/api/cycles").Code)
}

func TestListCycles(t *testing.T) {
	h := NewStatusHandler("paper", "BTCUSD", statusSource{}, nil, discard)
	rec := do(h.ListCycles, http.MethodGet, "/api/cycles?limit=1")
	var body struct {
		Cycles []domain.CycleReport `json:"cycles"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Cycles, 1)
	assert.Equal(t, "2", body.Cycles[0].ID)
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
	}, discard)
	assert.Equal(t, http.StatusOK, do(h.HealthCheck, http.MethodGet, "/api/health").Code)

	h = NewHealthHandler(map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}, discard)
	rec := do(h.HealthCheck, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

type blobLister struct {
	prefixes []string
}

func (b *blobLister) Get(context.Context, string) (io.ReadCloser, error) { return nil, domain.ErrNotFound }

func (b *blobLister) Exists(context.Context, string) (bool, error) { return false, nil }

func (b *blobLister) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	b.prefixes = append(b.prefixes, prefix)
	return []domain.BlobInfo{{Path: prefix + "2025-01.jsonl", Size: 10}}, nil
}

func TestArchives(t *testing.T) {
	bl := &blobLister{}
	trigger := make(chan struct{}, 1)
	h := NewArchiveHandler(bl, discard).WithTriggerChannel(trigger)

	rec := do(h.ListArchives, http.MethodGet, "/api/archives?kind=orders")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"archive/orders/"}, bl.prefixes)
	assert.Equal(t, http.StatusBadRequest, do(h.ListArchives, http.MethodGet, "/api/archives?kind=trades").Code)

	assert.Equal(t, http.StatusAccepted, do(h.TriggerArchive, http.MethodPost, "/api/archives/trigger").Code)
	// A second request coalesces with the queued one.
	assert.Equal(t, http.StatusAccepted, do(h.TriggerArchive, http.MethodPost, "/api/archives/trigger").Code)
	assert.Len(t, trigger, 1)

	none := NewArchiveHandler(nil, discard)
	assert.Equal(t, http.StatusNotFound, do(none.ListArchives, http.MethodGet, "/api/archives").Code)
	assert.Equal(t, http.StatusNotFound, do(none.TriggerArchive, http.MethodPost, "/api/archives/trigger").Code)
}
