package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// PriceHandler serves recorded price observations.
type PriceHandler struct {
	store     domain.PriceHistoryStore
	assetPair string
	logger    *slog.Logger
}

// NewPriceHandler creates a PriceHandler defaulting to assetPair.
func NewPriceHandler(store domain.PriceHistoryStore, assetPair string, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{store: store, assetPair: assetPair, logger: logger}
}

// ListPrices returns observations strictly after since, oldest first, capped
// to the newest limit.
// GET /api/prices?pair=BTCUSD&since=2025-01-01T00:00:00Z&limit=100
func (h *PriceHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	since, err := queryTime(r, "since")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", defaultLimit, maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pair := r.URL.Query().Get("pair")
	if pair == "" {
		pair = h.assetPair
	}

	obs, err := h.store.PriceWindow(r.Context(), domain.WindowQuery{
		AssetPair: pair,
		After:     since,
		Limit:     limit,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list prices failed",
			slog.String("asset_pair", pair),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load prices")
		return
	}
	if obs == nil {
		obs = []domain.PriceObservation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset_pair":   pair,
		"observations": obs,
	})
}
