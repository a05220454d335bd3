package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// OrderHandler serves the executed order log.
type OrderHandler struct {
	orders    domain.OrderHistory
	assetPair string
	logger    *slog.Logger
}

// NewOrderHandler creates an OrderHandler defaulting to assetPair.
func NewOrderHandler(orders domain.OrderHistory, assetPair string, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, assetPair: assetPair, logger: logger}
}

// ListOrders returns executed orders, newest first.
// GET /api/orders?pair=BTCUSD&since=...&until=...&limit=50&offset=0
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var opts domain.ListOpts
	var err error
	if opts.Limit, err = queryInt(r, "limit", defaultLimit, maxLimit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.Offset, err = queryInt(r, "offset", 0, 0); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	since, err := queryTime(r, "since")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	until, err := queryTime(r, "until")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !since.IsZero() {
		opts.Since = &since
	}
	if !until.IsZero() {
		opts.Until = &until
	}

	pair := r.URL.Query().Get("pair")
	if pair == "" {
		pair = h.assetPair
	}

	orders, err := h.orders.ListOrders(r.Context(), pair, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list orders failed",
			slog.String("asset_pair", pair),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load orders")
		return
	}
	if orders == nil {
		orders = []domain.OrderRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset_pair": pair,
		"orders":     orders,
	})
}
