package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/tradebot/internal/domain"
	"github.com/alanyoungcy/tradebot/internal/trader"
)

// StatusSource is the in-process trader, when one runs.
type StatusSource interface {
	Status() trader.Status
	Recent(limit int) []domain.CycleReport
}

// LatestQuoter returns the most recent cached observation for a pair.
type LatestQuoter interface {
	Latest(ctx context.Context, assetPair string) (domain.PriceObservation, error)
}

// StatusHandler serves the trader status and its recent cycles.
type StatusHandler struct {
	mode      string
	assetPair string
	startedAt time.Time
	source    StatusSource
	quotes    LatestQuoter
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. source and quotes may be nil, as
// in server mode where no trader runs in this process.
func NewStatusHandler(mode, assetPair string, source StatusSource, quotes LatestQuoter, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		assetPair: assetPair,
		startedAt: time.Now(),
		source:    source,
		quotes:    quotes,
		logger:    logger,
	}
}

type statusResponse struct {
	Mode          string                   `json:"mode"`
	AssetPair     string                   `json:"asset_pair"`
	UptimeSeconds int64                    `json:"uptime_seconds"`
	Trader        *trader.Status           `json:"trader,omitempty"`
	LatestQuote   *domain.PriceObservation `json:"latest_quote,omitempty"`
	Midquote      float64                  `json:"midquote,omitempty"`
}

// GetStatus returns the mode, the trader counters and last cycle, and the
// latest cached quote.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Mode:          h.mode,
		AssetPair:     h.assetPair,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}
	if h.source != nil {
		st := h.source.Status()
		resp.Trader = &st
	}
	if h.quotes != nil {
		obs, err := h.quotes.Latest(r.Context(), h.assetPair)
		switch {
		case err == nil:
			resp.LatestQuote = &obs
			resp.Midquote = obs.Midquote()
		case !errors.Is(err, domain.ErrNotFound):
			h.logger.WarnContext(r.Context(), "status: latest quote lookup failed",
				slog.String("error", err.Error()),
			)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListCycles returns the most recent cycle reports, newest first.
// GET /api/cycles?limit=20
func (h *StatusHandler) ListCycles(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		writeError(w, http.StatusNotFound, "no trader running in this process")
		return
	}
	limit, err := queryInt(r, "limit", 20, maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cycles": h.source.Recent(limit),
	})
}
