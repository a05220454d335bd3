package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/tradebot/internal/domain"
)

// ArchiveHandler lists exported history files in object storage.
type ArchiveHandler struct {
	reader    domain.BlobReader
	logger    *slog.Logger
	triggerCh chan<- struct{}
}

// NewArchiveHandler creates an ArchiveHandler. A nil reader answers 404.
func NewArchiveHandler(reader domain.BlobReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{reader: reader, logger: logger}
}

// WithTriggerChannel sets the channel the archive scheduler listens on for
// on-demand runs.
func (h *ArchiveHandler) WithTriggerChannel(ch chan<- struct{}) *ArchiveHandler {
	h.triggerCh = ch
	return h
}

// TriggerArchive enqueues one archive run. A request made while one is
// already queued is coalesced into it.
// POST /api/archives/trigger
func (h *ArchiveHandler) TriggerArchive(w http.ResponseWriter, r *http.Request) {
	if h.triggerCh == nil {
		writeError(w, http.StatusNotFound, "archiver not running in this process")
		return
	}
	h.logger.InfoContext(r.Context(), "archive trigger requested")
	select {
	case h.triggerCh <- struct{}{}:
	default:
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// ListArchives lists archive objects, optionally for one kind.
// GET /api/archives?kind=prices
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusNotFound, "archive storage not configured")
		return
	}

	prefix := "archive/"
	switch kind := r.URL.Query().Get("kind"); kind {
	case "":
	case "prices", "orders":
		prefix += kind + "/"
	default:
		writeError(w, http.StatusBadRequest, "kind must be prices or orders")
		return
	}

	files, err := h.reader.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list archives failed",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to list archives")
		return
	}
	if files == nil {
		files = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}
