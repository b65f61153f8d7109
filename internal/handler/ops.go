package handler

import (
	"log/slog"
	"net/http"

	"github.com/wavedial/wavedial/internal/metrics"
	"github.com/wavedial/wavedial/internal/stats"
)

// OpsHandler exposes operational endpoints that are not part of the
// public API. Mount these under /internal and keep them off the
// public listener in production.
type OpsHandler struct {
	snapshotter metrics.Snapshotter
	roller      *stats.Roller
	logger      *slog.Logger
}

// NewOpsHandler creates a new OpsHandler. snapshotter may be nil when
// metrics are disabled.
func NewOpsHandler(snapshotter metrics.Snapshotter, roller *stats.Roller, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{
		snapshotter: snapshotter,
		roller:      roller,
		logger:      logger.With("component", "handler.ops"),
	}
}

// Metrics handles GET /internal/metrics.
func (h *OpsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		writeError(w, http.StatusNotFound, "METRICS_DISABLED", "metrics collection is disabled")
		return
	}
	writeJSON(w, http.StatusOK, h.snapshotter.Snapshot())
}

// Roll handles POST /internal/stats/roll, running one rollup pass
// immediately instead of waiting for the next tick.
func (h *OpsHandler) Roll(w http.ResponseWriter, r *http.Request) {
	if err := h.roller.RollOnce(r.Context()); err != nil {
		h.logger.Error("on-demand rollup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ROLLUP_FAILED", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}
