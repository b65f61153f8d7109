package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wavedial/wavedial/internal/clicks"
	"github.com/wavedial/wavedial/internal/handler/dto"
)

// ClickHandler handles station access registration.
type ClickHandler struct {
	ingestor *clicks.Ingestor
	logger   *slog.Logger
}

// NewClickHandler creates a new ClickHandler.
func NewClickHandler(ingestor *clicks.Ingestor, logger *slog.Logger) *ClickHandler {
	return &ClickHandler{
		ingestor: ingestor,
		logger:   logger.With("component", "handler.click"),
	}
}

// RegisterClick handles POST /api/v1/stations/{id}/click for local stations.
func (h *ClickHandler) RegisterClick(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	stationID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || stationID < 1 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "station id must be a positive integer")
		return
	}

	station, err := h.ingestor.RegisterClick(
		r.Context(),
		stationID,
		clientIP(r),
		r.Header.Get("User-Agent"),
		r.Header.Get("Referer"),
	)
	if err != nil {
		h.handleClickError(w, stationID, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ClickResponse{
		Success:     true,
		StationID:   idStr,
		TotalClicks: station.TotalClicks,
	})
}

// RegisterExternalClick handles POST /api/v1/stations/external/{uuid}/click.
// Failures talking to the directory are logged but never fail the listener.
func (h *ClickHandler) RegisterExternalClick(w http.ResponseWriter, r *http.Request) {
	stationUUID := chi.URLParam(r, "uuid")

	err := h.ingestor.RegisterExternalClick(r.Context(), stationUUID)
	if err != nil {
		if errors.Is(err, clicks.ErrInvalidStationUUID) {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "station uuid is not valid")
			return
		}
		h.logger.Warn("external click proxy failed",
			"station_uuid", stationUUID,
			"error", err,
		)
	}

	writeJSON(w, http.StatusOK, dto.ClickResponse{
		Success:   true,
		StationID: stationUUID,
	})
}

func (h *ClickHandler) handleClickError(w http.ResponseWriter, stationID int64, err error) {
	switch {
	case errors.Is(err, clicks.ErrStationNotFound):
		writeError(w, http.StatusNotFound, "STATION_NOT_FOUND", "Station not found")

	case errors.Is(err, clicks.ErrStationNotActive):
		// Don't reveal moderation state
		writeError(w, http.StatusNotFound, "STATION_NOT_FOUND", "Station not found")

	default:
		h.logger.Error("click registration failed",
			"station_id", stationID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "PERSISTENCE_ERROR", "Failed to register click")
	}
}

// clientIP extracts the client IP address from the request.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// Take the first IP in the chain
		for i := 0; i < len(ip); i++ {
			if ip[i] == ',' {
				return ip[:i]
			}
		}
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
