package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wavedial/wavedial/internal/handler/dto"
	"github.com/wavedial/wavedial/internal/model"
	"github.com/wavedial/wavedial/internal/repository"
)

// StationHandler serves the local catalog's station resources.
type StationHandler struct {
	repo   *repository.Repository
	logger *slog.Logger
}

// NewStationHandler creates a new StationHandler.
func NewStationHandler(repo *repository.Repository, logger *slog.Logger) *StationHandler {
	return &StationHandler{
		repo:   repo,
		logger: logger.With("component", "handler.station"),
	}
}

// Get handles GET /api/v1/stations/{id}. The total_clicks counter is
// read-after-write consistent with click registration on the same pool.
func (h *StationHandler) Get(w http.ResponseWriter, r *http.Request) {
	stationID, ok := h.stationID(w, r)
	if !ok {
		return
	}

	station, err := h.repo.GetStationByID(r.Context(), stationID)
	if err != nil {
		if errors.Is(err, repository.ErrStationNotFound) {
			writeError(w, http.StatusNotFound, "STATION_NOT_FOUND", "Station not found")
			return
		}
		h.logger.Error("failed to get station", "station_id", stationID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.StationResponse{Success: true, Station: station})
}

// Stats handles GET /api/v1/stations/{id}/stats, returning the fortnightly
// rollup rows for one station, most recent first.
func (h *StationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stationID, ok := h.stationID(w, r)
	if !ok {
		return
	}

	if _, err := h.repo.GetStationByID(r.Context(), stationID); err != nil {
		if errors.Is(err, repository.ErrStationNotFound) {
			writeError(w, http.StatusNotFound, "STATION_NOT_FOUND", "Station not found")
			return
		}
		h.logger.Error("failed to get station", "station_id", stationID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	periods, err := h.repo.GetPeriodStatistics(r.Context(), stationID, limit)
	if err != nil {
		h.logger.Error("failed to get period statistics", "station_id", stationID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.StationStatsResponse{
		Success:   true,
		StationID: stationID,
		Periods:   periods,
	})
}

// List handles GET /api/v1/stations, the local catalog listing. Only active
// stations are returned, ordered by total clicks then recency.
func (h *StationHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 50
	if l := query.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 200 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	filter := repository.StationFilter{
		Country:  query.Get("country"),
		Language: query.Get("language"),
		Tag:      query.Get("genre"),
		Search:   query.Get("search"),
		Limit:    limit,
	}

	if pageStr := query.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "page must be a positive integer")
			return
		}
		filter.Offset = (page - 1) * limit
	}

	stations, err := h.repo.ListStations(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list stations", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.StationListResponse{
		Success:  true,
		Stations: stations,
		Total:    len(stations),
	})
}

// Submit handles POST /api/v1/stations. New stations enter the catalog as
// pending and stay out of aggregation until activated.
func (h *StationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitStationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := validateSubmission(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	station := &model.Station{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		StreamURL:   req.StreamURL,
		Homepage:    req.Homepage,
		Country:     strings.TrimSpace(req.Country),
		Language:    strings.TrimSpace(req.Language),
		Tags:        normalizeTags(req.Tags),
		Status:      model.StationStatusPending,
	}

	if err := h.repo.CreateStation(r.Context(), station); err != nil {
		h.logger.Error("failed to create station", "name", station.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "PERSISTENCE_ERROR", "Failed to save station")
		return
	}

	h.logger.Info("station_submitted",
		"station_id", station.ID,
		"name", station.Name,
		"country", station.Country,
	)

	writeJSON(w, http.StatusCreated, dto.SubmitStationResponse{
		Success:     true,
		Station:     station,
		SubmittedAt: time.Now().UTC(),
	})
}

func (h *StationHandler) stationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	stationID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || stationID < 1 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "station id must be a positive integer")
		return 0, false
	}
	return stationID, true
}

func validateSubmission(req *dto.SubmitStationRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name is required")
	}
	if len(req.Name) > 200 {
		return errors.New("name too long")
	}

	parsed, err := url.Parse(req.StreamURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return errors.New("stream_url must be a valid http(s) URL")
	}

	if req.Homepage != "" {
		parsed, err := url.Parse(req.Homepage)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return errors.New("homepage must be a valid http(s) URL")
		}
	}

	return nil
}

// normalizeTags trims, lowercases and deduplicates submitted tags.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = model.FacetKey(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
