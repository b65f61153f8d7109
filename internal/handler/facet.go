package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wavedial/wavedial/internal/aggregate"
	"github.com/wavedial/wavedial/internal/catalog"
	"github.com/wavedial/wavedial/internal/handler/dto"
)

// FacetHandler serves the aggregated directory views.
type FacetHandler struct {
	agg    *aggregate.Aggregator
	logger *slog.Logger
}

// NewFacetHandler creates a new FacetHandler.
func NewFacetHandler(agg *aggregate.Aggregator, logger *slog.Logger) *FacetHandler {
	return &FacetHandler{
		agg:    agg,
		logger: logger.With("component", "handler.facet"),
	}
}

// Countries handles GET /api/v1/countries.
func (h *FacetHandler) Countries(w http.ResponseWriter, r *http.Request) {
	h.facet(w, r, h.agg.Countries)
}

// Genres handles GET /api/v1/genres.
func (h *FacetHandler) Genres(w http.ResponseWriter, r *http.Request) {
	h.facet(w, r, h.agg.Genres)
}

// Languages handles GET /api/v1/languages.
func (h *FacetHandler) Languages(w http.ResponseWriter, r *http.Request) {
	h.facet(w, r, h.agg.Languages)
}

func (h *FacetHandler) facet(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, limit int) (*aggregate.FacetResult, error)) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := fetch(r.Context(), limit)
	if err != nil {
		h.handleAggregationError(w, "facet", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FacetResponse{
		Success:  true,
		Facet:    string(result.Facet),
		Items:    result.Items,
		Top:      result.Top,
		Summary:  result.Summary,
		Total:    result.Summary.UniqueTotal,
		Degraded: result.Degraded,
	})
}

// Popular handles GET /api/v1/stations/popular.
func (h *FacetHandler) Popular(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.agg.Popular(r.Context(), limit)
	if err != nil {
		h.handleAggregationError(w, "popular", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PopularResponse{
		Success:  true,
		Stations: result.Stations,
		Total:    len(result.Stations),
		Degraded: result.Degraded,
	})
}

// Search handles GET /api/v1/stations/search.
func (h *FacetHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	query := r.URL.Query()
	q := catalog.StationQuery{
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
		q.Offset = (page - 1) * aggregate.ClampLimit(limit)
	}

	result, err := h.agg.Search(r.Context(), q)
	if err != nil {
		h.handleAggregationError(w, "search", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SearchResponse{
		Success:        true,
		CustomRadios:   result.Custom,
		ExternalRadios: result.External,
		CustomTotal:    result.CustomTotal,
		ExternalTotal:  result.ExternalTotal,
		Degraded:       result.Degraded,
	})
}

func (h *FacetHandler) handleAggregationError(w http.ResponseWriter, facet string, err error) {
	if errors.Is(err, aggregate.ErrAggregationUnavailable) {
		h.logger.Error("aggregation unavailable", "facet", facet, "error", err)
		writeError(w, http.StatusServiceUnavailable, "AGGREGATION_UNAVAILABLE", "Both catalog sources are unavailable, try again later")
		return
	}

	h.logger.Error("aggregation failed", "facet", facet, "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}

// parseLimit reads the optional limit query parameter. Zero means the
// aggregator default; values above the maximum are clamped downstream.
func parseLimit(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	return limit, nil
}
