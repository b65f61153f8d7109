// Package dto defines request/response shapes for the HTTP API.
package dto

import (
	"time"

	"github.com/wavedial/wavedial/internal/aggregate"
	"github.com/wavedial/wavedial/internal/model"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// FacetResponse wraps a merged facet result. Success stays true under
// partial source failure; Degraded names the sources that contributed
// nothing.
type FacetResponse struct {
	Success  bool               `json:"success"`
	Facet    string             `json:"facet"`
	Items    []model.FacetCount `json:"items"`
	Top      []model.FacetCount `json:"top"`
	Summary  aggregate.Summary  `json:"summary"`
	Total    int                `json:"total"`
	Degraded []string           `json:"degraded,omitempty"`
}

// PopularResponse wraps the cross-source popularity ranking.
type PopularResponse struct {
	Success  bool                  `json:"success"`
	Stations []model.StationRecord `json:"stations"`
	Total    int                   `json:"total"`
	Degraded []string              `json:"degraded,omitempty"`
}

// SearchResponse keeps the two sources' hits separate.
type SearchResponse struct {
	Success        bool                  `json:"success"`
	CustomRadios   []model.StationRecord `json:"custom_radios"`
	ExternalRadios []model.StationRecord `json:"external_radios"`
	CustomTotal    int                   `json:"custom_total"`
	ExternalTotal  int                   `json:"external_total"`
	Degraded       []string              `json:"degraded,omitempty"`
}

// ClickResponse reports a registered click and the updated counter.
type ClickResponse struct {
	Success     bool   `json:"success"`
	StationID   string `json:"station_id"`
	TotalClicks int64  `json:"total_clicks,omitempty"`
}

// StationListResponse wraps a page of local catalog stations.
type StationListResponse struct {
	Success  bool             `json:"success"`
	Stations []*model.Station `json:"stations"`
	Total    int              `json:"total"`
}

// StationResponse wraps a single local catalog station.
type StationResponse struct {
	Success bool           `json:"success"`
	Station *model.Station `json:"station"`
}

// StationStatsResponse carries the fortnightly rollups for one station.
type StationStatsResponse struct {
	Success   bool                     `json:"success"`
	StationID int64                    `json:"station_id"`
	Periods   []*model.PeriodStatistic `json:"periods"`
}

// SubmitStationRequest is the station submission payload.
type SubmitStationRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	StreamURL   string   `json:"stream_url"`
	Homepage    string   `json:"homepage,omitempty"`
	Country     string   `json:"country,omitempty"`
	Language    string   `json:"language,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// SubmitStationResponse is returned on successful station submission.
type SubmitStationResponse struct {
	Success     bool           `json:"success"`
	Station     *model.Station `json:"station"`
	SubmittedAt time.Time      `json:"submitted_at"`
}
