// Package model defines domain entities for the application.
package model

import (
	"strconv"
	"time"
)

// Provenance identifies which source(s) contributed to a record.
type Provenance string

const (
	ProvenanceExternal Provenance = "external"
	ProvenanceCustom   Provenance = "custom"
	ProvenanceBoth     Provenance = "both"
)

// StationStatus represents the moderation status of a local station.
type StationStatus string

const (
	StationStatusActive   StationStatus = "active"
	StationStatusPending  StationStatus = "pending"
	StationStatusDisabled StationStatus = "disabled"
)

// Station represents a user-submitted station in the local catalog.
type Station struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	StreamURL   string        `json:"stream_url"`
	Homepage    string        `json:"homepage,omitempty"`
	Country     string        `json:"country,omitempty"`
	Language    string        `json:"language,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	Status      StationStatus `json:"status"`
	TotalClicks int64         `json:"total_clicks"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsActive returns true if the station is visible in the public catalog.
func (s *Station) IsActive() bool {
	return s.Status == StationStatusActive
}

// Record converts a local station into the source-neutral StationRecord shape.
func (s *Station) Record() StationRecord {
	return StationRecord{
		ID:         strconv.FormatInt(s.ID, 10),
		Name:       s.Name,
		Country:    s.Country,
		Language:   s.Language,
		Tags:       s.Tags,
		StreamURL:  s.StreamURL,
		Homepage:   s.Homepage,
		Popularity: s.TotalClicks,
		Provenance: ProvenanceCustom,
	}
}

// StationRecord is the normalized station shape shared by both catalog sources.
// ID is opaque: a UUID for external records, a numeric string for local ones.
// Identity is unique within a provenance only; records are never fused across
// sources at the station level.
type StationRecord struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Country     string     `json:"country,omitempty"`
	CountryCode string     `json:"country_code,omitempty"`
	Language    string     `json:"language,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	StreamURL   string     `json:"stream_url"`
	Homepage    string     `json:"homepage,omitempty"`
	Popularity  int64      `json:"popularity"`
	Provenance  Provenance `json:"provenance"`
}
