package model

import "strings"

// FacetType is a categorical dimension over which station counts aggregate.
type FacetType string

const (
	FacetCountries FacetType = "countries"
	FacetGenres    FacetType = "genres"
	FacetLanguages FacetType = "languages"
)

// FacetCount is one merged entry of a facet aggregation. Key is the
// reconciliation key (case-folded, trimmed label); Label keeps the first-seen
// casing for display.
type FacetCount struct {
	Key           string     `json:"-"`
	Label         string     `json:"name"`
	ExternalCount int64      `json:"external_count"`
	CustomCount   int64      `json:"custom_count"`
	Combined      int64      `json:"stationcount"`
	Provenance    Provenance `json:"provenance"`
}

// FacetKey folds a display label into the reconciliation key.
func FacetKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
