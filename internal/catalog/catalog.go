// Package catalog provides the two station catalog sources: the local
// user-submitted catalog backed by PostgreSQL and the external public
// directory reached over HTTP. Both normalize their native record shapes
// into model.StationRecord and model.FacetCount.
package catalog

import (
	"context"

	"github.com/wavedial/wavedial/internal/model"
)

// Source is a normalizing client for one catalog. Implementations must be
// safe for concurrent use; they hold no mutable shared state beyond their
// connection pools.
type Source interface {
	// Name identifies the source in logs and provenance tags.
	Name() string

	// FetchFacet returns aggregated station counts for one facet.
	FetchFacet(ctx context.Context, facet model.FacetType, q FacetQuery) ([]model.FacetCount, error)

	// FetchStations returns stations matching the query, ordered by the
	// source's own popularity field.
	FetchStations(ctx context.Context, q StationQuery) ([]model.StationRecord, error)
}

// FacetQuery carries facet fetch parameters.
type FacetQuery struct {
	Limit int
}

// StationQuery carries station fetch parameters. Popular selects the
// source's top-ranked stations and ignores the text filters.
type StationQuery struct {
	Country  string
	Language string
	Tag      string
	Search   string
	Popular  bool
	Limit    int
	Offset   int
}
