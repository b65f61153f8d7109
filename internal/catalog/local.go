package catalog

import (
	"context"
	"fmt"

	"github.com/wavedial/wavedial/internal/model"
	"github.com/wavedial/wavedial/internal/repository"
)

// LocalSourceName tags records from the user-submitted catalog.
const LocalSourceName = "custom"

// Local is the adapter for the user-submitted catalog in PostgreSQL. Only
// active stations are visible; ordering is total clicks then recency.
type Local struct {
	repo *repository.Repository
}

// NewLocal creates a local catalog adapter.
func NewLocal(repo *repository.Repository) *Local {
	return &Local{repo: repo}
}

// Name implements Source.
func (l *Local) Name() string {
	return LocalSourceName
}

// FetchFacet implements Source.
func (l *Local) FetchFacet(ctx context.Context, facet model.FacetType, q FacetQuery) ([]model.FacetCount, error) {
	switch facet {
	case model.FacetCountries:
		return l.repo.CountStationsByCountry(ctx)
	case model.FacetGenres:
		return l.repo.CountStationsByTag(ctx)
	case model.FacetLanguages:
		return l.repo.CountStationsByLanguage(ctx)
	default:
		return nil, fmt.Errorf("unknown facet type %q", facet)
	}
}

// FetchStations implements Source. Popular queries reuse the default
// total-clicks ordering with no text filters.
func (l *Local) FetchStations(ctx context.Context, q StationQuery) ([]model.StationRecord, error) {
	filter := repository.StationFilter{
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if !q.Popular {
		filter.Country = q.Country
		filter.Language = q.Language
		filter.Tag = q.Tag
		filter.Search = q.Search
	}

	stations, err := l.repo.ListStations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("local catalog fetch: %w", err)
	}

	records := make([]model.StationRecord, 0, len(stations))
	for _, s := range stations {
		records = append(records, s.Record())
	}

	return records, nil
}
