// Package aggregate implements the reconciliation engine that merges the
// local and external station catalogs into one coherent view per facet.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/wavedial/wavedial/internal/catalog"
	"github.com/wavedial/wavedial/internal/metrics"
	"github.com/wavedial/wavedial/internal/model"
)

// Aggregation errors.
var (
	// ErrAggregationUnavailable is returned only when both catalog sources
	// fail. A single-source failure degrades that side to an empty set.
	ErrAggregationUnavailable = errors.New("both catalog sources unavailable")

	// ErrInvalidFacet is returned for unknown facet types.
	ErrInvalidFacet = errors.New("invalid facet type")
)

const (
	// MaxLimit caps any requested result size.
	MaxLimit = 500
	// DefaultLimit applies when no limit is requested.
	DefaultLimit = 100
	// TopCount is the size of the separate top slice in facet results.
	TopCount = 10
)

// Aggregator produces ranked, deduplicated views over the two catalog
// sources. Each invocation is stateless and independently re-computable.
type Aggregator struct {
	local    catalog.Source
	external catalog.Source
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// New creates an Aggregator over the given sources.
func New(local, external catalog.Source, logger *slog.Logger, recorder metrics.Recorder) *Aggregator {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Aggregator{
		local:    local,
		external: external,
		logger:   logger.With("component", "aggregate"),
		metrics:  recorder,
	}
}

// Summary describes the provenance composition of a merged facet result.
type Summary struct {
	ExternalOnly int `json:"external_only"`
	CustomOnly   int `json:"custom_only"`
	Both         int `json:"both"`
	UniqueTotal  int `json:"unique_total"`
}

// FacetResult is the merged output for a countries/genres request.
type FacetResult struct {
	Facet    model.FacetType    `json:"facet"`
	Items    []model.FacetCount `json:"items"`
	Top      []model.FacetCount `json:"top"`
	Summary  Summary            `json:"summary"`
	Degraded []string           `json:"degraded,omitempty"` // sources that failed
}

// PopularResult is the cross-source popularity ranking. Records keep their
// per-source identity; no key merge happens here because the ranking field
// differs by provenance and no cross-source identity exists.
type PopularResult struct {
	Stations []model.StationRecord `json:"stations"`
	Degraded []string              `json:"degraded,omitempty"`
}

// SearchResult keeps the two sources' hits separate so callers retain
// provenance transparency.
type SearchResult struct {
	Custom        []model.StationRecord `json:"custom_radios"`
	External      []model.StationRecord `json:"external_radios"`
	CustomTotal   int                   `json:"custom_total"`
	ExternalTotal int                   `json:"external_total"`
	Degraded      []string              `json:"degraded,omitempty"`
}

// Countries merges the countries facet from both sources.
func (a *Aggregator) Countries(ctx context.Context, limit int) (*FacetResult, error) {
	return a.facet(ctx, model.FacetCountries, limit)
}

// Genres merges the genres/tags facet from both sources. Entries whose key
// is empty after trimming, or whose combined count is not positive, are
// dropped.
func (a *Aggregator) Genres(ctx context.Context, limit int) (*FacetResult, error) {
	return a.facet(ctx, model.FacetGenres, limit)
}

// Languages merges the languages facet from both sources.
func (a *Aggregator) Languages(ctx context.Context, limit int) (*FacetResult, error) {
	return a.facet(ctx, model.FacetLanguages, limit)
}

func (a *Aggregator) facet(ctx context.Context, facet model.FacetType, limit int) (*FacetResult, error) {
	switch facet {
	case model.FacetCountries, model.FacetGenres, model.FacetLanguages:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFacet, facet)
	}

	limit = ClampLimit(limit)
	start := time.Now()
	a.metrics.IncFacetRequest(string(facet))

	q := catalog.FacetQuery{Limit: MaxLimit}
	var (
		wg             sync.WaitGroup
		extCounts      []model.FacetCount
		locCounts      []model.FacetCount
		extErr, locErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		extCounts, extErr = a.external.FetchFacet(ctx, facet, q)
	}()
	go func() {
		defer wg.Done()
		locCounts, locErr = a.local.FetchFacet(ctx, facet, q)
	}()
	wg.Wait()

	degraded := a.collectDegraded(facet, extErr, locErr)
	if extErr != nil && locErr != nil {
		return nil, ErrAggregationUnavailable
	}

	genreRules := facet == model.FacetGenres
	merged := mergeFacetCounts(extCounts, locCounts, genreRules)

	// Stable sort: ties keep merge insertion order (external first, then
	// local-only entries in source order), which is deterministic.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Combined > merged[j].Combined
	})

	summary := summarize(merged)

	if len(merged) > limit {
		merged = merged[:limit]
	}

	top := merged
	if len(top) > TopCount {
		top = top[:TopCount]
	}

	a.metrics.ObserveAggregationDuration(string(facet), time.Since(start))

	return &FacetResult{
		Facet:    facet,
		Items:    merged,
		Top:      top,
		Summary:  summary,
		Degraded: degraded,
	}, nil
}

// Popular returns the cross-source popularity ranking: both sources'
// top stations concatenated and globally re-sorted by their own popularity
// fields (votes for external, total clicks for custom).
func (a *Aggregator) Popular(ctx context.Context, limit int) (*PopularResult, error) {
	limit = ClampLimit(limit)
	start := time.Now()
	a.metrics.IncFacetRequest("popular")

	q := catalog.StationQuery{Popular: true, Limit: limit}
	var (
		wg             sync.WaitGroup
		extRecs        []model.StationRecord
		locRecs        []model.StationRecord
		extErr, locErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		extRecs, extErr = a.external.FetchStations(ctx, q)
	}()
	go func() {
		defer wg.Done()
		locRecs, locErr = a.local.FetchStations(ctx, q)
	}()
	wg.Wait()

	degraded := a.collectDegraded("popular", extErr, locErr)
	if extErr != nil && locErr != nil {
		return nil, ErrAggregationUnavailable
	}

	stations := make([]model.StationRecord, 0, len(extRecs)+len(locRecs))
	stations = append(stations, extRecs...)
	stations = append(stations, locRecs...)

	sort.SliceStable(stations, func(i, j int) bool {
		return stations[i].Popularity > stations[j].Popularity
	})

	if len(stations) > limit {
		stations = stations[:limit]
	}

	a.metrics.ObserveAggregationDuration("popular", time.Since(start))

	return &PopularResult{Stations: stations, Degraded: degraded}, nil
}

// Search fans out the query to both sources and returns the two hit lists
// separately. No merge happens at all.
func (a *Aggregator) Search(ctx context.Context, q catalog.StationQuery) (*SearchResult, error) {
	q.Popular = false
	q.Limit = ClampLimit(q.Limit)
	start := time.Now()
	a.metrics.IncFacetRequest("search")

	var (
		wg             sync.WaitGroup
		extRecs        []model.StationRecord
		locRecs        []model.StationRecord
		extErr, locErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		extRecs, extErr = a.external.FetchStations(ctx, q)
	}()
	go func() {
		defer wg.Done()
		locRecs, locErr = a.local.FetchStations(ctx, q)
	}()
	wg.Wait()

	degraded := a.collectDegraded("search", extErr, locErr)
	if extErr != nil && locErr != nil {
		return nil, ErrAggregationUnavailable
	}

	a.metrics.ObserveAggregationDuration("search", time.Since(start))

	return &SearchResult{
		Custom:        locRecs,
		External:      extRecs,
		CustomTotal:   len(locRecs),
		ExternalTotal: len(extRecs),
		Degraded:      degraded,
	}, nil
}

// collectDegraded logs single-source failures and returns the names of the
// failed sources. Partial failure is tolerated; total failure is rejected
// by the callers.
func (a *Aggregator) collectDegraded(facet any, extErr, locErr error) []string {
	var degraded []string
	if extErr != nil {
		a.logger.Warn("source degraded",
			"facet", facet,
			"source", a.external.Name(),
			"error", extErr,
		)
		a.metrics.IncSourceFailure(a.external.Name())
		degraded = append(degraded, a.external.Name())
	}
	if locErr != nil {
		a.logger.Warn("source degraded",
			"facet", facet,
			"source", a.local.Name(),
			"error", locErr,
		)
		a.metrics.IncSourceFailure(a.local.Name())
		degraded = append(degraded, a.local.Name())
	}
	return degraded
}

// mergeFacetCounts merges two facet count lists keyed by the case-folded,
// trimmed label. External entries are processed first, so their casing wins
// the display label when a key exists on both sides. Insertion order is
// tracked in the returned slice; no map iteration order leaks out.
func mergeFacetCounts(external, custom []model.FacetCount, genreRules bool) []model.FacetCount {
	index := make(map[string]int, len(external)+len(custom))
	merged := make([]model.FacetCount, 0, len(external)+len(custom))

	add := func(fc model.FacetCount) {
		key := model.FacetKey(fc.Label)
		if genreRules && key == "" {
			return
		}
		if key == "" {
			key = fc.Key
		}

		if i, ok := index[key]; ok {
			merged[i].ExternalCount += fc.ExternalCount
			merged[i].CustomCount += fc.CustomCount
			merged[i].Combined = merged[i].ExternalCount + merged[i].CustomCount
			if merged[i].Provenance != fc.Provenance {
				merged[i].Provenance = model.ProvenanceBoth
			}
			return
		}

		index[key] = len(merged)
		fc.Key = key
		fc.Combined = fc.ExternalCount + fc.CustomCount
		merged = append(merged, fc)
	}

	for _, fc := range external {
		add(fc)
	}
	for _, fc := range custom {
		add(fc)
	}

	if !genreRules {
		return merged
	}

	filtered := merged[:0]
	for _, fc := range merged {
		if fc.Combined > 0 {
			filtered = append(filtered, fc)
		}
	}
	return filtered
}

func summarize(merged []model.FacetCount) Summary {
	var s Summary
	for _, fc := range merged {
		switch fc.Provenance {
		case model.ProvenanceExternal:
			s.ExternalOnly++
		case model.ProvenanceCustom:
			s.CustomOnly++
		case model.ProvenanceBoth:
			s.Both++
		}
	}
	s.UniqueTotal = len(merged)
	return s
}

// ClampLimit normalizes a requested limit into [1, MaxLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
