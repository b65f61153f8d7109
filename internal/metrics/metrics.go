// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Aggregation metrics
	IncFacetRequest(facet string) // facet: "countries", "genres", "popular", "search"
	IncSourceFailure(source string)
	ObserveAggregationDuration(facet string, duration time.Duration)

	// Click pipeline metrics
	IncClickRegistered(provenance string) // provenance: "custom" or "external"
	IncClickRejected(reason string)       // reason: "not_found", "not_active", "persistence"

	// Statistics roller metrics
	IncRollerRun(status string) // status: "success" or "failed"
	ObserveRollerEventsFolded(count int64)
	ObserveRollerDuration(duration time.Duration)
	SetRollerBacklog(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
