package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncFacetRequest is a no-op.
func (n *NoopRecorder) IncFacetRequest(facet string) {}

// IncSourceFailure is a no-op.
func (n *NoopRecorder) IncSourceFailure(source string) {}

// ObserveAggregationDuration is a no-op.
func (n *NoopRecorder) ObserveAggregationDuration(facet string, duration time.Duration) {}

// IncClickRegistered is a no-op.
func (n *NoopRecorder) IncClickRegistered(provenance string) {}

// IncClickRejected is a no-op.
func (n *NoopRecorder) IncClickRejected(reason string) {}

// IncRollerRun is a no-op.
func (n *NoopRecorder) IncRollerRun(status string) {}

// ObserveRollerEventsFolded is a no-op.
func (n *NoopRecorder) ObserveRollerEventsFolded(count int64) {}

// ObserveRollerDuration is a no-op.
func (n *NoopRecorder) ObserveRollerDuration(duration time.Duration) {}

// SetRollerBacklog is a no-op.
func (n *NoopRecorder) SetRollerBacklog(depth int64) {}
