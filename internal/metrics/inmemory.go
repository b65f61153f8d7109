package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	FacetRequests         map[string]uint64
	SourceFailures        map[string]uint64
	AggregationCount      uint64
	AggregationTotalNs    int64
	ClicksRegistered      map[string]uint64
	ClicksRejected        map[string]uint64
	RollerRuns            map[string]uint64
	RollerEventsFolded    uint64
	RollerDurationCount   uint64
	RollerDurationTotalNs int64
	RollerBacklog         int64
}

// InMemoryRecorder stores metrics in memory for tests and the debug endpoint.
type InMemoryRecorder struct {
	mu                    sync.Mutex
	facetRequests         map[string]uint64
	sourceFailures        map[string]uint64
	clicksRegistered      map[string]uint64
	clicksRejected        map[string]uint64
	rollerRuns            map[string]uint64
	aggregationCount      uint64
	aggregationTotalNs    int64
	rollerEventsFolded    uint64
	rollerDurationCount   uint64
	rollerDurationTotalNs int64
	rollerBacklog         int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		facetRequests:    make(map[string]uint64),
		sourceFailures:   make(map[string]uint64),
		clicksRegistered: make(map[string]uint64),
		clicksRejected:   make(map[string]uint64),
		rollerRuns:       make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		FacetRequests:         copyMap(m.facetRequests),
		SourceFailures:        copyMap(m.sourceFailures),
		AggregationCount:      m.aggregationCount,
		AggregationTotalNs:    m.aggregationTotalNs,
		ClicksRegistered:      copyMap(m.clicksRegistered),
		ClicksRejected:        copyMap(m.clicksRejected),
		RollerRuns:            copyMap(m.rollerRuns),
		RollerEventsFolded:    m.rollerEventsFolded,
		RollerDurationCount:   m.rollerDurationCount,
		RollerDurationTotalNs: m.rollerDurationTotalNs,
		RollerBacklog:         atomic.LoadInt64(&m.rollerBacklog),
	}
}

// IncFacetRequest increments the per-facet request counter.
func (m *InMemoryRecorder) IncFacetRequest(facet string) {
	m.mu.Lock()
	m.facetRequests[facet]++
	m.mu.Unlock()
}

// IncSourceFailure increments the per-source failure counter.
func (m *InMemoryRecorder) IncSourceFailure(source string) {
	m.mu.Lock()
	m.sourceFailures[source]++
	m.mu.Unlock()
}

// ObserveAggregationDuration records one aggregation run.
func (m *InMemoryRecorder) ObserveAggregationDuration(facet string, duration time.Duration) {
	m.mu.Lock()
	m.aggregationCount++
	m.aggregationTotalNs += duration.Nanoseconds()
	m.mu.Unlock()
}

// IncClickRegistered increments the per-provenance click counter.
func (m *InMemoryRecorder) IncClickRegistered(provenance string) {
	m.mu.Lock()
	m.clicksRegistered[provenance]++
	m.mu.Unlock()
}

// IncClickRejected increments the per-reason rejection counter.
func (m *InMemoryRecorder) IncClickRejected(reason string) {
	m.mu.Lock()
	m.clicksRejected[reason]++
	m.mu.Unlock()
}

// IncRollerRun increments the per-status roller run counter.
func (m *InMemoryRecorder) IncRollerRun(status string) {
	m.mu.Lock()
	m.rollerRuns[status]++
	m.mu.Unlock()
}

// ObserveRollerEventsFolded adds to the folded events counter.
func (m *InMemoryRecorder) ObserveRollerEventsFolded(count int64) {
	m.mu.Lock()
	m.rollerEventsFolded += uint64(count)
	m.mu.Unlock()
}

// ObserveRollerDuration records one roller run duration.
func (m *InMemoryRecorder) ObserveRollerDuration(duration time.Duration) {
	m.mu.Lock()
	m.rollerDurationCount++
	m.rollerDurationTotalNs += duration.Nanoseconds()
	m.mu.Unlock()
}

// SetRollerBacklog sets the unrolled event backlog gauge.
func (m *InMemoryRecorder) SetRollerBacklog(depth int64) {
	atomic.StoreInt64(&m.rollerBacklog, depth)
}

func copyMap(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
