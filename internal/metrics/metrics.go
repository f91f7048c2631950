// Package metrics provides the in-process atomic counters shared by the
// session manager, ticket store, and sweeper. No exporter is bundled;
// callers pull point-in-time snapshots.
package metrics

import "sync/atomic"

// MetricID identifies one counter.
type MetricID int

const (
	MetricTicketStored MetricID = iota
	MetricTicketRetrieved
	MetricCacheMiss
	MetricDecodeFailure
	MetricTicketRenewed
	MetricTicketRemoved
	MetricSessionRevoked
	MetricRowsSwept
	MetricSweepFailure
	MetricRefreshRenewed
	MetricRefreshSkipped
	MetricRefreshFailure

	MetricIDCount
)

var names = [MetricIDCount]string{
	"ticket_stored",
	"ticket_retrieved",
	"cache_miss",
	"decode_failure",
	"ticket_renewed",
	"ticket_removed",
	"session_revoked",
	"rows_swept",
	"sweep_failure",
	"refresh_renewed",
	"refresh_skipped",
	"refresh_failure",
}

// Name returns the stable string name of a metric id, or "" when unknown.
func Name(id MetricID) string {
	if id < 0 || id >= MetricIDCount {
		return ""
	}
	return names[id]
}

// Metrics holds one atomic counter per MetricID. A nil *Metrics is a valid
// no-op receiver so instrumentation can stay unconditional at call sites.
type Metrics struct {
	counters [MetricIDCount]atomic.Uint64
}

// New creates a zeroed counter set.
func New() *Metrics {
	return &Metrics{}
}

// Inc increments a counter by one.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add increments a counter by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || id < 0 || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(n)
}

// Snapshot returns a point-in-time copy of every counter.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	out := make(map[MetricID]uint64, MetricIDCount)
	if m == nil {
		return out
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		out[id] = m.counters[id].Load()
	}
	return out
}
