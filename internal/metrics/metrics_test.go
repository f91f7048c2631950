package metrics

import (
	"sync"
	"testing"
)

func TestIncAndSnapshot(t *testing.T) {
	m := New()
	m.Inc(MetricTicketStored)
	m.Inc(MetricTicketStored)
	m.Add(MetricRowsSwept, 5)

	snap := m.Snapshot()
	if snap[MetricTicketStored] != 2 {
		t.Fatalf("stored counter: %d", snap[MetricTicketStored])
	}
	if snap[MetricRowsSwept] != 5 {
		t.Fatalf("swept counter: %d", snap[MetricRowsSwept])
	}
	if snap[MetricCacheMiss] != 0 {
		t.Fatalf("untouched counter: %d", snap[MetricCacheMiss])
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricTicketStored)
	m.Add(MetricRowsSwept, 3)
	if snap := m.Snapshot(); len(snap) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricTicketRetrieved)
			}
		}()
	}
	wg.Wait()

	if got := m.Snapshot()[MetricTicketRetrieved]; got != 16000 {
		t.Fatalf("lost increments: %d", got)
	}
}

func TestEveryMetricHasAName(t *testing.T) {
	for id := MetricID(0); id < MetricIDCount; id++ {
		if Name(id) == "" {
			t.Fatalf("metric %d has no name", id)
		}
	}
	if Name(MetricIDCount) != "" || Name(-1) != "" {
		t.Fatal("out-of-range ids must have no name")
	}
}
