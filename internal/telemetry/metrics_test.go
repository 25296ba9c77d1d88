package telemetry

import (
	"strings"
	"sync"
	"testing"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.IncPublished()
	m.IncPublished()
	m.IncPublishErrors()
	m.IncWSBroadcast()
	m.IncWSDropped()

	snap := m.Snapshot()
	if snap.NumPublished != 2 || snap.NumPublishErrors != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.NumWSBroadcast != 1 || snap.NumWSDropped != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}

	if s := m.String(); !strings.Contains(s, "published=2") {
		t.Fatalf("String() = %q", s)
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	m.IncPublished()
	m.IncPublishErrors()
	if snap := m.Snapshot(); snap.NumPublished != 0 {
		t.Fatalf("nil metrics snapshot = %+v", snap)
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.IncPublished()
			}
		}()
	}
	wg.Wait()
	if snap := m.Snapshot(); snap.NumPublished != 800 {
		t.Fatalf("published = %d, want 800", snap.NumPublished)
	}
}
