package telemetry

import (
	"fmt"
	"sync"
)

// Metrics tracks in-memory counters for telemetry delivery.
// All counters are concurrency-safe and can be incremented from
// multiple goroutines. A nil *Metrics is a valid no-op receiver.
type Metrics struct {
	mu sync.Mutex

	NumPublished     uint64
	NumPublishErrors uint64
	NumWSBroadcast   uint64
	NumWSDropped     uint64
}

// NewMetrics creates a Metrics instance with all counters at zero.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncPublished increments the published-sample counter.
func (m *Metrics) IncPublished() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NumPublished++
}

// IncPublishErrors increments the publish-failure counter.
func (m *Metrics) IncPublishErrors() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NumPublishErrors++
}

// IncWSBroadcast increments the WebSocket broadcast counter.
func (m *Metrics) IncWSBroadcast() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NumWSBroadcast++
}

// IncWSDropped increments the slow-client drop counter.
func (m *Metrics) IncWSDropped() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NumWSDropped++
}

// Snapshot is a copy of the counter values, safe to read without the
// mutex.
type Snapshot struct {
	NumPublished     uint64
	NumPublishErrors uint64
	NumWSBroadcast   uint64
	NumWSDropped     uint64
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		NumPublished:     m.NumPublished,
		NumPublishErrors: m.NumPublishErrors,
		NumWSBroadcast:   m.NumWSBroadcast,
		NumWSDropped:     m.NumWSDropped,
	}
}

// String returns a human-readable rendering of the counters.
func (m *Metrics) String() string {
	snap := m.Snapshot()
	return fmt.Sprintf("telemetry metrics: published=%d publish_err=%d ws_broadcast=%d ws_dropped=%d",
		snap.NumPublished,
		snap.NumPublishErrors,
		snap.NumWSBroadcast,
		snap.NumWSDropped,
	)
}
