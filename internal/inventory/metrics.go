package inventory

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds lightweight counters for HTTP activity against the backend.
type Metrics struct {
	Requests     atomic.Int64
	Retries      atomic.Int64
	Failures     atomic.Int64 // transport errors, including timeouts
	BackoffNanos atomic.Int64

	mu         sync.Mutex
	hostCounts map[string]int64
	statuses   map[int]int64 // keyed by class: 2, 3, 4, 5; 429 kept apart
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{hostCounts: make(map[string]int64), statuses: make(map[int]int64)}
}

// IncRequest counts one logical request (not attempts) against host.
func (m *Metrics) IncRequest(host string) {
	m.Requests.Add(1)
	m.mu.Lock()
	m.hostCounts[host]++
	m.mu.Unlock()
}

// IncRetry increments retry counter.
func (m *Metrics) IncRetry() { m.Retries.Add(1) }

// IncFailure counts a request that ended without a response.
func (m *Metrics) IncFailure() { m.Failures.Add(1) }

// AddBackoff accumulates backoff sleep time.
func (m *Metrics) AddBackoff(d time.Duration) { m.BackoffNanos.Add(d.Nanoseconds()) }

// IncStatus tracks status buckets.
func (m *Metrics) IncStatus(code int) {
	key := code / 100
	if code == 429 {
		key = 429
	}
	m.mu.Lock()
	m.statuses[key]++
	m.mu.Unlock()
}

// MetricsSnapshot is a read-only copy of metrics state.
type MetricsSnapshot struct {
	Requests   int64
	Retries    int64
	Failures   int64
	Backoff    time.Duration
	HostCounts map[string]int64
	Status2xx  int64
	Status4xx  int64
	Status429  int64
	Status5xx  int64
}

// Snapshot returns a copy of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	hosts := make(map[string]int64, len(m.hostCounts))
	for k, v := range m.hostCounts {
		hosts[k] = v
	}
	return MetricsSnapshot{
		Requests:   m.Requests.Load(),
		Retries:    m.Retries.Load(),
		Failures:   m.Failures.Load(),
		Backoff:    time.Duration(m.BackoffNanos.Load()),
		HostCounts: hosts,
		Status2xx:  m.statuses[2],
		Status4xx:  m.statuses[4],
		Status429:  m.statuses[429],
		Status5xx:  m.statuses[5],
	}
}

// String renders the snapshot for a status footer.
func (s MetricsSnapshot) String() string {
	return fmt.Sprintf("req %d · retry %d · fail %d · 2xx %d · 4xx %d · 429 %d · 5xx %d",
		s.Requests, s.Retries, s.Failures, s.Status2xx, s.Status4xx, s.Status429, s.Status5xx)
}
