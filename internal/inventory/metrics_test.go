package inventory

import (
	"strings"
	"testing"
	"time"
)

func TestMetricsStatusBuckets(t *testing.T) {
	m := NewMetrics()
	for _, code := range []int{200, 204, 301, 404, 429, 500, 503} {
		m.IncStatus(code)
	}
	s := m.Snapshot()
	if s.Status2xx != 2 || s.Status4xx != 1 || s.Status429 != 1 || s.Status5xx != 2 {
		t.Fatalf("unexpected buckets: %+v", s)
	}
}

func TestMetricsSnapshotIsACopy(t *testing.T) {
	m := NewMetrics()
	m.IncRequest("a")
	m.IncRequest("a")
	m.IncRetry()
	m.AddBackoff(150 * time.Millisecond)
	s := m.Snapshot()
	m.IncRequest("a")

	if s.Requests != 2 || s.HostCounts["a"] != 2 {
		t.Fatalf("snapshot changed after the fact: %+v", s)
	}
	if s.Backoff != 150*time.Millisecond || s.Retries != 1 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	if !strings.HasPrefix(s.String(), "req 2 · retry 1") {
		t.Fatalf("unexpected rendering %q", s.String())
	}
}
