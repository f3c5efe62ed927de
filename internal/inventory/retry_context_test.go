package inventory

import (
	"context"
	"testing"
)

func TestRetryCountersRoundTrip(t *testing.T) {
	rc := &RetryCounters{}
	ctx := WithRetryCounters(context.Background(), rc)
	if got := retryCounters(ctx); got != rc {
		t.Fatal("retrieved counters differ from the attached ones")
	}
	if got := retryCounters(context.Background()); got != nil {
		t.Fatal("expected nil counters on a bare context")
	}
	wrong := context.WithValue(context.Background(), retryCtxKey{}, "not counters")
	if got := retryCounters(wrong); got != nil {
		t.Fatal("expected nil counters for a foreign value")
	}
}

func TestRetryCountersNestedOverride(t *testing.T) {
	outer, inner := &RetryCounters{}, &RetryCounters{}
	ctx1 := WithRetryCounters(context.Background(), outer)
	ctx2 := WithRetryCounters(ctx1, inner)
	if retryCounters(ctx2) != inner {
		t.Error("nested context should carry the inner counters")
	}
	if retryCounters(ctx1) != outer {
		t.Error("parent context should keep the outer counters")
	}
}

func TestRetryCountersRecord(t *testing.T) {
	rc := &RetryCounters{}
	rc.record(429, false)
	rc.record(503, false)
	rc.record(0, true)
	rc.record(429, false)
	rc.record(0, true)

	want := RetryCounters{Total: 5, Status429: 2, Status5xx: 1, Net: 2}
	if *rc != want {
		t.Fatalf("counters = %+v, want %+v", *rc, want)
	}

	var none *RetryCounters
	none.record(500, false) // nil receivers are ignored
}
