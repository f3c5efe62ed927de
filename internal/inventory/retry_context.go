package inventory

import "context"

type retryCtxKey struct{}

// RetryCounters attributes transport retries to one call.
type RetryCounters struct {
	Total     int64
	Status429 int64
	Status5xx int64
	Net       int64
}

// WithRetryCounters attaches rc to ctx so the transport can record retries
// made on behalf of that specific call.
func WithRetryCounters(ctx context.Context, rc *RetryCounters) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, retryCtxKey{}, rc)
}

func retryCounters(ctx context.Context) *RetryCounters {
	if ctx == nil {
		return nil
	}
	rc, _ := ctx.Value(retryCtxKey{}).(*RetryCounters)
	return rc
}

func (rc *RetryCounters) record(status int, netErr bool) {
	if rc == nil {
		return
	}
	rc.Total++
	switch {
	case netErr:
		rc.Net++
	case status == 429:
		rc.Status429++
	case status >= 500:
		rc.Status5xx++
	}
}
