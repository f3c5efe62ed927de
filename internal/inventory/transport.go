package inventory

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"inventory-search/internal/infra/logx"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Limit defines a simple rate limit: RPS with a burst capacity.
type Limit struct {
	RPS   float64
	Burst int
}

var defaultLimit = Limit{RPS: 20, Burst: 20}

// TransportOptions configures the retrying, rate-limited transport.
type TransportOptions struct {
	RetryMax    int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	JitterFn    func(base time.Duration, attempt int) time.Duration
	Clock       Clock
	Metrics     *Metrics

	// Limit applies per req.URL.Host unless HostLimits has an entry.
	Limit      Limit
	HostLimits map[string]Limit
}

// DefaultTransportOptionsFromEnv returns defaults tuned for interactive
// lookups: few, fast retries.
func DefaultTransportOptionsFromEnv() TransportOptions {
	lim := defaultLimit
	if f, ok := envFloat("INVENTORY_RPS"); ok && f > 0 {
		lim.RPS = f
	}
	if n, ok := envInt("INVENTORY_BURST"); ok && n > 0 {
		lim.Burst = n
	}
	retryMax := 1
	if n, ok := envInt("INVENTORY_RETRY_MAX"); ok && n >= 0 {
		retryMax = n
	}
	backoffBase := 150 * time.Millisecond
	if n, ok := envInt("INVENTORY_RETRY_BASE_MS"); ok && n >= 0 {
		backoffBase = time.Duration(n) * time.Millisecond
	}
	backoffCap := 2 * time.Second
	if n, ok := envInt("INVENTORY_RETRY_CAP_MS"); ok && n > 0 {
		backoffCap = time.Duration(n) * time.Millisecond
	}
	return TransportOptions{
		RetryMax:    retryMax,
		BackoffBase: backoffBase,
		BackoffCap:  backoffCap,
		Clock:       realClock{},
		JitterFn: func(base time.Duration, _ int) time.Duration {
			if base <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(base.Nanoseconds()))
		},
		Metrics: NewMetrics(),
		Limit:   lim,
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func envFloat(key string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

// tokenBucket is a simple per-host rate limiter with fractional tokens.
type tokenBucket struct {
	mu     sync.Mutex
	rps    float64
	burst  float64
	tokens float64
	last   time.Time
	clock  Clock
}

func newTokenBucket(lim Limit, clock Clock) *tokenBucket {
	if lim.RPS <= 0 {
		lim.RPS = defaultLimit.RPS
	}
	burst := float64(max(1, lim.Burst))
	return &tokenBucket{rps: lim.RPS, burst: burst, tokens: burst, last: clock.Now(), clock: clock}
}

func (tb *tokenBucket) refillLocked(now time.Time) {
	delta := now.Sub(tb.last).Seconds() * tb.rps
	if delta > 0 {
		tb.tokens = math.Min(tb.burst, tb.tokens+delta)
		tb.last = now
	}
}

// Wait blocks until a token is available or ctx ends.
func (tb *tokenBucket) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tb.mu.Lock()
		tb.refillLocked(tb.clock.Now())
		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		wait := time.Duration(((1 - tb.tokens) / tb.rps) * float64(time.Second))
		tb.mu.Unlock()
		if err := sleepCtx(ctx, tb.clock, max(wait, 5*time.Millisecond)); err != nil {
			return err
		}
	}
}

// sleepCtx sleeps on the real clock while observing ctx; fake clocks just
// advance.
func sleepCtx(ctx context.Context, c Clock, d time.Duration) error {
	if _, ok := c.(realClock); !ok {
		c.Sleep(d)
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryTransport wraps a base RoundTripper with host-based rate limiting
// and retries on 429/5xx and transient network errors. Only idempotent
// methods are retried.
type RetryTransport struct {
	Base     http.RoundTripper
	Opts     TransportOptions
	limMu    sync.Mutex
	limiters map[string]*tokenBucket
}

func NewRetryTransport(opts TransportOptions) *RetryTransport {
	return &RetryTransport{Opts: opts, limiters: make(map[string]*tokenBucket)}
}

func (t *RetryTransport) limiter(host string) *tokenBucket {
	t.limMu.Lock()
	defer t.limMu.Unlock()
	if tb, ok := t.limiters[host]; ok {
		return tb
	}
	lim := t.Opts.Limit
	if v, ok := t.Opts.HostLimits[host]; ok {
		lim = v
	}
	tb := newTokenBucket(lim, t.clock())
	t.limiters[host] = tb
	return tb
}

func (t *RetryTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *RetryTransport) clock() Clock {
	if t.Opts.Clock != nil {
		return t.Opts.Clock
	}
	return realClock{}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	m := t.Opts.Metrics
	if m != nil {
		m.IncRequest(req.URL.Host)
	}
	lim := t.limiter(req.URL.Host)

	attempts := 1
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		attempts = max(1, t.Opts.RetryMax+1)
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := t.base().RoundTrip(req)
		if err != nil {
			// our own deadline or cancellation: never retry
			if ctx.Err() != nil {
				if m != nil {
					m.IncFailure()
				}
				return nil, err
			}
			if isTransientNetErr(err) && attempt < attempts-1 {
				lastErr = err
				retryCounters(ctx).record(0, true)
				logx.Debugw("retrying after network error", "url", req.URL.Path, "attempt", attempt+1, "err", err)
				if err := t.backoff(ctx, attempt, 0); err != nil {
					return nil, err
				}
				continue
			}
			if m != nil {
				m.IncFailure()
			}
			return nil, err
		}
		if m != nil {
			m.IncStatus(resp.StatusCode)
		}
		if shouldRetryStatus(resp.StatusCode) && attempt < attempts-1 {
			ra := parseRetryAfter(resp.Header.Get("Retry-After"), t.clock().Now())
			resp.Body.Close()
			retryCounters(ctx).record(resp.StatusCode, false)
			logx.Debugw("retrying after status", "url", req.URL.Path, "status", resp.StatusCode, "attempt", attempt+1)
			if err := t.backoff(ctx, attempt, ra); err != nil {
				return nil, err
			}
			continue
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = errors.New("max retries exceeded")
	}
	if m != nil {
		m.IncFailure()
	}
	return nil, lastErr
}

// backoff sleeps before the next attempt. A positive retryAfter wins over
// the exponential schedule; both are capped.
func (t *RetryTransport) backoff(ctx context.Context, attempt int, retryAfter time.Duration) error {
	base := t.Opts.BackoffBase
	if base <= 0 {
		base = 150 * time.Millisecond
	}
	limit := t.Opts.BackoffCap
	if limit <= 0 {
		limit = 2 * time.Second
	}
	var delay time.Duration
	if retryAfter > 0 {
		delay = min(retryAfter, limit)
	} else {
		delay = min(time.Duration(float64(base)*math.Pow(2, float64(attempt))), limit)
		if t.Opts.JitterFn != nil {
			delay = min(delay+t.Opts.JitterFn(delay, attempt), limit)
		}
	}
	if m := t.Opts.Metrics; m != nil {
		m.IncRetry()
		m.AddBackoff(delay)
	}
	return sleepCtx(ctx, t.clock(), delay)
}

func isTransientNetErr(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "temporary") || strings.Contains(msg, "broken pipe")
}

func shouldRetryStatus(code int) bool {
	return code == 429 || code == 502 || code == 503 || code == 504
}

func parseRetryAfter(h string, now time.Time) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(h); err == nil {
		if d := when.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
