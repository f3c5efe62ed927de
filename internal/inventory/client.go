package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"inventory-search/internal/infra/logx"
)

// maxBody bounds how much of a response we are willing to decode.
const maxBody = 4 << 20

// Client talks to the inventory backend's lookup endpoints.
type Client struct {
	base    *url.URL
	http    *http.Client
	metrics *Metrics
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests, proxies).
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithTransport installs a RetryTransport built from opts.
func WithTransport(opts TransportOptions) Option {
	return func(c *Client) {
		c.http = &http.Client{Transport: NewRetryTransport(opts)}
		c.metrics = opts.Metrics
	}
}

// New returns a client rooted at baseURL, e.g. "http://127.0.0.1:5000".
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("inventory: base URL is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("inventory: parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("inventory: base URL %q needs scheme and host", baseURL)
	}
	c := &Client{base: u}
	WithTransport(DefaultTransportOptionsFromEnv())(c)
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Metrics returns the transport counters, or nil when a custom http.Client
// without metrics is in use.
func (c *Client) Metrics() *Metrics { return c.metrics }

// Search runs an autocomplete lookup: GET <endpoint>?q=<query>, optionally
// with autocomplete=true.
func (c *Client) Search(ctx context.Context, endpoint, query string, autocomplete bool) ([]Suggestion, error) {
	params := url.Values{}
	params.Set("q", query)
	if autocomplete {
		params.Set("autocomplete", "true")
	}
	raw, err := c.getArray(ctx, "search", endpoint, params)
	if err != nil {
		return nil, err
	}
	out := make([]Suggestion, 0, len(raw))
	for i, item := range raw {
		var s Suggestion
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, fmt.Errorf("search %s: item %d: %w", endpoint, i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Lookup runs a follow-up detail query: GET <endpoint>?q=<query>.
func (c *Client) Lookup(ctx context.Context, endpoint, query string) ([]Record, error) {
	params := url.Values{}
	params.Set("q", query)
	raw, err := c.getArray(ctx, "lookup", endpoint, params)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(raw))
	for i, item := range raw {
		var r Record
		if err := json.Unmarshal(item, &r); err != nil || r == nil {
			return nil, fmt.Errorf("lookup %s: item %d: %w", endpoint, i, ErrMalformed)
		}
		out = append(out, r)
	}
	return out, nil
}

// URL resolves endpoint against the base URL and merges params into any
// query the endpoint already carries ("/search?q=" is fine).
func (c *Client) URL(endpoint string, params url.Values) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	var u *url.URL
	if ref.IsAbs() {
		u = ref
	} else {
		u = c.base.JoinPath(ref.Path)
	}
	q := ref.Query()
	for k, vs := range params {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) getArray(ctx context.Context, op, endpoint string, params url.Values) ([]json.RawMessage, error) {
	u, err := c.URL(endpoint, params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var rc RetryCounters
	req = req.WithContext(WithRetryCounters(ctx, &rc))
	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, endpoint, err)
	}
	defer res.Body.Close()
	logx.Debugw("http", "op", op, "url", u, "status", res.StatusCode, "took", time.Since(start), "retries", rc.Total)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
		return nil, &StatusError{Op: op + " " + endpoint, Code: res.StatusCode, Status: res.Status}
	}
	var payload []json.RawMessage
	if err := json.NewDecoder(io.LimitReader(res.Body, maxBody)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s %s: %w: %v", op, endpoint, ErrMalformed, err)
	}
	if payload == nil {
		// a literal null is not an array either
		return nil, fmt.Errorf("%s %s: %w: null payload", op, endpoint, ErrMalformed)
	}
	return payload, nil
}
