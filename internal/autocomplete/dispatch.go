package autocomplete

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"inventory-search/internal/infra/logx"
	"inventory-search/internal/inventory"
)

// Lookuper fetches detail records. *inventory.Client satisfies it.
type Lookuper interface {
	Lookup(ctx context.Context, endpoint, query string) ([]inventory.Record, error)
}

const (
	ByLabel = "label"
	ByID    = "id"
)

// Route says where a selection of one field tag is looked up, and whether
// the suggestion's label or id is sent as q.
type Route struct {
	Endpoint string
	By       string
}

// Detail is the result a Dispatcher hands back through SelectedMsg.Result.
type Detail struct {
	Tag     string
	Query   string
	Records []inventory.Record
}

// Dispatcher is a shared SelectFunc that picks a follow-up endpoint by the
// input's tag. Tags without a route only fill the input.
type Dispatcher struct {
	lookup Lookuper
	routes map[string]Route
	group  singleflight.Group
}

// NewDispatcher validates routes and copies them; the mapping is fixed
// afterwards.
func NewDispatcher(lookup Lookuper, routes map[string]Route) (*Dispatcher, error) {
	if lookup == nil {
		return nil, errors.New("dispatcher: nil lookup")
	}
	d := &Dispatcher{lookup: lookup, routes: make(map[string]Route, len(routes))}
	var errs []error
	for tag, r := range routes {
		r.Endpoint = strings.TrimSpace(r.Endpoint)
		if r.By == "" {
			r.By = ByLabel
		}
		switch {
		case strings.TrimSpace(tag) == "":
			errs = append(errs, errors.New("route with empty tag"))
		case r.Endpoint == "":
			errs = append(errs, fmt.Errorf("route %q: empty endpoint", tag))
		case r.By != ByLabel && r.By != ByID:
			errs = append(errs, fmt.Errorf("route %q: by must be %q or %q, got %q", tag, ByLabel, ByID, r.By))
		}
		d.routes[tag] = r
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	return d, nil
}

// Route returns the route for tag.
func (d *Dispatcher) Route(tag string) (Route, bool) {
	r, ok := d.routes[tag]
	return r, ok
}

// Select implements SelectFunc. It returns (nil, nil) for unrouted tags and
// a Detail otherwise.
func (d *Dispatcher) Select(ctx context.Context, t Target, item inventory.Suggestion) (any, error) {
	r, ok := d.Route(t.Tag)
	if !ok {
		return nil, nil
	}
	q := item.Label
	if r.By == ByID && item.ID != "" {
		q = item.ID
	}
	v, err, shared := d.group.Do(r.Endpoint+"\x00"+q, func() (any, error) {
		return d.lookup.Lookup(ctx, r.Endpoint, q)
	})
	if err != nil {
		return nil, fmt.Errorf("%s lookup for %q: %w", t.Tag, q, err)
	}
	if shared {
		logx.Debugw("detail lookup shared", "tag", t.Tag, "q", q)
	}
	return Detail{Tag: t.Tag, Query: q, Records: v.([]inventory.Record)}, nil
}
