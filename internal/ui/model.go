package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"inventory-search/internal/autocomplete"
	"inventory-search/internal/config"
	"inventory-search/internal/infra/logx"
	"inventory-search/internal/inventory"
)

// Backend answers suggestion and detail lookups. *inventory.Client
// satisfies it.
type Backend interface {
	Search(ctx context.Context, endpoint, query string, autocomplete bool) ([]inventory.Suggestion, error)
	Lookup(ctx context.Context, endpoint, query string) ([]inventory.Record, error)
}

// --- Model / State ---
type pane int

const (
	paneEdit pane = iota
	paneBrowse
)

func (p pane) String() string {
	if p == paneBrowse {
		return config.PaneBrowse
	}
	return config.PaneEdit
}

type Model struct {
	cfg       config.Config
	ac        *autocomplete.Controller
	zones     *autocomplete.ZoneHits
	metrics   *inventory.Metrics
	forms     [2]*autocomplete.Form
	pane      pane
	statusMsg string
	statusErr bool

	width, height int

	// browse results
	results viewport.Model
	detail  *autocomplete.Detail

	// spinner while any lookup is in flight
	spinner spinner.Model
}

// New builds the host from a validated layout. metrics may be nil.
func New(cfg config.Config, layout config.Layout, backend Backend, metrics *inventory.Metrics) (Model, error) {
	if backend == nil {
		return Model{}, errors.New("ui: nil backend")
	}
	if err := layout.Validate(); err != nil {
		return Model{}, fmt.Errorf("ui: %w", err)
	}

	routes := make(map[string]autocomplete.Route, len(layout.Routes))
	for tag, r := range layout.Routes {
		routes[tag] = autocomplete.Route{Endpoint: r.Endpoint, By: r.By}
	}
	dispatch, err := autocomplete.NewDispatcher(backend, routes)
	if err != nil {
		return Model{}, fmt.Errorf("ui: %w", err)
	}

	zones := autocomplete.NewZoneHits(nil)
	m := Model{
		cfg:     cfg,
		zones:   zones,
		metrics: metrics,
		ac: autocomplete.New(backend,
			autocomplete.WithTimeout(cfg.Timeout),
			autocomplete.WithDebounce(cfg.Debounce),
			autocomplete.WithMinChars(cfg.MinChars),
			autocomplete.WithHitTester(zones),
		),
	}
	for _, p := range []pane{paneEdit, paneBrowse} {
		form := autocomplete.NewForm()
		for _, spec := range layout.Pane(p.String()) {
			form.Add(autocomplete.NewInput(spec.Name, spec.Tag, spec.Label, spec.Placeholder))
		}
		m.forms[p] = form
	}

	for _, b := range layout.Bindings {
		binding := autocomplete.Binding{
			Selector:     b.Selector,
			Endpoint:     b.Endpoint,
			Autocomplete: b.Autocomplete,
		}
		if b.Dispatch {
			binding.OnSelect = dispatch.Select
		}
		bound := 0
		for _, form := range m.forms {
			n, err := m.ac.Bind(form, binding)
			if err != nil && !errors.Is(err, autocomplete.ErrNoMatch) {
				return Model{}, fmt.Errorf("ui: %w", err)
			}
			bound += n
		}
		logx.Infow("binding ready", "selector", b.Selector, "endpoint", b.Endpoint, "inputs", bound, "dispatch", b.Dispatch)
	}

	m.results = viewport.New(80, 10)
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = subtleStyle
	m.spinner = sp

	m.forms[paneEdit].Focus(0)
	m.statusMsg = "Type to search. ctrl+t switches pane."
	return m, nil
}

func (m Model) Init() tea.Cmd { return m.spinner.Tick }

// Close releases the pointer zone tracker.
func (m Model) Close() {
	if m.zones != nil {
		m.zones.Close()
	}
}

func (m Model) form() *autocomplete.Form { return m.forms[m.pane] }

func (m *Model) setStatus(s string) {
	m.statusMsg = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.statusMsg = s
	m.statusErr = true
}

// pending reports whether any visible input waits for an answer.
func (m Model) pending() bool {
	for _, in := range m.form().Inputs() {
		if m.ac.Pending(in.Name) {
			return true
		}
	}
	return false
}
