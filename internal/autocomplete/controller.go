package autocomplete

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"inventory-search/internal/infra/logx"
	"inventory-search/internal/inventory"
)

const defaultTimeout = 5 * time.Second

// field is the per-input state. It is owned by the Controller and only
// touched from Update.
type field struct {
	input    *Input
	list     *List
	binding  Binding
	endpoint string

	items  []inventory.Suggestion
	query  string // query that produced items
	active int    // -1: nothing highlighted
	closed bool
	seq    uint64 // latest issued request
	// pending is true while the request numbered seq is in flight.
	pending bool
}

func (f *field) open() bool { return len(f.items) > 0 && !f.closed }

// clear drops the suggestions entirely.
func (f *field) clear() {
	f.items = nil
	f.query = ""
	f.active = -1
	f.closed = false
}

// close hides the list; items stay until the next query replaces them.
func (f *field) close() {
	f.closed = true
	f.active = -1
}

func (f *field) move(delta int) {
	if len(f.items) == 0 {
		f.active = -1
		return
	}
	f.active = min(max(f.active+delta, 0), len(f.items)-1)
}

// window returns the [start, end) range of visible entries, keeping the
// active entry in view.
func (f *field) window() (int, int) {
	n := f.list.MaxVisible
	if n <= 0 || n >= len(f.items) {
		return 0, len(f.items)
	}
	start := 0
	if f.active >= n {
		start = f.active - n + 1
	}
	return start, start + n
}

// Controller turns keystrokes in bound inputs into remote lookups and
// routes chosen suggestions to the binding's OnSelect.
type Controller struct {
	search   Searcher
	hits     HitTester
	timeout  time.Duration
	debounce time.Duration
	minChars int
	failure  FailurePolicy

	fields []*field // bind order
	byName map[string]*field
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout bounds every query and every OnSelect call.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDebounce delays queries until typing pauses for d. Zero queries on
// every keystroke.
func WithDebounce(d time.Duration) Option { return func(c *Controller) { c.debounce = max(d, 0) } }

// WithMinChars skips queries shorter than n runes (after trimming).
func WithMinChars(n int) Option { return func(c *Controller) { c.minChars = max(n, 1) } }

func WithFailurePolicy(p FailurePolicy) Option { return func(c *Controller) { c.failure = p } }

func WithHitTester(h HitTester) Option {
	return func(c *Controller) {
		if h != nil {
			c.hits = h
		}
	}
}

func New(search Searcher, opts ...Option) *Controller {
	c := &Controller{
		search:   search,
		hits:     noHits{},
		timeout:  defaultTimeout,
		minChars: 1,
		byName:   make(map[string]*field),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Bind attaches b to every input of form whose name matches b.Selector at
// call time and returns how many were bound. Binding an input again
// replaces its state.
func (c *Controller) Bind(form *Form, b Binding) (int, error) {
	if strings.TrimSpace(b.Endpoint) == "" {
		return 0, fmt.Errorf("bind %q: empty endpoint", b.Selector)
	}
	matched, err := form.Query(b.Selector)
	if err != nil {
		return 0, fmt.Errorf("bind: %w", err)
	}
	if len(matched) == 0 {
		return 0, fmt.Errorf("bind %q: %w", b.Selector, ErrNoMatch)
	}
	listFor := b.List
	if listFor == nil {
		listFor = AdjacentList
	}
	for _, in := range matched {
		f := &field{
			input:    in,
			list:     listFor(in),
			binding:  b,
			endpoint: ExpandEndpoint(b.Endpoint, in.Name, in.Tag),
			active:   -1,
		}
		if old, ok := c.byName[in.Name]; ok {
			for i := range c.fields {
				if c.fields[i] == old {
					c.fields[i] = f
				}
			}
		} else {
			c.fields = append(c.fields, f)
		}
		c.byName[in.Name] = f
		logx.Debugw("bound input", "input", in.Name, "endpoint", f.endpoint)
	}
	return len(matched), nil
}

// ExpandEndpoint substitutes {name} and {tag} in an endpoint template.
func ExpandEndpoint(tpl, name, tag string) string {
	return strings.NewReplacer("{tag}", tag, "{name}", name).Replace(tpl)
}

// Update handles controller messages plus key and mouse events. When handled
// is false the message is the host's business; cmd may still be non-nil.
func (c *Controller) Update(msg tea.Msg) (cmd tea.Cmd, handled bool) {
	switch msg := msg.(type) {
	case suggestionsMsg:
		return c.applySuggestions(msg), true
	case debounceMsg:
		return c.fireDebounced(msg), true
	case tea.KeyMsg:
		return c.handleKey(msg)
	case tea.MouseMsg:
		return c.handleMouse(msg)
	}
	return nil, false
}

func (c *Controller) focused() *field {
	for _, f := range c.fields {
		if f.input.Focused() {
			return f
		}
	}
	return nil
}

func (c *Controller) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	f := c.focused()
	if f == nil {
		return nil, false
	}
	switch msg.String() {
	case "down":
		if !f.open() {
			return nil, false
		}
		f.move(+1)
		return nil, true
	case "up":
		if !f.open() {
			return nil, false
		}
		f.move(-1)
		return nil, true
	case "enter":
		// never falls through to a surrounding form
		if f.open() && f.active >= 0 {
			return c.selectItem(f, f.active), true
		}
		return nil, true
	case "esc":
		if !f.open() {
			return nil, false
		}
		f.close()
		return nil, true
	}

	before := f.input.Value()
	var cmd tea.Cmd
	f.input.Model, cmd = f.input.Model.Update(msg)
	if f.input.Value() == before {
		return cmd, false
	}
	return tea.Batch(cmd, c.changed(f)), true
}

// changed reacts to a new input value.
func (c *Controller) changed(f *field) tea.Cmd {
	f.input.selectedID = ""
	f.seq++
	f.pending = false
	q := strings.TrimSpace(f.input.Value())
	if q == "" || utf8.RuneCountInString(q) < c.minChars {
		f.clear()
		return nil
	}
	if c.debounce > 0 {
		name, seq, d := f.input.Name, f.seq, c.debounce
		return tea.Tick(d, func(time.Time) tea.Msg {
			return debounceMsg{field: name, seq: seq, query: q}
		})
	}
	return c.query(f, q)
}

func (c *Controller) fireDebounced(msg debounceMsg) tea.Cmd {
	f := c.byName[msg.field]
	if f == nil || msg.seq != f.seq {
		return nil
	}
	return c.query(f, msg.query)
}

func (c *Controller) query(f *field, q string) tea.Cmd {
	f.pending = true
	name, seq := f.input.Name, f.seq
	endpoint, ac := f.endpoint, f.binding.Autocomplete
	search, timeout := c.search, c.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		items, err := search.Search(ctx, endpoint, q, ac)
		return suggestionsMsg{field: name, seq: seq, query: q, items: items, err: err}
	}
}

func (c *Controller) applySuggestions(msg suggestionsMsg) tea.Cmd {
	f := c.byName[msg.field]
	if f == nil {
		return nil
	}
	if msg.seq != f.seq {
		logx.Debugw("dropping stale suggestions", "input", msg.field, "query", msg.query, "seq", msg.seq, "latest", f.seq)
		return nil
	}
	f.pending = false
	if msg.err != nil {
		if errors.Is(msg.err, context.DeadlineExceeded) {
			logx.Warnw("suggestion lookup timed out", "input", msg.field, "query", msg.query, "timeout", c.timeout)
		} else {
			logx.Warnw("suggestion lookup failed", "input", msg.field, "query", msg.query, "err", msg.err)
		}
		if c.failure == ClearOnFailure {
			f.clear()
		}
		failed := QueryFailedMsg{Field: msg.field, Query: msg.query, Err: msg.err}
		return func() tea.Msg { return failed }
	}
	f.items = msg.items
	f.query = msg.query
	f.active = -1
	f.closed = false
	return nil
}

func (c *Controller) handleMouse(msg tea.MouseMsg) (tea.Cmd, bool) {
	if msg.Action != tea.MouseActionPress {
		return nil, false
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown, tea.MouseButtonWheelLeft, tea.MouseButtonWheelRight:
		// wheel ticks arrive as presses; they belong to the host's scrolling
		return nil, false
	}
	for _, f := range c.fields {
		if !f.open() {
			continue
		}
		start, end := f.window()
		for i := start; i < end; i++ {
			if c.hits.InBounds(entryZone(f, i), msg) {
				return c.selectItem(f, i), true
			}
		}
	}
	// one dismiss pass for every binding; each list only cares about its
	// own input and list
	for _, f := range c.fields {
		if !f.open() {
			continue
		}
		if c.hits.InBounds(inputZone(f), msg) || c.hits.InBounds(f.list.ID, msg) {
			continue
		}
		f.close()
	}
	return nil, false
}

// SelectItem selects entry i of the named input's list, as if clicked.
func (c *Controller) SelectItem(name string, i int) tea.Cmd {
	f := c.byName[name]
	if f == nil {
		return nil
	}
	return c.selectItem(f, i)
}

func (c *Controller) selectItem(f *field, i int) tea.Cmd {
	if i < 0 || i >= len(f.items) {
		return nil
	}
	item := f.items[i]
	f.input.SetValue(item.Label)
	f.input.selectedID = item.ID
	// answers still in flight belong to the text we just replaced
	f.seq++
	f.pending = false
	f.close()

	target := f.input.target()
	onSelect, timeout := f.binding.OnSelect, c.timeout
	return func() tea.Msg {
		out := SelectedMsg{Field: target.Name, Tag: target.Tag, Item: item}
		if onSelect == nil {
			return out
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		out.Result, out.Err = onSelect(ctx, target, item)
		return out
	}
}

// Bound reports whether the named input has autocomplete attached.
func (c *Controller) Bound(name string) bool { return c.byName[name] != nil }

// Items returns a copy of the named input's current suggestions.
func (c *Controller) Items(name string) []inventory.Suggestion {
	f := c.byName[name]
	if f == nil {
		return nil
	}
	return append([]inventory.Suggestion(nil), f.items...)
}

// Active returns the highlighted index, -1 for none.
func (c *Controller) Active(name string) int {
	if f := c.byName[name]; f != nil {
		return f.active
	}
	return -1
}

// Open reports whether the named input's list is visible.
func (c *Controller) Open(name string) bool {
	f := c.byName[name]
	return f != nil && f.open()
}

// Pending reports whether the latest query for the input is in flight.
func (c *Controller) Pending(name string) bool {
	f := c.byName[name]
	return f != nil && f.pending
}

// Endpoint returns the expanded query endpoint of the named input.
func (c *Controller) Endpoint(name string) string {
	if f := c.byName[name]; f != nil {
		return f.endpoint
	}
	return ""
}
