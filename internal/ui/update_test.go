package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"inventory-search/internal/autocomplete"
	"inventory-search/internal/config"
	"inventory-search/internal/inventory"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	m.Run()
}

type fakeBackend struct {
	suggestions map[string][]inventory.Suggestion // key: endpoint + " " + query
	records     map[string][]inventory.Record     // key: endpoint + " " + query
	searchErr   error
	lookups     []string
}

func (b *fakeBackend) Search(_ context.Context, endpoint, query string, _ bool) ([]inventory.Suggestion, error) {
	if b.searchErr != nil {
		return nil, b.searchErr
	}
	return b.suggestions[endpoint+" "+query], nil
}

func (b *fakeBackend) Lookup(_ context.Context, endpoint, query string) ([]inventory.Record, error) {
	b.lookups = append(b.lookups, endpoint+" "+query)
	return b.records[endpoint+" "+query], nil
}

func createKeyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		// Handle single character keys
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func newTestModel(t *testing.T, b *fakeBackend) Model {
	t.Helper()
	cfg := config.Defaults()
	m, err := New(cfg, config.DefaultLayout(), b, inventory.NewMetrics())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(m.Close)
	for _, f := range m.forms {
		for _, in := range f.Inputs() {
			in.Model.Cursor.SetMode(cursor.CursorStatic)
		}
	}
	return m
}

// runCmd executes cmd, flattening batches.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// send feeds msg to the model and runs every resulting command to completion.
func send(m Model, msg tea.Msg) Model {
	next, cmd := m.Update(msg)
	m = next.(Model)
	for _, out := range runCmd(cmd) {
		m = send(m, out)
	}
	return m
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m = send(m, createKeyMsg(string(r)))
	}
	return m
}

func TestNewBuildsPanesFromLayout(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	if got := len(m.forms[paneEdit].Inputs()); got != 3 {
		t.Fatalf("expected 3 edit inputs, got %d", got)
	}
	if f := m.forms[paneEdit].Focused(); f == nil || f.Name != "edit/location" {
		t.Fatalf("expected edit/location focused, got %+v", f)
	}
	for _, f := range m.forms {
		for _, in := range f.Inputs() {
			if !m.ac.Bound(in.Name) {
				t.Fatalf("input %s not bound", in.Name)
			}
		}
	}
	if got := m.ac.Endpoint("browse/color"); got != "/api/items/color" {
		t.Fatalf("unexpected browse endpoint %q", got)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(config.Defaults(), config.DefaultLayout(), nil, nil); err == nil {
		t.Fatal("expected error for nil backend")
	}
	l := config.DefaultLayout()
	l.Bindings = append(l.Bindings, config.BindingSpec{Selector: "nowhere/*", Endpoint: "/x"})
	if _, err := New(config.Defaults(), l, &fakeBackend{}, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewRejectsDispatchWithoutRoute(t *testing.T) {
	l := config.DefaultLayout()
	delete(l.Routes, "color")
	_, err := New(config.Defaults(), l, &fakeBackend{}, nil)
	if err == nil || !strings.Contains(err.Error(), `no route for tag "color"`) {
		t.Fatalf("expected missing route error, got %v", err)
	}
}

// TestUpdateGlobalQuit ensures that ctrl+c quits even while typing.
func TestUpdateGlobalQuit(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	_, cmd := m.Update(createKeyMsg("ctrl+c"))
	if cmd == nil {
		t.Fatalf("expected quit cmd")
	}
	if msg := cmd(); msg == nil {
		t.Fatalf("expected quit msg")
	} else if _, ok := msg.(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg, got %T", msg)
	}
}

func TestQuitKeyIsTextInInputs(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m = send(m, createKeyMsg("q"))
	if got := m.forms[paneEdit].Lookup("edit/location").Value(); got != "q" {
		t.Fatalf("expected q to be typed, got %q", got)
	}
}

func TestCtrlTSwitchesPane(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m = send(m, createKeyMsg("ctrl+t"))
	if m.pane != paneBrowse {
		t.Fatalf("expected browse pane, got %v", m.pane)
	}
	if m.forms[paneEdit].Focused() != nil {
		t.Fatalf("edit pane should have no focus")
	}
	if f := m.forms[paneBrowse].Focused(); f == nil || f.Name != "browse/tag" {
		t.Fatalf("expected browse/tag focused, got %+v", f)
	}
	m = send(m, createKeyMsg("ctrl+t"))
	if m.pane != paneEdit {
		t.Fatalf("expected edit pane, got %v", m.pane)
	}
}

func TestTabCyclesFocus(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m = send(m, createKeyMsg("tab"))
	if f := m.forms[paneEdit].Focused(); f.Name != "edit/parent" {
		t.Fatalf("expected edit/parent, got %s", f.Name)
	}
	m = send(m, createKeyMsg("shift+tab"))
	m = send(m, createKeyMsg("shift+tab"))
	if f := m.forms[paneEdit].Focused(); f.Name != "edit/tag" {
		t.Fatalf("expected wrap to edit/tag, got %s", f.Name)
	}
}

func TestEditSelectionFillsInput(t *testing.T) {
	b := &fakeBackend{suggestions: map[string][]inventory.Suggestion{
		"/api/locations/search s":  {{Label: "Shed", ID: "4"}, {Label: "Shelf A", ID: "5"}},
		"/api/locations/search sh": {{Label: "Shed", ID: "4"}, {Label: "Shelf A", ID: "5"}},
	}}
	m := newTestModel(t, b)
	m = typeText(m, "sh")
	if !m.ac.Open("edit/location") {
		t.Fatalf("expected suggestion list to be open")
	}
	if view := m.View(); !strings.Contains(view, "Shelf A") {
		t.Fatalf("expected suggestions in view:\n%s", view)
	}

	m = send(m, createKeyMsg("down"))
	m = send(m, createKeyMsg("down"))
	m = send(m, createKeyMsg("enter"))

	in := m.forms[paneEdit].Lookup("edit/location")
	if in.Value() != "Shelf A" || in.SelectedID() != "5" {
		t.Fatalf("unexpected input state %q #%q", in.Value(), in.SelectedID())
	}
	if m.statusMsg != "edit/location = Shelf A (#5)" {
		t.Fatalf("unexpected status %q", m.statusMsg)
	}
	if len(b.lookups) != 0 {
		t.Fatalf("edit pane must not dispatch, got %v", b.lookups)
	}
	if f := m.forms[paneEdit].Focused(); f.Name != "edit/location" {
		t.Fatalf("enter must not move focus, got %s", f.Name)
	}
}

func TestBrowseSelectionRendersCards(t *testing.T) {
	b := &fakeBackend{
		suggestions: map[string][]inventory.Suggestion{
			"/api/items/tag d":  {{Label: "drill", ID: "3"}},
			"/api/items/tag dr": {{Label: "drill", ID: "3"}},
		},
		records: map[string][]inventory.Record{
			"/api/items/tag drill": {
				{"id": float64(11), "name": "Cordless drill", "location": "Shed"},
				{"id": float64(12), "name": "Hammer drill", "location": "Garage"},
			},
		},
	}
	m := newTestModel(t, b)
	m = send(m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = send(m, createKeyMsg("ctrl+t"))
	m = typeText(m, "dr")
	m = send(m, createKeyMsg("down"))
	m = send(m, createKeyMsg("enter"))

	if len(b.lookups) != 1 || b.lookups[0] != "/api/items/tag drill" {
		t.Fatalf("unexpected lookups %v", b.lookups)
	}
	if m.detail == nil || len(m.detail.Records) != 2 {
		t.Fatalf("expected detail with 2 records, got %+v", m.detail)
	}
	view := m.View()
	for _, want := range []string{"Cordless drill", "Hammer drill", "Garage"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view misses %q:\n%s", want, view)
		}
	}
	if !strings.Contains(m.statusMsg, `2 item(s) with tag "drill"`) {
		t.Fatalf("unexpected status %q", m.statusMsg)
	}
}

func TestQueryFailureShowsStatus(t *testing.T) {
	b := &fakeBackend{searchErr: &inventory.StatusError{Op: "search", Code: 503, Status: "503 Service Unavailable"}}
	m := newTestModel(t, b)
	m = typeText(m, "x")
	if !m.statusErr || !strings.Contains(m.statusMsg, "503") {
		t.Fatalf("expected error status, got %q (err=%v)", m.statusMsg, m.statusErr)
	}
	if m.ac.Open("edit/location") {
		t.Fatalf("list should be cleared after a failure")
	}
	m = send(m, createKeyMsg("esc"))
	if m.statusMsg != "" {
		t.Fatalf("esc should clear the status, got %q", m.statusMsg)
	}
}

func TestSelectionErrorShowsStatus(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m = send(m, autocomplete.SelectedMsg{Field: "browse/tag", Err: errors.New("lookup down")})
	if !m.statusErr || m.statusMsg != "browse/tag: lookup down" {
		t.Fatalf("unexpected status %q", m.statusMsg)
	}
}

func TestViewShowsMetricsFooter(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m.metrics.IncRequest("inventory.test")
	m.metrics.IncStatus(200)
	view := m.View()
	if !strings.Contains(view, "req 1") {
		t.Fatalf("expected metrics in footer:\n%s", view)
	}
	if !strings.Contains(view, "ctrl+t switch pane") {
		t.Fatalf("expected help line in footer")
	}
}

func TestRenderCardsEmpty(t *testing.T) {
	out := renderCards(autocomplete.Detail{Tag: "color", Query: "mauve"}, 40)
	if !strings.Contains(out, `No items with color "mauve".`) {
		t.Fatalf("unexpected empty rendering %q", out)
	}
}
