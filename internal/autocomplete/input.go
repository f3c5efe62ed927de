package autocomplete

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Input is a named text field that a Controller can bind to.
type Input struct {
	Name  string // stable, unique identifier; selectors match against it
	Tag   string // logical field, used for selection dispatch
	Label string
	Model textinput.Model

	selectedID string
}

// NewInput creates an unfocused input.
func NewInput(name, tag, label, placeholder string) *Input {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 0 // picked labels are stored verbatim
	ti.Width = 40
	return &Input{Name: name, Tag: tag, Label: label, Model: ti}
}

func (in *Input) Value() string { return in.Model.Value() }

// SetValue replaces the text and moves the cursor to the end. It does not
// count as a text change: no query is issued.
func (in *Input) SetValue(v string) {
	in.Model.SetValue(v)
	in.Model.CursorEnd()
}

// SelectedID is the identifier of the last chosen suggestion, empty after
// any manual edit.
func (in *Input) SelectedID() string { return in.selectedID }

func (in *Input) Focused() bool { return in.Model.Focused() }

// Target is a snapshot of an input handed to selection callbacks.
type Target struct {
	Name       string
	Tag        string
	Value      string
	SelectedID string
}

func (in *Input) target() Target {
	return Target{Name: in.Name, Tag: in.Tag, Value: in.Value(), SelectedID: in.selectedID}
}

// Form is an ordered set of inputs with a single focus.
type Form struct {
	inputs []*Input
	focus  int
}

func NewForm(inputs ...*Input) *Form {
	return &Form{inputs: inputs, focus: -1}
}

func (f *Form) Inputs() []*Input { return f.inputs }

func (f *Form) Add(in *Input) { f.inputs = append(f.inputs, in) }

// Lookup returns the input called name, or nil.
func (f *Form) Lookup(name string) *Input {
	for _, in := range f.inputs {
		if in.Name == name {
			return in
		}
	}
	return nil
}

// Query returns the inputs whose names match a doublestar pattern, in form
// order.
func (f *Form) Query(pattern string) ([]*Input, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("selector %q: %w", pattern, doublestar.ErrBadPattern)
	}
	var out []*Input
	for _, in := range f.inputs {
		ok, err := doublestar.Match(pattern, in.Name)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", pattern, err)
		}
		if ok {
			out = append(out, in)
		}
	}
	return out, nil
}

// Focused returns the focused input or nil.
func (f *Form) Focused() *Input {
	if f.focus < 0 || f.focus >= len(f.inputs) {
		return nil
	}
	return f.inputs[f.focus]
}

// Focus focuses input i and blurs every other one.
func (f *Form) Focus(i int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	i = ((i % len(f.inputs)) + len(f.inputs)) % len(f.inputs)
	f.Blur()
	f.focus = i
	return f.inputs[i].Model.Focus()
}

// FocusName focuses the named input; unknown names are ignored.
func (f *Form) FocusName(name string) tea.Cmd {
	for i, in := range f.inputs {
		if in.Name == name {
			return f.Focus(i)
		}
	}
	return nil
}

func (f *Form) FocusNext() tea.Cmd { return f.Focus(f.focus + 1) }

func (f *Form) FocusPrev() tea.Cmd {
	if f.focus < 0 {
		return f.Focus(len(f.inputs) - 1)
	}
	return f.Focus(f.focus - 1)
}

// Blur removes focus from every input.
func (f *Form) Blur() {
	for _, in := range f.inputs {
		in.Model.Blur()
	}
	f.focus = -1
}
