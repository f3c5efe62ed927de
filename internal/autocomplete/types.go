package autocomplete

import (
	"context"
	"errors"

	"inventory-search/internal/inventory"
)

// ErrNoMatch is returned by Bind when the selector matches no input.
var ErrNoMatch = errors.New("selector matched no input")

// Searcher runs remote suggestion lookups. *inventory.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, endpoint, query string, autocomplete bool) ([]inventory.Suggestion, error)
}

// SelectFunc is invoked once per selection. Its result travels back to the
// host in SelectedMsg.Result.
type SelectFunc func(ctx context.Context, target Target, item inventory.Suggestion) (any, error)

// List is the element suggestions are painted into.
type List struct {
	ID         string // zone id; entries use ID + "/<index>"
	MaxVisible int
}

// AdjacentList is the default list: rendered right under its input.
func AdjacentList(in *Input) *List {
	return &List{ID: in.Name + "/list", MaxVisible: 8}
}

// Binding attaches autocomplete behaviour to every input matching Selector.
type Binding struct {
	Selector string
	// Endpoint may contain {tag} and {name}, expanded per input at bind time.
	Endpoint     string
	Autocomplete bool
	// List picks the list element for an input; nil means AdjacentList.
	List     func(*Input) *List
	OnSelect SelectFunc
}

// FailurePolicy decides what a failed query does to the visible list.
type FailurePolicy int

const (
	// ClearOnFailure empties and hides the list.
	ClearOnFailure FailurePolicy = iota
	// KeepOnFailure leaves the previous list untouched.
	KeepOnFailure
)

// suggestionsMsg carries the answer to one query.
type suggestionsMsg struct {
	field string
	seq   uint64
	query string
	items []inventory.Suggestion
	err   error
}

// debounceMsg fires when a keystroke's quiet period ends.
type debounceMsg struct {
	field string
	seq   uint64
	query string
}

// SelectedMsg reports a finished selection, after OnSelect returned.
type SelectedMsg struct {
	Field  string
	Tag    string
	Item   inventory.Suggestion
	Result any
	Err    error
}

// QueryFailedMsg reports a lookup that failed or timed out. Stale answers
// are never reported.
type QueryFailedMsg struct {
	Field string
	Query string
	Err   error
}
