package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrStatus marks a non-2xx response; see StatusError for details.
	ErrStatus = errors.New("unexpected status")
	// ErrMalformed marks a payload that is not a JSON array of objects.
	ErrMalformed = errors.New("malformed response")
)

// StatusError carries the HTTP status of a failed call.
type StatusError struct {
	Op     string
	Code   int
	Status string
}

func (e *StatusError) Error() string { return fmt.Sprintf("%s status %s", e.Op, e.Status) }

func (e *StatusError) Unwrap() error { return ErrStatus }

// Suggestion is one autocomplete candidate. The backend emits either
// {"label": ..., "id": ...} or {"name": ..., "id": ...}; ids may be numbers.
type Suggestion struct {
	Label string
	ID    string
	// Extra holds every other field of the object, untouched.
	Extra map[string]json.RawMessage
}

func (s *Suggestion) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil || raw == nil {
		return fmt.Errorf("%w: suggestion is not an object", ErrMalformed)
	}
	label, ok, err := stringField(raw, "label")
	if err != nil {
		return err
	}
	if !ok {
		if label, ok, err = stringField(raw, "name"); err != nil {
			return err
		}
	}
	if !ok {
		return fmt.Errorf("%w: suggestion without label", ErrMalformed)
	}
	id, _, err := stringField(raw, "id")
	if err != nil {
		return err
	}
	delete(raw, "label")
	delete(raw, "name")
	delete(raw, "id")
	*s = Suggestion{Label: label, ID: id}
	if len(raw) > 0 {
		s.Extra = raw
	}
	return nil
}

// stringField reads key as a string, accepting JSON strings and numbers.
func stringField(raw map[string]json.RawMessage, key string) (string, bool, error) {
	v, ok := raw[key]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), true, nil
	}
	return "", false, fmt.Errorf("%w: field %q is neither string nor number", ErrMalformed, key)
}

// Record is one row returned by a detail lookup.
type Record map[string]any

// Title picks the most descriptive value for a card heading.
func (r Record) Title() string {
	for _, k := range []string{"label", "name", "title"} {
		if v, ok := r[k]; ok && v != nil {
			return formatValue(v)
		}
	}
	if v, ok := r["id"]; ok && v != nil {
		return "#" + formatValue(v)
	}
	return "(untitled)"
}

// Keys returns the record's keys sorted, "id" first.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "id" || keys[j] == "id" {
			return keys[i] == "id"
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Value renders the value stored under key.
func (r Record) Value(key string) string { return formatValue(r[key]) }

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "–"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, formatValue(e))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		if t := Record(x).Title(); t != "(untitled)" {
			return t
		}
		b, _ := json.Marshal(x)
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
