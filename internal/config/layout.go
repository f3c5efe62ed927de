package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	PaneEdit   = "edit"
	PaneBrowse = "browse"
)

// Layout declares the host's inputs, how they are bound and where
// selections are looked up.
type Layout struct {
	Inputs   []InputSpec          `toml:"inputs" yaml:"inputs"`
	Bindings []BindingSpec        `toml:"bindings" yaml:"bindings"`
	Routes   map[string]RouteSpec `toml:"routes" yaml:"routes"`
}

type InputSpec struct {
	Name        string `toml:"name" yaml:"name"`
	Tag         string `toml:"tag" yaml:"tag"`
	Label       string `toml:"label" yaml:"label"`
	Pane        string `toml:"pane" yaml:"pane"`
	Placeholder string `toml:"placeholder" yaml:"placeholder"`
}

type BindingSpec struct {
	Selector     string `toml:"selector" yaml:"selector"`
	Endpoint     string `toml:"endpoint" yaml:"endpoint"`
	Autocomplete bool   `toml:"autocomplete" yaml:"autocomplete"`
	// Dispatch sends selections through the routes table.
	Dispatch bool `toml:"dispatch" yaml:"dispatch"`
}

type RouteSpec struct {
	Endpoint string `toml:"endpoint" yaml:"endpoint"`
	By       string `toml:"by" yaml:"by"` // "label" (default) or "id"
}

// LoadLayout reads a TOML or YAML layout, picked by file extension, and
// validates it.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	var l Layout
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &l)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &l)
	default:
		return Layout{}, fmt.Errorf("layout %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return Layout{}, fmt.Errorf("decode layout %s: %w", path, err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, fmt.Errorf("layout %s: %w", path, err)
	}
	return l, nil
}

// DefaultLayout mirrors the inventory backend: location and tag lookups in
// the edit pane, per-attribute item lookups in the browse pane.
func DefaultLayout() Layout {
	l := Layout{
		Inputs: []InputSpec{
			{Name: "edit/location", Tag: "location", Label: "Location", Pane: PaneEdit, Placeholder: "shelf, box, room"},
			{Name: "edit/parent", Tag: "parent", Label: "Parent", Pane: PaneEdit, Placeholder: "containing location"},
			{Name: "edit/tag", Tag: "tag", Label: "Tag", Pane: PaneEdit, Placeholder: "add a tag"},
		},
		Bindings: []BindingSpec{
			{Selector: "edit/{location,parent}", Endpoint: "/api/locations/search"},
			{Selector: "edit/tag", Endpoint: "/api/tags/search"},
			{Selector: "browse/*", Endpoint: "/api/items/{tag}", Autocomplete: true, Dispatch: true},
		},
		Routes: map[string]RouteSpec{},
	}
	for _, attr := range []string{"tag", "location", "group", "color", "status", "variant", "bought-place"} {
		l.Inputs = append(l.Inputs, InputSpec{
			Name:  "browse/" + attr,
			Tag:   attr,
			Label: strings.ToUpper(attr[:1]) + strings.ReplaceAll(attr[1:], "-", " "),
			Pane:  PaneBrowse,
		})
		l.Routes[attr] = RouteSpec{Endpoint: "/api/items/" + attr}
	}
	return l
}

// Validate reports every problem in the layout at once.
func (l Layout) Validate() error {
	var errs []error
	seen := map[string]bool{}
	for i, in := range l.Inputs {
		switch {
		case strings.TrimSpace(in.Name) == "":
			errs = append(errs, fmt.Errorf("input %d: empty name", i))
		case seen[in.Name]:
			errs = append(errs, fmt.Errorf("input %q: duplicate name", in.Name))
		}
		seen[in.Name] = true
		if in.Pane != PaneEdit && in.Pane != PaneBrowse {
			errs = append(errs, fmt.Errorf("input %q: unknown pane %q", in.Name, in.Pane))
		}
	}
	for tag, r := range l.Routes {
		if strings.TrimSpace(r.Endpoint) == "" {
			errs = append(errs, fmt.Errorf("route %q: empty endpoint", tag))
		}
		if r.By != "" && r.By != "label" && r.By != "id" {
			errs = append(errs, fmt.Errorf("route %q: unknown by %q", tag, r.By))
		}
	}
	for i, b := range l.Bindings {
		if strings.TrimSpace(b.Endpoint) == "" {
			errs = append(errs, fmt.Errorf("binding %d: empty endpoint", i))
		}
		if strings.TrimSpace(b.Selector) == "" {
			errs = append(errs, fmt.Errorf("binding %d: empty selector", i))
			continue
		}
		matched, err := l.Match(b.Selector)
		if err != nil {
			errs = append(errs, fmt.Errorf("binding %d: %w", i, err))
			continue
		}
		if len(matched) == 0 {
			errs = append(errs, fmt.Errorf("binding %d: selector %q matches no input", i, b.Selector))
		}
		if !b.Dispatch {
			continue
		}
		for _, in := range matched {
			if _, ok := l.Routes[in.Tag]; !ok {
				errs = append(errs, fmt.Errorf("binding %d: no route for tag %q of %q", i, in.Tag, in.Name))
			}
		}
	}
	return errors.Join(errs...)
}

// Match returns the inputs whose names match selector.
func (l Layout) Match(selector string) ([]InputSpec, error) {
	if !doublestar.ValidatePattern(selector) {
		return nil, fmt.Errorf("selector %q: %w", selector, doublestar.ErrBadPattern)
	}
	var out []InputSpec
	for _, in := range l.Inputs {
		if ok, _ := doublestar.Match(selector, in.Name); ok {
			out = append(out, in)
		}
	}
	return out, nil
}

// Pane returns the inputs of one pane in declaration order.
func (l Layout) Pane(name string) []InputSpec {
	var out []InputSpec
	for _, in := range l.Inputs {
		if in.Pane == name {
			out = append(out, in)
		}
	}
	return out
}
