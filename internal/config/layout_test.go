package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlLayout = `
[[inputs]]
name = "edit/location"
tag = "location"
label = "Location"
pane = "edit"

[[inputs]]
name = "browse/color"
tag = "color"
label = "Color"
pane = "browse"

[[bindings]]
selector = "edit/*"
endpoint = "/api/locations/search"

[[bindings]]
selector = "browse/*"
endpoint = "/api/items/{tag}"
autocomplete = true
dispatch = true

[routes.color]
endpoint = "/api/items/color"
by = "label"
`

const yamlLayout = `
inputs:
  - name: edit/location
    tag: location
    label: Location
    pane: edit
  - name: browse/color
    tag: color
    label: Color
    pane: browse
bindings:
  - selector: edit/*
    endpoint: /api/locations/search
  - selector: browse/*
    endpoint: /api/items/{tag}
    autocomplete: true
    dispatch: true
routes:
  color:
    endpoint: /api/items/color
    by: label
`

func writeLayout(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadLayoutFormats(t *testing.T) {
	want := Layout{
		Inputs: []InputSpec{
			{Name: "edit/location", Tag: "location", Label: "Location", Pane: PaneEdit},
			{Name: "browse/color", Tag: "color", Label: "Color", Pane: PaneBrowse},
		},
		Bindings: []BindingSpec{
			{Selector: "edit/*", Endpoint: "/api/locations/search"},
			{Selector: "browse/*", Endpoint: "/api/items/{tag}", Autocomplete: true, Dispatch: true},
		},
		Routes: map[string]RouteSpec{"color": {Endpoint: "/api/items/color", By: "label"}},
	}
	for _, tc := range []struct{ name, body string }{
		{"fields.toml", tomlLayout},
		{"fields.yaml", yamlLayout},
		{"fields.yml", yamlLayout},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LoadLayout(writeLayout(t, tc.name, tc.body))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadLayoutErrors(t *testing.T) {
	_, err := LoadLayout(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadLayout(writeLayout(t, "fields.json", "{}"))
	assert.ErrorContains(t, err, "unsupported extension")

	_, err = LoadLayout(writeLayout(t, "fields.toml", "[[inputs]\nname ="))
	assert.ErrorContains(t, err, "decode layout")

	_, err = LoadLayout(writeLayout(t, "fields.yaml", "inputs:\n  - name: a\n    pane: sidebar\n"))
	assert.ErrorContains(t, err, `unknown pane "sidebar"`)
}

func TestDefaultLayoutIsValid(t *testing.T) {
	l := DefaultLayout()
	require.NoError(t, l.Validate())
	assert.Len(t, l.Pane(PaneEdit), 3)
	assert.NotEmpty(t, l.Pane(PaneBrowse))

	edit, err := l.Match("edit/{location,parent}")
	require.NoError(t, err)
	assert.Len(t, edit, 2)
	for _, in := range l.Pane(PaneBrowse) {
		assert.Contains(t, l.Routes, in.Tag)
	}
	assert.Equal(t, "Bought place", l.Inputs[len(l.Inputs)-1].Label)
}

func TestValidateCollectsProblems(t *testing.T) {
	l := Layout{
		Inputs: []InputSpec{
			{Name: "a", Tag: "x", Pane: PaneEdit},
			{Name: "a", Tag: "y", Pane: PaneBrowse},
			{Name: "", Pane: PaneEdit},
		},
		Bindings: []BindingSpec{
			{Selector: "", Endpoint: "/e"},
			{Selector: "zzz", Endpoint: "/e"},
			{Selector: "a", Endpoint: " ", Dispatch: true},
			{Selector: "[", Endpoint: "/e"},
		},
		Routes: map[string]RouteSpec{"y": {Endpoint: ""}, "z": {Endpoint: "/z", By: "name"}},
	}
	err := l.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`input "a": duplicate name`,
		"input 2: empty name",
		"binding 0: empty selector",
		`selector "zzz" matches no input`,
		"binding 2: empty endpoint",
		`no route for tag "x"`,
		`route "y": empty endpoint`,
		`route "z": unknown by "name"`,
		"binding 3:",
	} {
		assert.ErrorContains(t, err, want)
	}
}
