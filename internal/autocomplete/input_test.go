package autocomplete

import (
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(ins []*Input) []string {
	out := make([]string, 0, len(ins))
	for _, in := range ins {
		out = append(out, in.Name)
	}
	return out
}

func TestFormQuery(t *testing.T) {
	form := NewForm(
		newTestInput("edit/location", "location"),
		newTestInput("edit/parent", "location"),
		newTestInput("edit/tag", "tag"),
		newTestInput("browse/tag", "tag"),
	)
	tests := []struct {
		pattern string
		want    []string
	}{
		{"edit/location", []string{"edit/location"}},
		{"edit/*", []string{"edit/location", "edit/parent", "edit/tag"}},
		{"*/tag", []string{"edit/tag", "browse/tag"}},
		{"edit/{location,parent}", []string{"edit/location", "edit/parent"}},
		{"**", []string{"edit/location", "edit/parent", "edit/tag", "browse/tag"}},
		{"nope", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := form.Query(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}

	_, err := form.Query("edit/[")
	assert.ErrorIs(t, err, doublestar.ErrBadPattern)
}

func TestFormFocusCycles(t *testing.T) {
	a, b, c := newTestInput("a", ""), newTestInput("b", ""), newTestInput("c", "")
	form := NewForm(a, b)
	assert.Nil(t, form.Focused())

	form.FocusPrev()
	assert.Same(t, b, form.Focused())
	form.FocusNext()
	assert.Same(t, a, form.Focused())
	assert.False(t, b.Focused())

	form.Add(c)
	form.FocusName("c")
	assert.True(t, c.Focused())
	assert.False(t, a.Focused())
	form.FocusNext()
	assert.Same(t, a, form.Focused())

	form.FocusName("missing")
	assert.Same(t, a, form.Focused())

	form.Blur()
	assert.Nil(t, form.Focused())
	assert.Same(t, c, form.Lookup("c"))
	assert.Nil(t, form.Lookup("zzz"))
}

func TestSetValueDoesNotQueryOrSelect(t *testing.T) {
	fx := newFixture(t, Binding{})
	fx.input.SetValue("Garage")
	assert.Equal(t, "Garage", fx.input.Value())
	assert.Empty(t, fx.search.queries())
	assert.Empty(t, fx.input.SelectedID())
	assert.Equal(t, len("Garage"), fx.input.Model.Position())
}

func TestInputZoneIsDistinctFromList(t *testing.T) {
	in := NewInput("browse/tag", "tag", "Tag", "")
	f := &field{input: in, list: AdjacentList(in)}
	assert.Equal(t, "browse/tag/input", InputZone(in.Name))
	assert.Equal(t, InputZone(in.Name), inputZone(f))
	assert.NotEqual(t, f.list.ID, InputZone(in.Name))
}
