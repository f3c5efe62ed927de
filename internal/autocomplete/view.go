package autocomplete

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

var (
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	focusLabelStyle  = labelStyle.Foreground(lipgloss.Color("#8942E1")).Bold(true)
	selectedIDStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	listBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).MarginLeft(12)
	entryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeEntryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#8942E1"))
	matchStyle       = lipgloss.NewStyle().Bold(true).Underline(true)
	moreStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

// InputZone is the pointer zone ID of the text box of the input called name.
func InputZone(name string) string { return name + "/input" }

func inputZone(f *field) string { return InputZone(f.input.Name) }

func entryZone(f *field, i int) string { return f.list.ID + "/" + strconv.Itoa(i) }

// View renders in with its caption and, when open, its suggestion list.
// Unbound inputs render as plain fields.
func (c *Controller) View(in *Input) string {
	ls := labelStyle
	if in.Focused() {
		ls = focusLabelStyle
	}
	line := ls.Render(in.Label) + in.Model.View()
	if id := in.SelectedID(); id != "" {
		line += " " + selectedIDStyle.Render("#"+id)
	}
	f := c.byName[in.Name]
	if f == nil {
		return line
	}
	if f.pending {
		line += " " + pendingStyle.Render("…")
	}
	line = c.hits.Mark(inputZone(f), line)
	if !f.open() {
		return line
	}
	return line + "\n" + c.renderList(f)
}

func (c *Controller) renderList(f *field) string {
	start, end := f.window()
	rows := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		it := f.items[i]
		base, prefix := entryStyle, "  "
		if i == f.active {
			base, prefix = activeEntryStyle, "› "
		}
		label := highlight(f.query, it.Label, base)
		rows = append(rows, c.hits.Mark(entryZone(f, i), base.Render(prefix)+label))
	}
	if hidden := len(f.items) - (end - start); hidden > 0 {
		rows = append(rows, moreStyle.Render("  +"+strconv.Itoa(hidden)+" more"))
	}
	return c.hits.Mark(f.list.ID, listBoxStyle.Render(strings.Join(rows, "\n")))
}

// highlight emphasises the runes of label that fuzzily match query.
func highlight(query, label string, base lipgloss.Style) string {
	if query == "" {
		return base.Render(label)
	}
	matches := fuzzy.Find(query, []string{label})
	if len(matches) == 0 {
		return base.Render(label)
	}
	return lipgloss.StyleRunes(label, matches[0].MatchedIndexes, base.Inherit(matchStyle), base)
}
