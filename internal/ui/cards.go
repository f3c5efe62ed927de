package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"inventory-search/internal/autocomplete"
	"inventory-search/internal/inventory"
)

// renderCards lays detail records out as bordered cards, one per record.
func renderCards(d autocomplete.Detail, width int) string {
	if len(d.Records) == 0 {
		return subtleStyle.Render(fmt.Sprintf("No items with %s %q.", d.Tag, d.Query))
	}
	cards := make([]string, 0, len(d.Records))
	for _, rec := range d.Records {
		cards = append(cards, renderCard(rec, width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func renderCard(rec inventory.Record, width int) string {
	var b strings.Builder
	b.WriteString(cardTitleStyle.Render(rec.Title()))
	for _, k := range rec.Keys() {
		switch k {
		case "label", "name", "title":
			continue
		}
		b.WriteString("\n")
		b.WriteString(cardKeyStyle.Render(k+": ") + rec.Value(k))
	}
	st := cardStyle
	if width > 2 {
		// width excludes the border
		st = st.Width(width - 2)
	}
	return st.Render(b.String())
}
