package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", max(10, m.width-2))))
	b.WriteString("\n\n")

	for _, in := range m.form().Inputs() {
		b.WriteString(m.ac.View(in))
		b.WriteString("\n")
	}

	if m.pane == paneBrowse {
		b.WriteString("\n")
		if m.detail == nil {
			b.WriteString(subtleStyle.Render("Pick a suggestion to list matching items.") + "\n")
		} else {
			b.WriteString(m.results.View() + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	b.WriteString("\n")
	return m.zones.Scan(b.String())
}

func (m Model) renderHeader() string {
	tabs := make([]string, 0, 2)
	for _, p := range []pane{paneEdit, paneBrowse} {
		st := tabStyle
		if p == m.pane {
			st = activeTabStyle
		}
		tabs = append(tabs, st.Render(strings.ToUpper(p.String()[:1])+p.String()[1:]))
	}
	head := titleStyle.Render("Inventory") + "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.pending() {
		head += "  " + m.spinner.View()
	}
	return head
}

func (m Model) renderFooter() string {
	status := m.statusMsg
	if status != "" {
		if m.statusErr {
			status = errorStyle.Render("! " + status)
		} else {
			status = okStyle.Render(status)
		}
	}
	metrics := ""
	if m.metrics != nil {
		metrics = m.metrics.Snapshot().String()
	}
	footer := renderFooter(metrics,
		"↑/↓ move  |  enter pick  |  esc close  |  tab next field  |  pgup/pgdown scroll  |  ctrl+t switch pane  |  ctrl+c quit",
	)
	if status == "" {
		return footer
	}
	return status + "\n" + footer
}
