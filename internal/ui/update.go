package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"inventory-search/internal/autocomplete"
	"inventory-search/internal/infra/logx"
)

// chrome is the rough number of lines taken by header, inputs and footer.
const chrome = 8

// ---------- Update ----------
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.results.Width = max(20, msg.Width-2)
		m.results.Height = max(3, msg.Height-chrome-len(m.forms[paneBrowse].Inputs()))
		if m.detail != nil {
			m.results.SetContent(renderCards(*m.detail, m.results.Width))
		}
		return m, nil

	case autocomplete.QueryFailedMsg:
		m.setError(fmt.Sprintf("%s: lookup %q failed: %v", msg.Field, msg.Query, msg.Err))
		return m, nil

	case autocomplete.SelectedMsg:
		return m.handleSelected(msg), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// controller-internal answers and debounce ticks
	cmd, _ := m.ac.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// global shortcuts
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+t":
		return m.switchPane()
	}

	if cmd, handled := m.ac.Update(msg); handled {
		return m, cmd
	}

	switch msg.String() {
	case "tab", "down":
		return m, m.form().FocusNext()
	case "shift+tab", "up":
		return m, m.form().FocusPrev()
	case "esc":
		m.setStatus("")
		return m, nil
	case "pgup", "pgdown":
		if m.pane == paneBrowse {
			var cmd tea.Cmd
			m.results, cmd = m.results.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	// plain inputs without a binding still take text
	if in := m.form().Focused(); in != nil && !m.ac.Bound(in.Name) {
		var cmd tea.Cmd
		in.Model, cmd = in.Model.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) switchPane() (tea.Model, tea.Cmd) {
	m.form().Blur()
	if m.pane == paneEdit {
		m.pane = paneBrowse
	} else {
		m.pane = paneEdit
	}
	logx.Debugw("pane switched", "pane", m.pane.String())
	return m, m.form().Focus(0)
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if cmd, handled := m.ac.Update(msg); handled {
		return m, cmd
	}
	if msg.Action == tea.MouseActionPress {
		switch msg.Button {
		case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
			if m.pane == paneBrowse {
				var cmd tea.Cmd
				m.results, cmd = m.results.Update(msg)
				return m, cmd
			}
		case tea.MouseButtonLeft:
			// clicking an input focuses it
			for _, in := range m.form().Inputs() {
				if m.zones.InBounds(autocomplete.InputZone(in.Name), msg) {
					return m, m.form().FocusName(in.Name)
				}
			}
		}
	}
	return m, nil
}

func (m Model) handleSelected(msg autocomplete.SelectedMsg) Model {
	if msg.Err != nil {
		m.setError(fmt.Sprintf("%s: %v", msg.Field, msg.Err))
		return m
	}
	detail, ok := msg.Result.(autocomplete.Detail)
	if !ok {
		m.setStatus(fmt.Sprintf("%s = %s", msg.Field, selectionLabel(msg)))
		return m
	}
	m.detail = &detail
	if m.results.Width == 0 {
		m.results = viewport.New(80, 10)
	}
	m.results.SetContent(renderCards(detail, m.results.Width))
	m.results.GotoTop()
	m.setStatus(fmt.Sprintf("%d item(s) with %s %q", len(detail.Records), detail.Tag, detail.Query))
	return m
}

func selectionLabel(msg autocomplete.SelectedMsg) string {
	if msg.Item.ID == "" {
		return msg.Item.Label
	}
	return fmt.Sprintf("%s (#%s)", msg.Item.Label, msg.Item.ID)
}
