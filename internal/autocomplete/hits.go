package autocomplete

import (
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
)

// HitTester marks rendered regions and answers whether a mouse event fell
// inside one of them.
type HitTester interface {
	Mark(id, s string) string
	InBounds(id string, msg tea.MouseMsg) bool
}

// ZoneHits implements HitTester with bubblezone. The root view must be
// passed through Scan for zones to be recorded.
type ZoneHits struct {
	m *zone.Manager
}

func NewZoneHits(m *zone.Manager) *ZoneHits {
	if m == nil {
		m = zone.New()
	}
	return &ZoneHits{m: m}
}

func (z *ZoneHits) Mark(id, s string) string { return z.m.Mark(id, s) }

func (z *ZoneHits) InBounds(id string, msg tea.MouseMsg) bool {
	info := z.m.Get(id)
	return info != nil && info.InBounds(msg)
}

// Scan strips zone markers from the final view and records positions.
func (z *ZoneHits) Scan(s string) string { return z.m.Scan(s) }

func (z *ZoneHits) Close() { z.m.Close() }

type noHits struct{}

func (noHits) Mark(_, s string) string            { return s }
func (noHits) InBounds(string, tea.MouseMsg) bool { return false }
