package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

type helpSection struct {
	title string
	keys  []key.Binding
}

func (m *Model) helpSections() []helpSection {
	k := m.keys
	return []helpSection{
		{title: "Global", keys: []key.Binding{k.Quit, k.Help, k.Back}},
		{title: "Days", keys: []key.Binding{k.PrevDay, k.NextDay, k.Today}},
		{title: "Timeline", keys: []key.Binding{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom, k.Open}},
		{title: "Map", keys: []key.Binding{k.MapGrow, k.MapShrink}},
	}
}

func (m *Model) renderHelpOverlay(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	lines := make([]string, 0, 32)
	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Chrome.Breadcrumb)).Render("Help")
	lines = append(lines, head, "")

	keyStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Base.Accent))
	for _, sec := range m.helpSections() {
		lines = append(lines, lipgloss.NewStyle().Bold(true).Render(sec.title))
		for _, b := range sec.keys {
			h := b.Help()
			lines = append(lines, "  "+keyStyle.Render(padRight(h.Key, 12))+"  "+h.Desc)
		}
		lines = append(lines, "")
	}
	lines = append(lines, m.theme.MutedStyle().Render("Dismiss: ? or Esc"))

	panelWidth := minInt(maxInt(44, width-10), 72)
	panelWidth = minInt(panelWidth, width)
	panel := lipgloss.NewStyle().
		Border(m.theme.Border()).
		BorderForeground(lipgloss.Color(m.theme.Base.Border)).
		Foreground(lipgloss.Color(m.theme.Base.Foreground)).
		Padding(1, 2).
		Width(maxInt(panelWidth-2, 0))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, panel.Render(strings.Join(lines, "\n")))
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
