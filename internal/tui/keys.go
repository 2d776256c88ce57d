package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Top       key.Binding
	Bottom    key.Binding
	PrevDay   key.Binding
	NextDay   key.Binding
	Today     key.Binding
	Open      key.Binding
	Back      key.Binding
	MapGrow   key.Binding
	MapShrink key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "previous row")),
		Down:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "next row")),
		PageUp:    key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("PgUp", "page up")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("PgDn", "page down")),
		Top:       key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:    key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		PrevDay:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous day")),
		NextDay:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next day")),
		Today:     key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "jump to today")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "item details")),
		Back:      key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("Esc", "back")),
		MapGrow:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "taller map")),
		MapShrink: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "shorter map")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q / Ctrl+C", "quit")),
	}
}
