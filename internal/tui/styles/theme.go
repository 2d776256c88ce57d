// Package styles holds the arcmini TUI palettes and layout helpers.
package styles

import "github.com/charmbracelet/lipgloss"

// BaseColors defines global UI colors.
type BaseColors struct {
	Background string
	Foreground string
	Muted      string
	Accent     string
	Border     string
}

// TimelineColors defines colors for timeline rows.
type TimelineColors struct {
	Visit    string
	Path     string
	Thinking string
	Unnamed  string
}

// MapColors defines colors for the map panel.
type MapColors struct {
	Visit    string
	Path     string
	Selected string
	Grid     string
}

// ChromeColors defines non-content UI colors.
type ChromeColors struct {
	Header       string
	Footer       string
	Breadcrumb   string
	SelectedItem string
	Scrollbar    string
}

// BorderColors defines border colors for pane state.
type BorderColors struct {
	ActivePane   string
	InactivePane string
	Divider      string
}

// Theme defines the arcmini TUI style tokens.
type Theme struct {
	Name        string
	BorderStyle string // "rounded", "sharp", "double", "hidden"

	Base     BaseColors
	Timeline TimelineColors
	Map      MapColors
	Chrome   ChromeColors
	Borders  BorderColors
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default":       DefaultTheme,
	"high-contrast": HighContrastTheme,
}

// Lookup returns the named theme, falling back to the default palette.
func Lookup(name string) Theme {
	if theme, ok := Themes[name]; ok {
		return theme
	}
	return DefaultTheme
}

// Border returns the lipgloss border for the theme's border style.
func (t Theme) Border() lipgloss.Border {
	switch t.BorderStyle {
	case "sharp":
		return lipgloss.NormalBorder()
	case "double":
		return lipgloss.DoubleBorder()
	case "hidden":
		return lipgloss.HiddenBorder()
	default:
		return lipgloss.RoundedBorder()
	}
}

// Fg returns a style with the given foreground color.
func Fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func (t Theme) MutedStyle() lipgloss.Style  { return Fg(t.Base.Muted) }
func (t Theme) AccentStyle() lipgloss.Style { return Fg(t.Base.Accent) }

// PanelStyle is a bordered pane, highlighted when active.
func (t Theme) PanelStyle(active bool) lipgloss.Style {
	color := t.Borders.InactivePane
	if active {
		color = t.Borders.ActivePane
	}
	return lipgloss.NewStyle().
		Border(t.Border()).
		BorderForeground(lipgloss.Color(color))
}
