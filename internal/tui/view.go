package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Astrrra/arcmini/internal/models"
	"github.com/Astrrra/arcmini/internal/timeline"
	"github.com/Astrrra/arcmini/internal/tui/components"
	"github.com/Astrrra/arcmini/internal/tui/styles"
)

const (
	headerLines = 1
	footerLines = 1
)

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	header := m.renderHeader()
	footer := m.renderFooter()
	body := m.renderBody()
	return lipgloss.JoinVertical(lipgloss.Left, header, fitHeight(body, m.bodyHeight()), footer)
}

func (m *Model) renderBody() string {
	height := m.bodyHeight()
	switch {
	case m.showHelp:
		return m.renderHelpOverlay(m.width, height)
	case m.detail != nil:
		return m.renderDetail(m.detail, m.width, height)
	}

	card := m.current()
	parts := make([]string, 0, 2)
	if mapH := m.mapHeight(); mapH > 0 {
		parts = append(parts, m.renderMapPanel(card, m.width, mapH))
	}
	parts = append(parts, m.renderList(card, m.width, m.listHeight()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderHeader() string {
	snap := m.store.Snapshot()
	card := m.current()

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Chrome.Header)).
		Render("arcmini")
	crumb := styles.Fg(m.theme.Chrome.Breadcrumb).
		Render(fmt.Sprintf(" %s  [%d/%d]", dayTitle(card.rng, m.now()), m.index+1, len(m.cards)))

	var badges []string
	if m.engine.Processing() {
		badges = append(badges, styles.Fg(m.theme.Timeline.Thinking).Render(m.spinner.View()+" processing"))
	}
	if m.recorder != nil && m.recorder.IsSleeping() {
		badges = append(badges, m.theme.MutedStyle().Render("recorder asleep"))
	}
	if !snap.TodayButtonHidden {
		badges = append(badges, m.theme.AccentStyle().Render("T today"))
	}

	left := title + crumb
	right := strings.Join(badges, "  ")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return components.Truncate(left, m.width)
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) renderFooter() string {
	snap := m.store.Snapshot()
	hints := []string{"←/→ day", "j/k move", "Enter details", "+/- map", "? help", "q quit"}
	if !snap.BackButtonHidden {
		hints = append([]string{"Esc back"}, hints...)
	}
	return styles.Fg(m.theme.Chrome.Footer).Render(components.Truncate(strings.Join(hints, "  "), m.width))
}

// renderList renders the title line and rows, then cuts the viewport out of them.
func (m *Model) renderList(card *dayCard, width, height int) string {
	if height <= 0 {
		return ""
	}
	lines := make([]string, 0, card.contentHeight())
	lines = append(lines, m.renderSentinel(card, width))
	for i, e := range card.entries {
		lines = append(lines, components.RenderRow(m.theme, components.Row{
			Entry:    e,
			Focused:  i == card.cursor,
			Spinner:  m.spinner.View(),
			Location: m.cfg.Location,
		}, width)...)
	}

	end := card.offset + height
	if end > len(lines) {
		end = len(lines)
	}
	start := card.offset
	if start > end {
		start = end
	}
	return fitHeight(strings.Join(lines[start:end], "\n"), height)
}

func (m *Model) renderSentinel(card *dayCard, width int) string {
	items := timeline.RealItems(card.entries)
	summary := fmt.Sprintf("%s · %d %s", card.rng.Start.In(m.cfg.Location).Format("Mon 2 Jan 2006"), len(items), plural(len(items), "item", "items"))
	if len(card.entries) == 0 {
		summary += " · nothing recorded"
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Base.Foreground)).
		Render(components.Truncate(summary, width))
}

func (m *Model) renderDetail(item *models.Item, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	label := styles.Fg(m.theme.Base.Muted)
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Chrome.Breadcrumb)).Render(detailTitle(item)),
		"",
	}
	add := func(k, v string) {
		lines = append(lines, label.Render(fmt.Sprintf("%-10s", k))+" "+v)
	}
	if item.DateRange != nil {
		add("start", item.DateRange.Start.In(m.cfg.Location).Format(time.DateTime))
		add("end", item.DateRange.End.In(m.cfg.Location).Format(time.DateTime))
		add("duration", components.FormatDuration(item.DateRange.Duration()))
	}
	switch item.Kind {
	case models.ItemKindVisit:
		if item.Visit != nil {
			add("center", fmt.Sprintf("%.5f, %.5f", item.Visit.Center.Latitude, item.Visit.Center.Longitude))
			if item.Visit.RadiusMeters > 0 {
				add("radius", components.FormatDistance(item.Visit.RadiusMeters))
			}
		}
	case models.ItemKindPath:
		if item.Path != nil {
			add("activity", item.Path.ActivityType)
			add("distance", components.FormatDistance(item.Path.DistanceMeters))
			add("from", fmt.Sprintf("%.5f, %.5f", item.Path.From.Latitude, item.Path.From.Longitude))
			add("to", fmt.Sprintf("%.5f, %.5f", item.Path.To.Latitude, item.Path.To.Longitude))
		}
	}
	add("id", item.ID.String())
	lines = append(lines, "", m.theme.MutedStyle().Render("Back: Esc"))

	panelWidth := minInt(maxInt(40, width-10), 80)
	panelWidth = minInt(panelWidth, width)
	panel := m.theme.PanelStyle(true).
		Padding(1, 2).
		Width(maxInt(panelWidth-2, 0))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, panel.Render(strings.Join(lines, "\n")))
}

func detailTitle(item *models.Item) string {
	if item.IsVisit() {
		if item.Visit != nil && item.Visit.PlaceName != "" {
			return item.Visit.PlaceName
		}
		return "Unknown place"
	}
	if item.Path != nil && item.Path.ActivityType != "" {
		return "Path · " + item.Path.ActivityType
	}
	return "Path"
}

// dayTitle names a day relative to now.
func dayTitle(r models.DateRange, now time.Time) string {
	today := models.DayRange(now)
	switch {
	case r.Equal(today):
		return "Today"
	case r.Equal(models.DayRange(today.Start.AddDate(0, 0, -1))):
		return "Yesterday"
	default:
		return r.Start.In(now.Location()).Format("Monday 2 January")
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
