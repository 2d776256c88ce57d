// Package components renders the timeline rows and the mini map.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/Astrrra/arcmini/internal/models"
	"github.com/Astrrra/arcmini/internal/timeline"
	"github.com/Astrrra/arcmini/internal/tui/styles"
)

const (
	focusMarker  = "▌ "
	blankMarker  = "  "
	unnamedPlace = "Unknown place"
)

// Row is one timeline entry prepared for rendering.
type Row struct {
	Entry    timeline.Entry
	Focused  bool
	Spinner  string
	Location *time.Location
}

// RowHeight returns how many lines RenderRow produces for e.
func RowHeight(e timeline.Entry) int {
	if e.Item != nil && e.Item.IsVisit() {
		return 2
	}
	return 1
}

// RenderRow renders row into exactly RowHeight lines, each at most width cells.
func RenderRow(theme styles.Theme, row Row, width int) []string {
	marker := blankMarker
	if row.Focused {
		marker = focusMarker
	}
	markerStyle := styles.Fg(theme.Chrome.SelectedItem)
	inner := width - runewidth.StringWidth(marker)
	if inner < 0 {
		inner = 0
	}
	loc := row.Location
	if loc == nil {
		loc = time.Local
	}

	item := row.Entry.Item
	var lines []string
	switch {
	case item == nil:
		frame := row.Spinner
		if frame == "" {
			frame = "…"
		}
		lines = []string{styles.Fg(theme.Timeline.Thinking).Render(Truncate(frame+" Thinking…", inner))}
	case item.IsVisit():
		name := unnamedPlace
		nameColor := theme.Timeline.Unnamed
		if item.Visit != nil && strings.TrimSpace(item.Visit.PlaceName) != "" {
			name = item.Visit.PlaceName
			nameColor = theme.Timeline.Visit
		}
		head := Truncate(formatSpan(item.DateRange, loc)+"  ", inner)
		title := styles.Fg(nameColor).Bold(true).Render(Truncate(name, inner-runewidth.StringWidth(head)))
		lines = []string{
			head + title,
			theme.MutedStyle().Render(Truncate(visitSummary(item), inner)),
		}
	default:
		lines = []string{styles.Fg(theme.Timeline.Path).Render(Truncate(pathSummary(item, loc), inner))}
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		prefix := blankMarker
		if row.Focused {
			prefix = markerStyle.Render(marker)
		}
		out[i] = prefix + line
	}
	return out
}

// Truncate cuts s to width display cells, ending with an ellipsis when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

func formatSpan(r *models.DateRange, loc *time.Location) string {
	if r == nil {
		return "--:--"
	}
	return r.Start.In(loc).Format("15:04") + "–" + r.End.In(loc).Format("15:04")
}

func visitSummary(item *models.Item) string {
	parts := []string{"visit"}
	if item.DateRange != nil {
		parts = append(parts, FormatDuration(item.DateRange.Duration()))
	}
	if item.Visit != nil && item.Visit.RadiusMeters > 0 {
		parts = append(parts, fmt.Sprintf("r %s", FormatDistance(item.Visit.RadiusMeters)))
	}
	return strings.Join(parts, " · ")
}

func pathSummary(item *models.Item, loc *time.Location) string {
	activity := "moving"
	distance := 0.0
	if item.Path != nil {
		if strings.TrimSpace(item.Path.ActivityType) != "" {
			activity = item.Path.ActivityType
		}
		distance = item.Path.DistanceMeters
	}
	start := "--:--"
	duration := ""
	if item.DateRange != nil {
		start = item.DateRange.Start.In(loc).Format("15:04")
		duration = " · " + FormatDuration(item.DateRange.Duration())
	}
	out := fmt.Sprintf("%s  ↳ %s", start, activity)
	if distance > 0 {
		out += " " + FormatDistance(distance)
	}
	return out + duration
}

// FormatDuration renders a duration compactly: 45s, 12m, 1h30m.
func FormatDuration(value time.Duration) string {
	if value < time.Minute {
		return value.Round(time.Second).String()
	}
	rounded := value.Round(time.Minute)
	hours := int(rounded.Hours())
	minutes := int(rounded.Minutes()) % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	if minutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%02dm", hours, minutes)
}

// FormatDistance renders meters, switching to kilometers from 1 km.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}
