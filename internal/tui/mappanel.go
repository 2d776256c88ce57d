package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/Astrrra/arcmini/internal/models"
	"github.com/Astrrra/arcmini/internal/timeline"
	"github.com/Astrrra/arcmini/internal/tui/components"
	"github.com/Astrrra/arcmini/internal/tui/styles"
	"github.com/Astrrra/arcmini/internal/uistate"
)

const metersPerDegreeLatitude = 111320.0

// mapSegmentFor computes the map's rendering of an item. Items without
// coordinates have nothing to draw.
func mapSegmentFor(item *models.Item) (uistate.MapSegment, bool) {
	coords := item.Coordinates()
	if len(coords) == 0 {
		return uistate.MapSegment{}, false
	}
	b := uistate.Bounds{
		MinLatitude:  coords[0].Latitude,
		MinLongitude: coords[0].Longitude,
		MaxLatitude:  coords[0].Latitude,
		MaxLongitude: coords[0].Longitude,
	}
	for _, c := range coords[1:] {
		b = extendBounds(b, uistate.Bounds{MinLatitude: c.Latitude, MinLongitude: c.Longitude, MaxLatitude: c.Latitude, MaxLongitude: c.Longitude})
	}

	label := ""
	if item.IsVisit() {
		if item.Visit.PlaceName != "" {
			label = item.Visit.PlaceName
		}
		if r := item.Visit.RadiusMeters; r > 0 {
			dLat := r / metersPerDegreeLatitude
			dLon := dLat
			if cos := math.Cos(item.Visit.Center.Latitude * math.Pi / 180); cos > 1e-6 {
				dLon = dLat / cos
			}
			b.MinLatitude -= dLat
			b.MaxLatitude += dLat
			b.MinLongitude -= dLon
			b.MaxLongitude += dLon
		}
	} else if item.Path.ActivityType != "" {
		label = item.Path.ActivityType
	}
	return uistate.MapSegment{ItemID: item.ID, Label: label, Bounds: b}, true
}

func extendBounds(a, b uistate.Bounds) uistate.Bounds {
	return uistate.Bounds{
		MinLatitude:  math.Min(a.MinLatitude, b.MinLatitude),
		MinLongitude: math.Min(a.MinLongitude, b.MinLongitude),
		MaxLatitude:  math.Max(a.MaxLatitude, b.MaxLatitude),
		MaxLongitude: math.Max(a.MaxLongitude, b.MaxLongitude),
	}
}

// mapContents resolves what the map shows for a card: the selected items,
// or the whole segment when the selection is empty.
type mapContents struct {
	items     []*models.Item
	segments  []uistate.MapSegment
	extent    uistate.Bounds
	selection bool
}

func (m *Model) collectMap(card *dayCard) mapContents {
	selected := m.store.SelectedItems()
	out := mapContents{selection: len(selected) > 0}

	first := true
	for _, item := range timeline.RealItems(card.entries) {
		if out.selection && !selected.Contains(item.ID) {
			continue
		}
		seg, ok := m.cachedSegment(item)
		if !ok {
			continue
		}
		out.items = append(out.items, item)
		out.segments = append(out.segments, seg)
		if first {
			out.extent = seg.Bounds
			first = false
		} else {
			out.extent = extendBounds(out.extent, seg.Bounds)
		}
	}
	return out
}

// cachedSegment reads the store's item segment cache, filling it on a miss.
func (m *Model) cachedSegment(item *models.Item) (uistate.MapSegment, bool) {
	if seg, ok := m.store.ItemSegment(item.ID); ok {
		return seg, true
	}
	seg, ok := mapSegmentFor(item)
	if !ok {
		return uistate.MapSegment{}, false
	}
	m.store.CacheItemSegment(seg)
	return seg, true
}

func (m *Model) renderMapPanel(card *dayCard, width, height int) string {
	if width <= 2 || height < styles.MinMapHeight {
		return ""
	}
	inner := width - 2
	rows := height - 2

	contents := m.collectMap(card)
	var focusedID uuid.UUID
	if e, ok := card.focused(); ok && !e.IsPlaceholder() {
		focusedID = e.ID
	}

	scope := "Whole day"
	if contents.selection {
		scope = "On screen"
	}
	caption := fmt.Sprintf("%s · %d %s", scope, len(contents.items), plural(len(contents.items), "item", "items"))
	lines := []string{m.theme.MutedStyle().Render(components.Truncate(caption, inner))}

	if rows > 1 {
		if len(contents.items) == 0 {
			lines = append(lines, m.theme.MutedStyle().Render(components.Truncate("nothing to show", inner)))
		} else {
			marks := make([]components.Mark, 0, len(contents.items))
			for _, item := range contents.items {
				marks = append(marks, components.Mark{
					Kind:      item.Kind,
					Points:    item.Coordinates(),
					Highlight: item.ID == focusedID,
				})
			}
			extent := components.Extent{
				MinLatitude:  contents.extent.MinLatitude,
				MinLongitude: contents.extent.MinLongitude,
				MaxLatitude:  contents.extent.MaxLatitude,
				MaxLongitude: contents.extent.MaxLongitude,
			}
			lines = append(lines, components.RenderMiniMap(m.theme, marks, extent, inner, rows-1)...)
		}
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}

	return m.theme.PanelStyle(false).
		Width(inner).
		Height(rows).
		Render(strings.Join(lines[:rows], "\n"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// fitHeight pads or cuts a rendered block to exactly height lines.
func fitHeight(block string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(block, "\n")
	if block == "" {
		lines = nil
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines[:height], "\n")
}
