package tui

import (
	"github.com/google/uuid"

	"github.com/Astrrra/arcmini/internal/models"
	"github.com/Astrrra/arcmini/internal/segment"
	"github.com/Astrrra/arcmini/internal/timeline"
	"github.com/Astrrra/arcmini/internal/tui/components"
	"github.com/Astrrra/arcmini/internal/tui/styles"
)

// sentinelLines is the day title above the first row. It doubles as the
// list's top sentinel: the list is scrolled to top while it is on screen.
const sentinelLines = 1

type lineSpan struct {
	start int
	end   int
}

// dayCard is one page of the pager: a day's segment plus the scroll state
// of its list.
type dayCard struct {
	rng     models.DateRange
	seg     *segment.Segment
	life    *segment.Lifecycle
	entries []timeline.Entry
	spans   []lineSpan

	offset int
	cursor int

	// onScreen is the set of rows last reported visible to the store.
	onScreen timeline.IDSet
	topKnown bool
	topShown bool
}

func newDayCard(seg *segment.Segment, life *segment.Lifecycle) *dayCard {
	return &dayCard{
		rng:      seg.Range(),
		seg:      seg,
		life:     life,
		onScreen: timeline.IDSet{},
	}
}

func layoutSpans(entries []timeline.Entry) []lineSpan {
	spans := make([]lineSpan, len(entries))
	line := sentinelLines
	for i, e := range entries {
		h := components.RowHeight(e)
		spans[i] = lineSpan{start: line, end: line + h}
		line += h
	}
	return spans
}

func (c *dayCard) contentHeight() int {
	if len(c.spans) == 0 {
		return sentinelLines
	}
	return c.spans[len(c.spans)-1].end
}

// setEntries swaps in a rebuilt display list, keeping the cursor on the
// same row when it survived.
func (c *dayCard) setEntries(entries []timeline.Entry, height int) {
	var focused uuid.UUID
	if c.cursor >= 0 && c.cursor < len(c.entries) {
		focused = c.entries[c.cursor].ID
	}
	c.entries = entries
	c.spans = layoutSpans(entries)
	c.cursor = 0
	for i, e := range entries {
		if e.ID == focused {
			c.cursor = i
			break
		}
	}
	c.clampScroll(height)
}

func (c *dayCard) maxOffset(height int) int {
	if height <= 0 {
		return 0
	}
	m := c.contentHeight() - height
	if m < 0 {
		return 0
	}
	return m
}

func (c *dayCard) clampScroll(height int) {
	c.offset = styles.ClampInt(c.offset, 0, c.maxOffset(height))
	if len(c.entries) == 0 {
		c.cursor = 0
		return
	}
	c.cursor = styles.ClampInt(c.cursor, 0, len(c.entries)-1)
}

// ensureCursorVisible scrolls the minimum needed to show the focused row.
// The first row pulls the title back on screen with it.
func (c *dayCard) ensureCursorVisible(height int) {
	if len(c.entries) == 0 || height <= 0 {
		c.clampScroll(height)
		return
	}
	span := c.spans[c.cursor]
	switch {
	case c.cursor == 0:
		c.offset = 0
	case span.start < c.offset:
		c.offset = span.start
	case span.end > c.offset+height:
		c.offset = span.end - height
	}
	c.clampScroll(height)
}

func (c *dayCard) moveCursor(delta, height int) {
	if len(c.entries) == 0 {
		return
	}
	c.cursor = styles.ClampInt(c.cursor+delta, 0, len(c.entries)-1)
	c.ensureCursorVisible(height)
}

// scrollBy moves the viewport and drags the cursor onto the first row
// that starts inside it.
func (c *dayCard) scrollBy(lines, height int) {
	c.offset += lines
	c.clampScroll(height)
	for i, span := range c.spans {
		if span.start >= c.offset {
			c.cursor = i
			return
		}
	}
}

func (c *dayCard) scrollToTop() {
	c.offset = 0
	c.cursor = 0
}

func (c *dayCard) scrollToBottom(height int) {
	c.offset = c.maxOffset(height)
	if len(c.entries) > 0 {
		c.cursor = len(c.entries) - 1
	}
}

// visibleRows returns the real rows intersecting the viewport, in list order.
// Placeholders have no item behind them and never count as visible.
func (c *dayCard) visibleRows(height int) []uuid.UUID {
	if height <= 0 {
		return nil
	}
	top, bottom := c.offset, c.offset+height
	var ids []uuid.UUID
	for i, span := range c.spans {
		if span.end <= top {
			continue
		}
		if span.start >= bottom {
			break
		}
		if e := c.entries[i]; !e.IsPlaceholder() {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func (c *dayCard) scrolledToTop() bool {
	return c.offset == 0
}

// resetVisibility forgets what was reported so the next sync reports
// every row again. Entering a segment clears the store's visible set.
func (c *dayCard) resetVisibility() {
	c.onScreen = timeline.IDSet{}
	c.topKnown = false
}

func (c *dayCard) focused() (timeline.Entry, bool) {
	if c.cursor < 0 || c.cursor >= len(c.entries) {
		return timeline.Entry{}, false
	}
	return c.entries[c.cursor], true
}

func (c *dayCard) item(id uuid.UUID) *models.Item {
	for _, e := range c.entries {
		if e.ID == id && e.Item != nil {
			return e.Item
		}
	}
	return nil
}
