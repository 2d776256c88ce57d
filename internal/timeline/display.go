// Package timeline turns a segment's raw item sequence into the list the UI renders.
package timeline

import (
	"github.com/google/uuid"

	"github.com/Astrrra/arcmini/internal/models"
)

// Entry is one row of the display list: either a real item or a
// placeholder standing in for a run of items that are still being processed.
type Entry struct {
	// ID is the item id for real entries, or the id of the first collapsed
	// item for placeholders. It is only used for stable row identity.
	ID uuid.UUID

	// Item is nil for placeholders.
	Item *models.Item
}

// IsPlaceholder reports whether the entry stands in for unfinished items.
func (e Entry) IsPlaceholder() bool {
	return e.Item == nil
}

// ActivityFunc reports whether an item is inside the engine's processing boundary.
type ActivityFunc func(item *models.Item) bool

// BuildDisplayList converts items (oldest first, as the segment stores them)
// into display entries ordered newest first.
//
// Items without a date range or that have been invalidated are omitted.
// Keepers are emitted as real entries. Items that are not worth keeping but
// are active or merge locked collapse into a single placeholder per run;
// everything else is dropped.
func BuildDisplayList(items []*models.Item, isActive ActivityFunc) []Entry {
	entries := make([]Entry, 0, len(items))

	previousWasPlaceholder := false
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if item == nil || item.DateRange == nil || item.Invalidated {
			continue
		}

		if item.WorthKeeping {
			entries = append(entries, Entry{ID: item.ID, Item: item})
			previousWasPlaceholder = false
			continue
		}

		active := item.MergeLocked || (isActive != nil && isActive(item))
		if active && !previousWasPlaceholder {
			entries = append(entries, Entry{ID: item.ID})
			previousWasPlaceholder = true
		}
	}

	return entries
}

// RealItems returns the items behind the non-placeholder entries, in entry order.
func RealItems(entries []Entry) []*models.Item {
	out := make([]*models.Item, 0, len(entries))
	for _, e := range entries {
		if e.Item != nil {
			out = append(out, e.Item)
		}
	}
	return out
}
