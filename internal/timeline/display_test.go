package timeline

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Astrrra/arcmini/internal/models"
)

var testDay = models.DayRange(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

func testItem(worth bool, offset int) *models.Item {
	start := testDay.Start.Add(time.Duration(offset) * time.Minute)
	r := models.NewDateRange(start, start.Add(time.Minute))
	return &models.Item{
		ID:           uuid.New(),
		Kind:         models.ItemKindVisit,
		DateRange:    &r,
		WorthKeeping: worth,
	}
}

// chronological reverses display-order items into the oldest-first order segments hold.
func chronological(displayOrder ...*models.Item) []*models.Item {
	out := make([]*models.Item, len(displayOrder))
	for i, item := range displayOrder {
		out[len(displayOrder)-1-i] = item
	}
	return out
}

func activeSet(items ...*models.Item) ActivityFunc {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return Activity(false, NewIDSet(ids...))
}

func TestBuildDisplayListCollapsesActiveRun(t *testing.T) {
	v1, v2, v3, v4 := testItem(true, 40), testItem(false, 30), testItem(false, 20), testItem(true, 10)

	entries := BuildDisplayList(chronological(v1, v2, v3, v4), activeSet(v2, v3))

	require.Len(t, entries, 3)
	require.Equal(t, v1.ID, entries[0].ID)
	require.False(t, entries[0].IsPlaceholder())
	require.True(t, entries[1].IsPlaceholder())
	require.Equal(t, v2.ID, entries[1].ID)
	require.Equal(t, v4.ID, entries[2].ID)
	require.Same(t, v4, entries[2].Item)
}

func TestBuildDisplayListDropsInactiveNoise(t *testing.T) {
	v1, v2, v3, v4 := testItem(true, 40), testItem(false, 30), testItem(false, 20), testItem(true, 10)

	entries := BuildDisplayList(chronological(v1, v2, v3, v4), activeSet())

	require.Len(t, entries, 2)
	require.Equal(t, v1.ID, entries[0].ID)
	require.Equal(t, v4.ID, entries[1].ID)
}

func TestBuildDisplayListSkipsUndatedAndInvalidated(t *testing.T) {
	undated := testItem(true, 30)
	undated.DateRange = nil
	invalid := testItem(true, 20)
	invalid.Invalidated = true
	keeper := testItem(true, 10)

	entries := BuildDisplayList(chronological(undated, invalid, keeper), Activity(true, nil))

	require.Len(t, entries, 1)
	require.Equal(t, keeper.ID, entries[0].ID)
}

func TestBuildDisplayListMergeLockedCountsAsActive(t *testing.T) {
	keeper := testItem(true, 20)
	locked := testItem(false, 10)
	locked.MergeLocked = true

	entries := BuildDisplayList(chronological(keeper, locked), activeSet())

	require.Len(t, entries, 2)
	require.True(t, entries[1].IsPlaceholder())
	require.Equal(t, locked.ID, entries[1].ID)
}

func TestBuildDisplayListProcessingWidensEveryItem(t *testing.T) {
	a, b, c := testItem(false, 30), testItem(true, 20), testItem(false, 10)

	entries := BuildDisplayList(chronological(a, b, c), Activity(true, nil))

	require.Len(t, entries, 3)
	require.True(t, entries[0].IsPlaceholder())
	require.False(t, entries[1].IsPlaceholder())
	require.True(t, entries[2].IsPlaceholder())
}

func TestBuildDisplayListInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		n := rng.Intn(30)
		items := make([]*models.Item, 0, n)
		active := IDSet{}
		for i := 0; i < n; i++ {
			item := testItem(rng.Intn(3) == 0, i)
			item.MergeLocked = rng.Intn(6) == 0
			item.Invalidated = rng.Intn(8) == 0
			if rng.Intn(10) == 0 {
				item.DateRange = nil
			}
			if rng.Intn(2) == 0 {
				active[item.ID] = struct{}{}
			}
			items = append(items, item)
		}
		isActive := Activity(rng.Intn(5) == 0, active)

		entries := BuildDisplayList(items, isActive)
		for i, e := range entries {
			if e.IsPlaceholder() {
				if i > 0 {
					require.False(t, entries[i-1].IsPlaceholder(), "adjacent placeholders at %d", i)
				}
				continue
			}
			require.True(t, e.Item.WorthKeeping)
			require.False(t, e.Item.Invalidated)
			require.NotNil(t, e.Item.DateRange)
			require.Equal(t, e.Item.ID, e.ID)
		}

		require.Equal(t, entries, BuildDisplayList(items, isActive), "rebuild must be idempotent")
	}
}

func TestBuildDisplayListPreservesNewestFirstOrder(t *testing.T) {
	items := []*models.Item{testItem(true, 0), testItem(true, 5), testItem(true, 10)}

	entries := BuildDisplayList(items, nil)

	require.Len(t, entries, 3)
	require.Equal(t, items[2].ID, entries[0].ID)
	require.Equal(t, items[1].ID, entries[1].ID)
	require.Equal(t, items[0].ID, entries[2].ID)
	require.Len(t, RealItems(entries), 3)
}
