package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Astrrra/arcmini/internal/db"
	"github.com/Astrrra/arcmini/internal/events"
	"github.com/Astrrra/arcmini/internal/models"
	"github.com/Astrrra/arcmini/internal/segment"
	"github.com/Astrrra/arcmini/internal/timeline"
)

var (
	day  = models.DayRange(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	home = models.Coordinate{Latitude: 51.5, Longitude: -0.12}
)

type recorded struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recorded) handle(e *events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorded) ofType(t events.EventType) []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	engine *Engine
	places *db.PlaceRepository
	events *recorded
	pub    *events.InMemoryPublisher
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	database, err := db.Open(db.Config{Path: filepath.Join(t.TempDir(), "engine.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	pub := events.NewInMemoryPublisher()
	rec := &recorded{}
	require.NoError(t, pub.Subscribe("test", events.Filter{}, rec.handle))

	places := db.NewPlaceRepository(database)
	return &fixture{
		engine: New(cfg, db.NewItemRepository(database), places, pub),
		places: places,
		events: rec,
		pub:    pub,
	}
}

func visit(worth bool, offset time.Duration) *models.Item {
	start := day.Start.Add(offset)
	r := models.NewDateRange(start, start.Add(20*time.Minute))
	return &models.Item{
		ID:           uuid.New(),
		Kind:         models.ItemKindVisit,
		DateRange:    &r,
		WorthKeeping: worth,
		Visit:        &models.VisitDetail{Center: home},
	}
}

func ids(items ...*models.Item) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestApplyPublishesAffectedSpan(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	item := visit(true, time.Hour)

	require.NoError(t, f.engine.Apply(ctx, Revision{Items: []*models.Item{item}}))

	changed := f.events.ofType(events.EventItemsChanged)
	require.Len(t, changed, 1)
	require.True(t, changed[0].Range.Equal(*item.DateRange))
	require.Equal(t, []uuid.UUID{item.ID}, changed[0].ItemIDs)

	moved := item.Clone()
	next := models.NewDateRange(day.End.Add(time.Hour), day.End.Add(2*time.Hour))
	moved.DateRange = &next
	require.NoError(t, f.engine.Apply(ctx, Revision{Items: []*models.Item{moved}}))

	changed = f.events.ofType(events.EventItemsChanged)
	require.Len(t, changed, 2)
	require.True(t, changed[1].Range.Start.Equal(item.DateRange.Start))
	require.True(t, changed[1].Range.End.Equal(next.End))
}

func TestApplyRejectsInvalidRevision(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	err := f.engine.Apply(context.Background(), Revision{Items: []*models.Item{{ID: uuid.New(), Kind: "boat"}}})

	require.ErrorIs(t, err, models.ErrUnknownKind)
	require.Empty(t, f.events.ofType(events.EventItemsChanged))
	require.NoError(t, f.engine.Apply(context.Background(), Revision{}))
}

func TestStateChangesPublishOnlyOnChange(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	rec := NewRecorder(f.pub)

	f.engine.SetProcessing(ctx, true)
	f.engine.SetProcessing(ctx, true)
	rec.SetSleeping(ctx, true)
	rec.SetSleeping(ctx, true)
	id := uuid.New()
	f.engine.SetCurrentItem(ctx, id)
	f.engine.SetCurrentItem(ctx, id)

	require.True(t, f.engine.Processing())
	require.True(t, rec.IsSleeping())
	require.Len(t, f.events.ofType(events.EventEngineStateChanged), 3)
}

func TestCurrentItem(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	_, ok := f.engine.CurrentItem()
	require.False(t, ok)

	item := visit(false, time.Hour)
	f.engine.SetCurrentItem(ctx, item.ID)
	_, ok = f.engine.CurrentItem()
	require.False(t, ok, "unknown id is not a current item")

	require.NoError(t, f.engine.Apply(ctx, Revision{Items: []*models.Item{item}}))
	got, ok := f.engine.CurrentItem()
	require.True(t, ok)
	require.Equal(t, item.ID, got.ID)
}

func TestItemsToProcessStopsAtKeeperBoundary(t *testing.T) {
	f := newFixture(t, Config{KeeperBoundary: 1, MaxProcessingItems: 10})
	ctx := context.Background()

	outsideBefore := visit(true, 0)
	keeperBefore := visit(true, time.Hour)
	noiseBefore := visit(false, 2*time.Hour)
	current := visit(false, 3*time.Hour)
	dead := visit(false, 4*time.Hour)
	dead.Invalidated = true
	keeperAfter := visit(true, 5*time.Hour)
	outsideAfter := visit(false, 6*time.Hour)
	all := []*models.Item{outsideBefore, keeperBefore, noiseBefore, current, dead, keeperAfter, outsideAfter}
	require.NoError(t, f.engine.Apply(ctx, Revision{Items: all}))

	got, err := f.engine.ItemsToProcess(ctx, current)
	require.NoError(t, err)
	require.ElementsMatch(t, ids(current, noiseBefore, keeperBefore, keeperAfter), got)
}

func TestItemsToProcessHonoursMaxItems(t *testing.T) {
	f := newFixture(t, Config{KeeperBoundary: 5, MaxProcessingItems: 3})
	ctx := context.Background()

	var all []*models.Item
	for i := 0; i < 8; i++ {
		all = append(all, visit(false, time.Duration(i)*time.Hour))
	}
	require.NoError(t, f.engine.Apply(ctx, Revision{Items: all}))

	got, err := f.engine.ItemsToProcess(ctx, all[4])
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, all[4].ID, got[0])
}

func TestItemsToProcessEdgeCases(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	got, err := f.engine.ItemsToProcess(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, got)

	undated := visit(false, 0)
	undated.DateRange = nil
	got, err = f.engine.ItemsToProcess(ctx, undated)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{undated.ID}, got)

	unknown := visit(false, time.Hour)
	got, err = f.engine.ItemsToProcess(ctx, unknown)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{unknown.ID}, got)
}

func TestFindAPlaceAssignsNearestPlace(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, f.places.Add(ctx, &models.Place{Name: "Home", Center: home, RadiusMeters: 25}))

	item := visit(true, time.Hour)
	require.NoError(t, f.engine.Apply(ctx, Revision{Items: []*models.Item{item}}))

	f.engine.FindAPlace(ctx, item)
	f.engine.FindAPlace(ctx, item)
	f.engine.Wait()

	got, err := f.engine.items.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, "Home", got.Visit.PlaceName)
	require.Len(t, f.events.ofType(events.EventItemsChanged), 2)

	f.engine.FindAPlace(ctx, got)
	f.engine.Wait()
	require.Len(t, f.events.ofType(events.EventItemsChanged), 2, "named visits are left alone")
}

func TestFindAPlaceWithoutNearbyPlace(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, f.places.Add(ctx, &models.Place{Name: "Far", Center: models.Coordinate{Latitude: 10, Longitude: 10}}))

	item := visit(true, time.Hour)
	require.NoError(t, f.engine.Apply(ctx, Revision{Items: []*models.Item{item}}))
	f.engine.FindAPlace(ctx, item)
	f.engine.Wait()

	got, err := f.engine.items.Get(ctx, item.ID)
	require.NoError(t, err)
	require.True(t, got.NeedsPlace())
}

func TestEngineDrivesLiveSegment(t *testing.T) {
	f := newFixture(t, Config{KeeperBoundary: 1, MaxProcessingItems: 10})
	ctx := context.Background()
	rec := NewRecorder(f.pub)

	keeper := visit(true, time.Hour)
	current := visit(false, 2*time.Hour)
	require.NoError(t, f.engine.Apply(ctx, Revision{Items: []*models.Item{keeper, current}}))
	f.engine.SetCurrentItem(ctx, current.ID)

	noon := day.Start.Add(12 * time.Hour)
	seg := segment.New(day, f.engine, rec, f.pub, segment.WithClock(func() time.Time { return noon }))
	require.NoError(t, seg.StartUpdating(ctx))
	entries := <-seg.Updates()
	require.Len(t, entries, 2)
	require.True(t, entries[0].IsPlaceholder())

	rec.SetSleeping(ctx, true)
	entries = <-seg.Updates()
	require.Len(t, entries, 1)
	require.Equal(t, []*models.Item{entries[0].Item}, timeline.RealItems(entries))

	seg.StopUpdating()
	require.NoError(t, f.engine.Apply(ctx, Revision{Items: []*models.Item{visit(true, 3*time.Hour)}}))
	select {
	case <-seg.Updates():
		t.Fatal("stopped segment received an update")
	default:
	}
}
