package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Astrrra/arcmini/internal/models"
)

var day = models.DayRange(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "arcmini.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func visitAt(offset, length time.Duration) *models.Item {
	start := day.Start.Add(offset)
	r := models.NewDateRange(start, start.Add(length))
	return &models.Item{
		ID:           uuid.New(),
		Kind:         models.ItemKindVisit,
		DateRange:    &r,
		WorthKeeping: true,
		Visit:        &models.VisitDetail{Center: models.Coordinate{Latitude: 51.5, Longitude: -0.12}, RadiusMeters: 40},
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "arcmini.db")
	db, err := Open(Config{Path: path, BusyTimeoutMs: 100})
	require.NoError(t, err)
	defer db.Close()

	require.Equal(t, path, db.Path())
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('timeline_items', 'places')`).Scan(&n))
	require.Equal(t, 2, n)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestOpenInMemory(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	repo := NewItemRepository(db)
	require.NoError(t, repo.Upsert(context.Background(), visitAt(time.Hour, time.Hour)))
	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestItemRepository_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewItemRepository(db)
	ctx := context.Background()

	item := visitAt(time.Hour, 30*time.Minute)
	item.MergeLocked = true
	require.NoError(t, repo.Upsert(ctx, item))

	got, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, item.ID, got.ID)
	require.Equal(t, models.ItemKindVisit, got.Kind)
	require.True(t, got.DateRange.Equal(*item.DateRange))
	require.True(t, got.MergeLocked)
	require.InDelta(t, 51.5, got.Visit.Center.Latitude, 1e-9)
	require.Nil(t, got.Path)

	item.WorthKeeping = false
	item.Visit.PlaceName = "Office"
	require.NoError(t, repo.Upsert(ctx, item))

	got, err = repo.Get(ctx, item.ID)
	require.NoError(t, err)
	require.False(t, got.WorthKeeping)
	require.Equal(t, "Office", got.Visit.PlaceName)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestItemRepository_GetMissing(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))

	_, err := repo.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestItemRepository_UpsertRejectsInvalid(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))

	err := repo.Upsert(context.Background(), &models.Item{ID: uuid.New(), Kind: "teleport"})
	require.ErrorIs(t, err, models.ErrUnknownKind)
}

func TestItemRepository_ListRange(t *testing.T) {
	db := setupTestDB(t)
	repo := NewItemRepository(db)
	ctx := context.Background()

	late := visitAt(20*time.Hour, time.Hour)
	early := visitAt(time.Hour, time.Hour)
	spanning := visitAt(-time.Hour, 2*time.Hour)
	yesterday := visitAt(-5*time.Hour, time.Hour)
	tomorrow := visitAt(25*time.Hour, time.Hour)
	undated := visitAt(0, 0)
	undated.DateRange = nil
	path := &models.Item{
		ID:        uuid.New(),
		Kind:      models.ItemKindPath,
		DateRange: &models.DateRange{Start: day.Start.Add(2 * time.Hour), End: day.Start.Add(3 * time.Hour)},
		Path:      &models.PathDetail{DistanceMeters: 1200, ActivityType: "walking"},
	}

	require.NoError(t, repo.UpsertMany(ctx, []*models.Item{late, early, spanning, yesterday, tomorrow, undated, path}))

	items, err := repo.ListRange(ctx, day)
	require.NoError(t, err)
	require.Len(t, items, 4)
	require.Equal(t, spanning.ID, items[0].ID)
	require.Equal(t, early.ID, items[1].ID)
	require.Equal(t, path.ID, items[2].ID)
	require.Equal(t, "walking", items[2].Path.ActivityType)
	require.Equal(t, late.ID, items[3].ID)
}

func TestItemRepository_ListRangeSkipsUnknownKinds(t *testing.T) {
	db := setupTestDB(t)
	repo := NewItemRepository(db)
	ctx := context.Background()

	good := visitAt(time.Hour, time.Hour)
	require.NoError(t, repo.Upsert(ctx, good))
	_, err := db.ExecContext(ctx, `
		INSERT INTO timeline_items (id, kind, start_ns, end_ns, updated_at)
		VALUES (?, 'hovercraft', ?, ?, '')
	`, uuid.NewString(), day.Start.Add(2*time.Hour).UnixNano(), day.Start.Add(3*time.Hour).UnixNano())
	require.NoError(t, err)

	items, err := repo.ListRange(ctx, day)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, good.ID, items[0].ID)
}

func TestPlaceRepository_AddListNearest(t *testing.T) {
	repo := NewPlaceRepository(setupTestDB(t))
	ctx := context.Background()

	home := &models.Place{Name: "Home", Center: models.Coordinate{Latitude: 51.5000, Longitude: -0.1200}, RadiusMeters: 30}
	office := &models.Place{Name: "Office", Center: models.Coordinate{Latitude: 51.5100, Longitude: -0.1200}, RadiusMeters: 50}
	require.NoError(t, repo.Add(ctx, home))
	require.NoError(t, repo.Add(ctx, office))
	require.NotEqual(t, uuid.Nil, home.ID)

	require.ErrorIs(t, repo.Add(ctx, home), ErrPlaceAlreadyExists)
	require.Error(t, repo.Add(ctx, &models.Place{}))

	places, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, places, 2)
	require.Equal(t, "Home", places[0].Name)

	near, dist, err := repo.Nearest(ctx, models.Coordinate{Latitude: 51.5001, Longitude: -0.1200}, 100)
	require.NoError(t, err)
	require.Equal(t, home.ID, near.ID)
	require.Zero(t, dist)

	_, _, err = repo.Nearest(ctx, models.Coordinate{Latitude: 52, Longitude: 0}, 100)
	require.ErrorIs(t, err, ErrPlaceNotFound)
}
