package cli

import (
	"fmt"

	"github.com/Astrrra/arcmini/internal/config"
	"github.com/Astrrra/arcmini/internal/db"
	"github.com/Astrrra/arcmini/internal/engine"
	"github.com/Astrrra/arcmini/internal/events"
)

// runtime is the wired set of collaborators a command works against.
type runtime struct {
	cfg       *config.Config
	database  *db.DB
	items     *db.ItemRepository
	places    *db.PlaceRepository
	publisher *events.InMemoryPublisher
	engine    *engine.Engine
	recorder  *engine.Recorder
}

func openRuntime() (*runtime, error) {
	cfg := GetConfig()
	if cfg == nil {
		return nil, errConfigNotLoaded
	}

	database, err := db.Open(db.Config{
		Path:          cfg.DatabasePath(),
		BusyTimeoutMs: cfg.Database.BusyTimeoutMs,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	items := db.NewItemRepository(database)
	places := db.NewPlaceRepository(database)
	publisher := events.NewInMemoryPublisher()
	eng := engine.New(engine.Config{
		KeeperBoundary:     cfg.Engine.KeeperBoundary,
		MaxProcessingItems: cfg.Engine.MaxProcessingItems,
		PlaceRadiusMeters:  cfg.Engine.PlaceRadiusMeters,
	}, items, places, publisher)

	return &runtime{
		cfg:       cfg,
		database:  database,
		items:     items,
		places:    places,
		publisher: publisher,
		engine:    eng,
		recorder:  engine.NewRecorder(publisher),
	}, nil
}

// Close waits for background place lookups before closing the database.
func (r *runtime) Close() error {
	r.engine.Wait()
	r.publisher.Close()
	return r.database.Close()
}
