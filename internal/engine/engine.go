// Package engine is the processing engine behind the timeline: it owns item
// revisions, the processing flag, the current item and place assignment.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Astrrra/arcmini/internal/events"
	"github.com/Astrrra/arcmini/internal/logging"
	"github.com/Astrrra/arcmini/internal/models"
)

// Config bounds the processing boundary and place lookup.
type Config struct {
	// KeeperBoundary is how many keepers the boundary may pass on each side
	// of the current item before it stops.
	KeeperBoundary int

	// MaxProcessingItems caps the boundary size.
	MaxProcessingItems int

	// PlaceRadiusMeters is the furthest a visit may be from a place's edge.
	PlaceRadiusMeters float64
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		KeeperBoundary:     2,
		MaxProcessingItems: 30,
		PlaceRadiusMeters:  150,
	}
}

// boundaryWindow is how far either side of the current item the boundary looks.
const boundaryWindow = 48 * time.Hour

// ItemStore persists item revisions.
type ItemStore interface {
	UpsertMany(ctx context.Context, items []*models.Item) error
	Get(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ListRange(ctx context.Context, r models.DateRange) ([]*models.Item, error)
}

// PlaceFinder resolves the place closest to a coordinate.
type PlaceFinder interface {
	Nearest(ctx context.Context, c models.Coordinate, maxMeters float64) (*models.Place, float64, error)
}

// Revision is a batch of item updates applied atomically.
type Revision struct {
	Items []*models.Item
}

// Engine applies revisions and answers processing-boundary queries.
type Engine struct {
	cfg       Config
	items     ItemStore
	places    PlaceFinder
	publisher events.Publisher
	logger    zerolog.Logger

	mu         sync.RWMutex
	processing bool
	currentID  uuid.UUID
	finding    map[uuid.UUID]struct{}
	wg         sync.WaitGroup
}

// New creates an engine. places may be nil, in which case FindAPlace is a no-op.
func New(cfg Config, items ItemStore, places PlaceFinder, publisher events.Publisher) *Engine {
	defaults := DefaultConfig()
	if cfg.KeeperBoundary <= 0 {
		cfg.KeeperBoundary = defaults.KeeperBoundary
	}
	if cfg.MaxProcessingItems <= 0 {
		cfg.MaxProcessingItems = defaults.MaxProcessingItems
	}
	if cfg.PlaceRadiusMeters <= 0 {
		cfg.PlaceRadiusMeters = defaults.PlaceRadiusMeters
	}
	return &Engine{
		cfg:       cfg,
		items:     items,
		places:    places,
		publisher: publisher,
		logger:    logging.Component("engine"),
		finding:   make(map[uuid.UUID]struct{}),
	}
}

// Apply stores a revision and announces the affected span. The span covers
// both the old and new ranges of every item so a segment an item moved out
// of rebuilds too.
func (e *Engine) Apply(ctx context.Context, rev Revision) error {
	if len(rev.Items) == 0 {
		return nil
	}

	var span *models.DateRange
	ids := make([]uuid.UUID, 0, len(rev.Items))
	for _, item := range rev.Items {
		if item == nil {
			return errors.New("revision contains a nil item")
		}
		if err := item.Validate(); err != nil {
			return fmt.Errorf("invalid item %s: %w", item.ID, err)
		}
		if prev, err := e.items.Get(ctx, item.ID); err == nil {
			span = widen(span, prev.DateRange)
		}
		span = widen(span, item.DateRange)
		ids = append(ids, item.ID)
	}

	if err := e.items.UpsertMany(ctx, rev.Items); err != nil {
		return fmt.Errorf("apply revision: %w", err)
	}

	e.logger.Debug().Int("items", len(ids)).Msg("revision applied")
	e.publish(ctx, &events.Event{Type: events.EventItemsChanged, Range: span, ItemIDs: ids})
	return nil
}

func widen(span, r *models.DateRange) *models.DateRange {
	if r == nil {
		return span
	}
	if span == nil {
		out := *r
		return &out
	}
	out := *span
	if r.Start.Before(out.Start) {
		out.Start = r.Start
	}
	if r.End.After(out.End) {
		out.End = r.End
	}
	return &out
}

// Items returns the items overlapping r, oldest first.
func (e *Engine) Items(ctx context.Context, r models.DateRange) ([]*models.Item, error) {
	return e.items.ListRange(ctx, r)
}

// Processing reports whether a global reprocessing pass is underway.
func (e *Engine) Processing() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.processing
}

// SetProcessing flips the global processing flag.
func (e *Engine) SetProcessing(ctx context.Context, processing bool) {
	e.mu.Lock()
	changed := e.processing != processing
	e.processing = processing
	e.mu.Unlock()

	if changed {
		e.logger.Info().Bool("processing", processing).Msg("processing state changed")
		e.publish(ctx, &events.Event{Type: events.EventEngineStateChanged})
	}
}

// SetCurrentItem designates the item the recorder is appending to.
// uuid.Nil clears it.
func (e *Engine) SetCurrentItem(ctx context.Context, id uuid.UUID) {
	e.mu.Lock()
	changed := e.currentID != id
	e.currentID = id
	e.mu.Unlock()

	if changed {
		logger := logging.WithItem(e.logger, id)
		logger.Debug().Msg("current item changed")
		e.publish(ctx, &events.Event{Type: events.EventEngineStateChanged})
	}
}

// CurrentItem returns a snapshot of the current item.
func (e *Engine) CurrentItem() (*models.Item, bool) {
	e.mu.RLock()
	id := e.currentID
	e.mu.RUnlock()
	if id == uuid.Nil {
		return nil, false
	}

	item, err := e.items.Get(context.Background(), id)
	if err != nil {
		logger := logging.WithItem(e.logger, id)
		logger.Debug().Err(err).Msg("current item unavailable")
		return nil, false
	}
	return item, true
}

// ItemsToProcess expands outward from the given item in both directions,
// stopping on each side once KeeperBoundary keepers have been included or
// MaxProcessingItems are collected. Invalidated items are skipped.
func (e *Engine) ItemsToProcess(ctx context.Context, from *models.Item) ([]uuid.UUID, error) {
	if from == nil {
		return nil, nil
	}
	if from.DateRange == nil {
		return []uuid.UUID{from.ID}, nil
	}

	window := models.NewDateRange(from.DateRange.Start.Add(-boundaryWindow), from.DateRange.End.Add(boundaryWindow))
	items, err := e.items.ListRange(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("load boundary window: %w", err)
	}

	origin := -1
	for i, item := range items {
		if item.ID == from.ID {
			origin = i
			break
		}
	}
	if origin < 0 {
		return []uuid.UUID{from.ID}, nil
	}

	out := []uuid.UUID{from.ID}
	limit := e.cfg.MaxProcessingItems
	collect := func(step int) {
		keepers := 0
		for i := origin + step; i >= 0 && i < len(items) && len(out) < limit; i += step {
			item := items[i]
			if item.Invalidated {
				continue
			}
			out = append(out, item.ID)
			if item.WorthKeeping {
				keepers++
				if keepers >= e.cfg.KeeperBoundary {
					return
				}
			}
		}
	}
	collect(-1)
	collect(1)
	return out, nil
}

// FindAPlace assigns the nearest known place to an unnamed visit in the
// background. Repeated calls for an item already being resolved are ignored.
func (e *Engine) FindAPlace(ctx context.Context, item *models.Item) {
	if e.places == nil || item == nil || !item.NeedsPlace() || item.Visit == nil {
		return
	}

	e.mu.Lock()
	if _, busy := e.finding[item.ID]; busy {
		e.mu.Unlock()
		return
	}
	e.finding[item.ID] = struct{}{}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer func() {
			e.mu.Lock()
			delete(e.finding, item.ID)
			e.mu.Unlock()
		}()

		if err := e.assignPlace(ctx, item.ID, item.Visit.Center); err != nil {
			logger := logging.WithItem(e.logger, item.ID)
			logger.Debug().Err(err).Msg("place lookup failed")
		}
	}()
}

func (e *Engine) assignPlace(ctx context.Context, id uuid.UUID, center models.Coordinate) error {
	place, dist, err := e.places.Nearest(ctx, center, e.cfg.PlaceRadiusMeters)
	if err != nil {
		return err
	}

	current, err := e.items.Get(ctx, id)
	if err != nil {
		return err
	}
	if !current.NeedsPlace() {
		return nil
	}
	if current.Visit == nil {
		current.Visit = &models.VisitDetail{Center: center}
	}
	current.Visit.PlaceName = place.Name
	current.UpdatedAt = time.Now().UTC()

	logger := logging.WithItem(e.logger, id)
	logger.Info().
		Str("place", place.Name).
		Float64("distance_m", dist).
		Msg("place assigned")
	return e.Apply(ctx, Revision{Items: []*models.Item{current}})
}

// Wait blocks until background place lookups finish.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) publish(ctx context.Context, event *events.Event) {
	if e.publisher == nil {
		return
	}
	e.publisher.Publish(ctx, event)
}
