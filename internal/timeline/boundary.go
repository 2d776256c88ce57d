package timeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Astrrra/arcmini/internal/logging"
	"github.com/Astrrra/arcmini/internal/models"
)

// BoundaryEngine is the part of the processing engine that knows which
// items are still mutable.
type BoundaryEngine interface {
	// CurrentItem returns the item the recorder is currently appending to.
	CurrentItem() (*models.Item, bool)

	// ItemsToProcess returns every item the engine may still revise,
	// expanding outward from the given item.
	ItemsToProcess(ctx context.Context, from *models.Item) ([]uuid.UUID, error)
}

// Recorder reports the recording state.
type Recorder interface {
	IsSleeping() bool
}

// ResolveActive returns the items inside the recorder's processing boundary
// for a segment. Only a segment covering now, with an awake recorder, has
// a non-empty boundary. Engine failures degrade to an empty set.
func ResolveActive(ctx context.Context, segment models.DateRange, now time.Time, recorder Recorder, engine BoundaryEngine) IDSet {
	if !segment.Contains(now) {
		return IDSet{}
	}
	if recorder == nil || recorder.IsSleeping() || engine == nil {
		return IDSet{}
	}
	current, ok := engine.CurrentItem()
	if !ok || current == nil {
		return IDSet{}
	}

	ids, err := engine.ItemsToProcess(ctx, current)
	if err != nil {
		logger := logging.Component("timeline")
		logger.Warn().
			Err(err).
			Str("current_item", current.ID.String()).
			Msg("processing boundary expansion failed")
		return IDSet{}
	}
	return NewIDSet(ids...)
}

// Activity builds the per-item activity test. A global reprocessing pass
// marks every item active; otherwise only the resolved boundary is.
// Merge locking is applied separately by BuildDisplayList.
func Activity(processing bool, active IDSet) ActivityFunc {
	return func(item *models.Item) bool {
		if processing {
			return true
		}
		return item != nil && active.Contains(item.ID)
	}
}
