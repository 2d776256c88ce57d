package segment

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Astrrra/arcmini/internal/events"
	"github.com/Astrrra/arcmini/internal/logging"
	"github.com/Astrrra/arcmini/internal/uistate"
)

// State is the lifecycle state of a segment.
type State string

const (
	StateStopped  State = "stopped"
	StateUpdating State = "updating"
)

// Lifecycle keeps a segment's live subscription in step with the pager. A
// segment updates only while its range is the visible range, and becoming
// live resets the shared UI state.
type Lifecycle struct {
	segment   *Segment
	store     *uistate.Store
	publisher events.Publisher
	logger    zerolog.Logger
	subID     string

	mu    sync.Mutex
	state State
}

// NewLifecycle creates a controller for segment in the stopped state.
func NewLifecycle(segment *Segment, store *uistate.Store, publisher events.Publisher) *Lifecycle {
	return &Lifecycle{
		segment:   segment,
		store:     store,
		publisher: publisher,
		logger:    logging.WithSegment(logging.Component("lifecycle"), segment.Range()),
		subID:     "lifecycle:" + uuid.NewString(),
		state:     StateStopped,
	}
}

// Segment returns the controlled segment.
func (l *Lifecycle) Segment() *Segment {
	return l.segment
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Attach re-evaluates on every visible range and card index change.
func (l *Lifecycle) Attach() error {
	if l.publisher == nil {
		return nil
	}
	filter := events.Filter{EventTypes: []events.EventType{
		events.EventVisibleRangeChanged,
		events.EventCardIndexChanged,
	}}
	return l.publisher.Subscribe(l.subID, filter, func(*events.Event) {
		l.Evaluate(context.Background())
	})
}

// Detach stops listening and stops the segment.
func (l *Lifecycle) Detach() {
	if l.publisher != nil {
		_ = l.publisher.Unsubscribe(l.subID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.segment.StopUpdating()
	l.store.LeaveSegment(l.segment.Range())
	l.state = StateStopped
}

// Appeared is called when the segment's view comes on screen.
func (l *Lifecycle) Appeared(ctx context.Context) State {
	return l.Evaluate(ctx)
}

// Disappeared is called when the segment's view leaves the screen.
func (l *Lifecycle) Disappeared(ctx context.Context) State {
	return l.Evaluate(ctx)
}

// Evaluate forces the state from the store's visible range. A matching
// segment is (re)started and the shared UI state reset, even if it was
// already updating.
func (l *Lifecycle) Evaluate(ctx context.Context) State {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := l.segment.Range()
	if !l.store.VisibleDateRange().Equal(r) {
		if l.state != StateStopped {
			l.logger.Debug().Msg("segment left visible range")
		}
		l.segment.StopUpdating()
		l.store.LeaveSegment(r)
		l.state = StateStopped
		return l.state
	}

	if err := l.segment.StartUpdating(ctx); err != nil {
		l.logger.Warn().Err(err).Msg("segment start failed")
	}
	l.store.EnterSegment(r)
	l.state = StateUpdating
	return l.state
}
