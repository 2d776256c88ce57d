// Package segment provides observable per-day windows over the timeline and
// the controller that decides which one is live.
package segment

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
	"github.com/Astrrra/arcmini/internal/timeline"
)

// ErrSegmentClosed is returned when a closed segment is asked to update.
var ErrSegmentClosed = errors.New("segment closed")

// Source supplies item snapshots and processing state.
type Source interface {
	timeline.BoundaryEngine

	// Items returns the items overlapping r, oldest first.
	Items(ctx context.Context, r models.DateRange) ([]*models.Item, error)

	// Processing reports whether a global reprocessing pass is underway.
	Processing() bool
}

// Option configures a Segment.
type Option func(*Segment)

// WithClock overrides time.Now for the today check.
func WithClock(now func() time.Time) Option {
	return func(s *Segment) {
		if now != nil {
			s.now = now
		}
	}
}

// Segment is one date range of the timeline. While updating it rebuilds its
// display list on every matching engine event.
type Segment struct {
	rng       models.DateRange
	source    Source
	recorder  timeline.Recorder
	publisher events.Publisher
	now       func() time.Time
	logger    zerolog.Logger
	subID     string

	mu         sync.Mutex
	updating   bool
	closed     bool
	generation uint64
	// seq orders builds by when their snapshot was taken; stored is the
	// seq of the build in entries.
	seq        uint64
	stored     uint64
	entries    []timeline.Entry
	updates    chan []timeline.Entry
}

// New creates a stopped segment.
func New(r models.DateRange, source Source, recorder timeline.Recorder, publisher events.Publisher, opts ...Option) *Segment {
	s := &Segment{
		rng:       r,
		source:    source,
		recorder:  recorder,
		publisher: publisher,
		now:       time.Now,
		logger:    logging.WithSegment(logging.Component("segment"), r),
		subID:     "segment:" + r.Key() + ":" + uuid.NewString(),
		updates:   make(chan []timeline.Entry, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Range returns the segment's date range.
func (s *Segment) Range() models.DateRange {
	return s.rng
}

// IsUpdating reports whether the live subscription is open.
func (s *Segment) IsUpdating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updating
}

// Updates delivers rebuilt display lists. Only the latest unread list is kept.
func (s *Segment) Updates() <-chan []timeline.Entry {
	return s.updates
}

// Entries returns the most recently built display list.
func (s *Segment) Entries() []timeline.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]timeline.Entry(nil), s.entries...)
}

// StartUpdating opens the live subscription and rebuilds once. Starting an
// updating segment is a no-op.
func (s *Segment) StartUpdating(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSegmentClosed
	}
	if s.updating {
		s.mu.Unlock()
		return nil
	}
	s.updating = true
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	if s.publisher != nil {
		r := s.rng
		filter := events.Filter{
			EventTypes: []events.EventType{events.EventItemsChanged, events.EventEngineStateChanged},
			Range:      &r,
		}
		err := s.publisher.Subscribe(s.subID, filter, func(*events.Event) {
			if refreshErr := s.refresh(context.Background(), gen); refreshErr != nil {
				s.logger.Warn().Err(refreshErr).Msg("segment refresh failed")
			}
		})
		if err != nil && !errors.Is(err, events.ErrSubscriptionExists) {
			s.mu.Lock()
			s.updating = false
			s.mu.Unlock()
			return fmt.Errorf("subscribe segment: %w", err)
		}
	}

	s.logger.Debug().Msg("segment updating")
	return s.refresh(ctx, gen)
}

// StopUpdating closes the live subscription. Builds still in flight are
// discarded. Stopping a stopped segment is a no-op.
func (s *Segment) StopUpdating() {
	s.mu.Lock()
	if !s.updating {
		s.mu.Unlock()
		return
	}
	s.updating = false
	s.generation++
	s.mu.Unlock()

	if s.publisher != nil {
		_ = s.publisher.Unsubscribe(s.subID)
	}
	s.logger.Debug().Msg("segment stopped")
}

// Close stops the segment for good and closes Updates.
func (s *Segment) Close() {
	s.StopUpdating()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.updates)
}

// Refresh rebuilds the display list from a fresh snapshot. It works on a
// stopped segment too, which is how a card gets its first render.
func (s *Segment) Refresh(ctx context.Context) error {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	return s.refresh(ctx, gen)
}

func (s *Segment) refresh(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	items, err := s.source.Items(ctx, s.rng)
	if err != nil {
		return fmt.Errorf("load segment items: %w", err)
	}
	active := timeline.ResolveActive(ctx, s.rng, s.now(), s.recorder, s.source)
	entries := timeline.BuildDisplayList(items, timeline.Activity(s.source.Processing(), active))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSegmentClosed
	}
	if gen != s.generation {
		// A stop or restart happened while building.
		return nil
	}
	if seq < s.stored {
		// A build from a newer snapshot already landed.
		return nil
	}
	s.stored = seq
	s.entries = entries
	s.deliverLocked(entries)
	return nil
}

func (s *Segment) deliverLocked(entries []timeline.Entry) {
	select {
	case s.updates <- entries:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- entries:
	default:
	}
}
