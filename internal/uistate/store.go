// Package uistate owns the process-wide timeline UI state: the visible
// range, the live segment, the visible-items set and the map selection
// derived from it.
//
// Every field is private. Callers mutate state only through the named
// transitions on Store and read it back as copies.
package uistate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Astrrra/arcmini/internal/events"
	"github.com/Astrrra/arcmini/internal/models"
	"github.com/Astrrra/arcmini/internal/timeline"
)

// DefaultRootMapHeightPercent is the map share of the screen on a freshly entered segment.
const DefaultRootMapHeightPercent = 0.35

const (
	minMapHeightPercent = 0.1
	maxMapHeightPercent = 0.9
)

// Bounds is a lat/lon bounding box.
type Bounds struct {
	MinLatitude  float64
	MinLongitude float64
	MaxLatitude  float64
	MaxLongitude float64
}

// MapSegment is the map's cached rendering of one item.
type MapSegment struct {
	ItemID uuid.UUID
	Label  string
	Bounds Bounds
}

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	VisibleDateRange  models.DateRange
	LiveSegment       *models.DateRange
	VisibleItems      timeline.IDSet
	SelectedItems     timeline.IDSet
	ScrolledToTop     bool
	CurrentCardIndex  int
	BackButtonHidden  bool
	TodayButtonHidden bool
	MapHeightPercent  float64
}

// Option configures a Store.
type Option func(*Store)

// WithPublisher publishes range and card index changes.
func WithPublisher(p events.Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRootMapHeightPercent sets the map height restored on segment entry.
func WithRootMapHeightPercent(p float64) Option {
	return func(s *Store) { s.rootMapHeight = clampMapHeight(p) }
}

// Store is the single owner of shared timeline UI state.
type Store struct {
	publisher     events.Publisher
	now           func() time.Time
	rootMapHeight float64

	mu                sync.Mutex
	visibleDateRange  models.DateRange
	live              *models.DateRange
	visibleItems      timeline.IDSet
	selectedItems     timeline.IDSet
	scrolledToTop     bool
	currentCardIndex  int
	backButtonHidden  bool
	todayButtonHidden bool
	mapHeightPercent  float64
	itemSegments      map[uuid.UUID]MapSegment
}

// New creates a store showing the given range.
func New(visible models.DateRange, opts ...Option) *Store {
	s := &Store{
		now:              time.Now,
		rootMapHeight:    DefaultRootMapHeightPercent,
		visibleDateRange: visible,
		visibleItems:     timeline.IDSet{},
		selectedItems:    timeline.IDSet{},
		backButtonHidden: true,
		itemSegments:     make(map[uuid.UUID]MapSegment),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mapHeightPercent = s.rootMapHeight
	s.todayButtonHidden = visible.Contains(s.now())
	return s
}

// DeriveSelection maps visibility onto the map selection. Scrolled to the
// top means an empty selection, i.e. the whole segment. The result never
// aliases visible.
func DeriveSelection(visible timeline.IDSet, scrolledToTop bool) timeline.IDSet {
	if scrolledToTop {
		return timeline.IDSet{}
	}
	return visible.Clone()
}

// syncSelectionLocked must be called after every visibility-affecting mutation.
func (s *Store) syncSelectionLocked() {
	s.selectedItems = DeriveSelection(s.visibleItems, s.scrolledToTop)
}

func (s *Store) isLiveLocked(segment models.DateRange) bool {
	return s.live != nil && s.live.Equal(segment)
}

// RowAppeared records a row of segment coming on screen. Rows of a segment
// that is not live are ignored; the return value reports whether the row
// was applied.
func (s *Store) RowAppeared(segment models.DateRange, id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isLiveLocked(segment) {
		return false
	}
	s.visibleItems[id] = struct{}{}
	s.syncSelectionLocked()
	return true
}

// RowDisappeared is the inverse of RowAppeared.
func (s *Store) RowDisappeared(segment models.DateRange, id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isLiveLocked(segment) {
		return false
	}
	delete(s.visibleItems, id)
	s.syncSelectionLocked()
	return true
}

// TopAppeared marks the list's top sentinel as on screen.
func (s *Store) TopAppeared() {
	s.setScrolledToTop(true)
}

// TopDisappeared marks the list's top sentinel as scrolled away.
func (s *Store) TopDisappeared() {
	s.setScrolledToTop(false)
}

func (s *Store) setScrolledToTop(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrolledToTop = v
	s.syncSelectionLocked()
}

// SetVisibleDateRange moves the pager to r. A live segment that no longer
// matches loses live status and its rows are dropped from visibility.
func (s *Store) SetVisibleDateRange(ctx context.Context, r models.DateRange) {
	s.mu.Lock()
	if s.visibleDateRange.Equal(r) {
		s.mu.Unlock()
		return
	}
	s.visibleDateRange = r
	if s.live != nil && !s.live.Equal(r) {
		s.live = nil
		s.visibleItems = timeline.IDSet{}
		s.syncSelectionLocked()
	}
	s.updateTodayButtonLocked()
	s.mu.Unlock()

	s.publish(ctx, &events.Event{Type: events.EventVisibleRangeChanged, Range: &r})
}

// SetCurrentCardIndex records the pager position. Every assignment is
// published, including one that repeats the current index.
func (s *Store) SetCurrentCardIndex(ctx context.Context, index int) {
	s.mu.Lock()
	s.currentCardIndex = index
	r := s.visibleDateRange
	s.mu.Unlock()

	s.publish(ctx, &events.Event{Type: events.EventCardIndexChanged, Range: &r, CardIndex: index})
}

// EnterSegment makes segment live and resets shared state so nothing
// leaks in from the previously live segment. It refuses a segment that
// does not match the visible range.
func (s *Store) EnterSegment(segment models.DateRange) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visibleDateRange.Equal(segment) {
		return false
	}
	live := segment
	s.live = &live
	s.selectedItems = timeline.IDSet{}
	s.itemSegments = make(map[uuid.UUID]MapSegment)
	s.visibleItems = timeline.IDSet{}
	s.backButtonHidden = true
	s.updateTodayButtonLocked()
	s.mapHeightPercent = s.rootMapHeight
	return true
}

// LeaveSegment drops live status if segment holds it.
func (s *Store) LeaveSegment(segment models.DateRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isLiveLocked(segment) {
		return
	}
	s.live = nil
	s.visibleItems = timeline.IDSet{}
	s.syncSelectionLocked()
}

// IsLive reports whether segment currently holds live status.
func (s *Store) IsLive(segment models.DateRange) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLiveLocked(segment)
}

func (s *Store) updateTodayButtonLocked() {
	s.todayButtonHidden = s.visibleDateRange.Contains(s.now())
}

// RefreshTodayButton recomputes the jump-to-today affordance, e.g. after midnight.
func (s *Store) RefreshTodayButton() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateTodayButtonLocked()
}

// ShowBackButton reveals the back affordance while an item's details are open.
func (s *Store) ShowBackButton() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backButtonHidden = false
}

// HideBackButton hides the back affordance.
func (s *Store) HideBackButton() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backButtonHidden = true
}

// SetMapHeightPercent resizes the map panel, clamped to a usable range.
func (s *Store) SetMapHeightPercent(p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapHeightPercent = clampMapHeight(p)
}

// CacheItemSegment stores the map's rendering of an item.
func (s *Store) CacheItemSegment(seg MapSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemSegments[seg.ItemID] = seg
}

// ItemSegment returns a cached map segment.
func (s *Store) ItemSegment(id uuid.UUID) (MapSegment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seg, ok := s.itemSegments[id]
	return seg, ok
}

// ItemSegmentCount returns the number of cached map segments.
func (s *Store) ItemSegmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.itemSegments)
}

// VisibleDateRange returns the range of the segment on screen.
func (s *Store) VisibleDateRange() models.DateRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleDateRange
}

// VisibleItems returns a copy of the ids of rows on screen in the live segment.
func (s *Store) VisibleItems() timeline.IDSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleItems.Clone()
}

// SelectedItems returns a copy of the map selection.
func (s *Store) SelectedItems() timeline.IDSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedItems.Clone()
}

// ScrolledToTop reports whether the live list shows its top sentinel.
func (s *Store) ScrolledToTop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrolledToTop
}

// CurrentCardIndex returns the index of the day card on screen.
func (s *Store) CurrentCardIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentCardIndex
}

// Snapshot returns a copy of the whole store.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		VisibleDateRange:  s.visibleDateRange,
		VisibleItems:      s.visibleItems.Clone(),
		SelectedItems:     s.selectedItems.Clone(),
		ScrolledToTop:     s.scrolledToTop,
		CurrentCardIndex:  s.currentCardIndex,
		BackButtonHidden:  s.backButtonHidden,
		TodayButtonHidden: s.todayButtonHidden,
		MapHeightPercent:  s.mapHeightPercent,
	}
	if s.live != nil {
		live := *s.live
		snap.LiveSegment = &live
	}
	return snap
}

func (s *Store) publish(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, event)
}

func clampMapHeight(p float64) float64 {
	switch {
	case p < minMapHeightPercent:
		return minMapHeightPercent
	case p > maxMapHeightPercent:
		return maxMapHeightPercent
	default:
		return p
	}
}
