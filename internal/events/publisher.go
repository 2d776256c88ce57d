// Package events provides in-process publishing of timeline and UI state changes.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Astrrra/arcmini/internal/models"
)

// EventType categorizes events.
type EventType string

const (
	// EventItemsChanged is published by the engine after items were revised.
	EventItemsChanged EventType = "items.changed"

	// EventEngineStateChanged covers the processing flag, the recorder
	// sleep state and the current item. Range is nil.
	EventEngineStateChanged EventType = "engine.state_changed"

	// EventVisibleRangeChanged is published when the pager scrolls to another day.
	EventVisibleRangeChanged EventType = "ui.visible_range_changed"

	// EventCardIndexChanged is published on every card index assignment.
	EventCardIndexChanged EventType = "ui.card_index_changed"
)

// Event is a change notification.
type Event struct {
	Type      EventType
	Timestamp time.Time

	// Range is the time span affected by the change; nil means global.
	Range *models.DateRange

	// ItemIDs lists revised items for EventItemsChanged.
	ItemIDs []uuid.UUID

	// CardIndex is set for EventCardIndexChanged.
	CardIndex int
}

// EventHandler is invoked when an event matches a subscription.
type EventHandler func(event *Event)

// Filter defines criteria for matching events.
type Filter struct {
	// EventTypes filters by event type (nil = all types).
	EventTypes []EventType

	// Range keeps events whose range overlaps it. Global events always match.
	Range *models.DateRange
}

// Matches returns true if the event matches the filter criteria.
func (f *Filter) Matches(event *Event) bool {
	if event == nil {
		return false
	}

	if len(f.EventTypes) > 0 {
		matched := false
		for _, t := range f.EventTypes {
			if event.Type == t {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if f.Range != nil && event.Range != nil && !f.Range.Overlaps(*event.Range) {
		return false
	}

	return true
}

type subscription struct {
	id      string
	filter  Filter
	handler EventHandler
}

// Publisher defines the interface for event publishing and subscription.
type Publisher interface {
	// Publish delivers an event to all matching subscribers before returning.
	Publish(ctx context.Context, event *Event)

	// Subscribe registers a handler to receive events matching the filter.
	Subscribe(id string, filter Filter, handler EventHandler) error

	// Unsubscribe removes a subscription by ID.
	Unsubscribe(id string) error

	// SubscriberCount returns the number of active subscribers.
	SubscriberCount() int
}

// InMemoryPublisher implements Publisher using in-process pub/sub.
type InMemoryPublisher struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	order         []string
	now           func() time.Time
}

// NewInMemoryPublisher creates a new in-memory event publisher.
func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{
		subscriptions: make(map[string]*subscription),
		now:           time.Now,
	}
}

// Publish sends an event to all matching subscribers in subscription order.
// Handlers run on the caller's goroutine, outside the lock, so a handler may
// subscribe, unsubscribe or publish again.
func (p *InMemoryPublisher) Publish(ctx context.Context, event *Event) {
	if event == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}

	p.mu.RLock()
	handlers := make([]EventHandler, 0, len(p.order))
	for _, id := range p.order {
		sub := p.subscriptions[id]
		if sub != nil && sub.filter.Matches(event) {
			handlers = append(handlers, sub.handler)
		}
	}
	p.mu.RUnlock()

	for _, handler := range handlers {
		if ctx.Err() != nil {
			return
		}
		handler(event)
	}
}

// Subscribe registers a handler to receive events matching the filter.
func (p *InMemoryPublisher) Subscribe(id string, filter Filter, handler EventHandler) error {
	if id == "" {
		return ErrInvalidSubscriptionID
	}
	if handler == nil {
		return ErrNilHandler
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.subscriptions[id]; exists {
		return ErrSubscriptionExists
	}

	p.subscriptions[id] = &subscription{
		id:      id,
		filter:  filter,
		handler: handler,
	}
	p.order = append(p.order, id)

	return nil
}

// Unsubscribe removes a subscription by ID.
func (p *InMemoryPublisher) Unsubscribe(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.subscriptions[id]; !exists {
		return ErrSubscriptionNotFound
	}

	delete(p.subscriptions, id)
	for i, existing := range p.order {
		if existing == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

// SubscriberCount returns the number of active subscribers.
func (p *InMemoryPublisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscriptions)
}

// Close removes all subscriptions.
func (p *InMemoryPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscriptions = make(map[string]*subscription)
	p.order = nil
}

// Errors for publisher operations.
var (
	ErrInvalidSubscriptionID = &PublisherError{Message: "subscription ID is required"}
	ErrNilHandler            = &PublisherError{Message: "handler cannot be nil"}
	ErrSubscriptionExists    = &PublisherError{Message: "subscription with this ID already exists"}
	ErrSubscriptionNotFound  = &PublisherError{Message: "subscription not found"}
)

// PublisherError represents an error from publisher operations.
type PublisherError struct {
	Message string
}

func (e *PublisherError) Error() string {
	return e.Message
}
