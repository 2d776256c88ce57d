package engine

import (
	"context"
	"sync"

	"github.com/Astrrra/arcmini/internal/events"
	"github.com/Astrrra/arcmini/internal/logging"
)

// Recorder tracks whether location recording is asleep.
type Recorder struct {
	publisher events.Publisher

	mu       sync.RWMutex
	sleeping bool
}

// NewRecorder creates an awake recorder.
func NewRecorder(publisher events.Publisher) *Recorder {
	return &Recorder{publisher: publisher}
}

// IsSleeping reports whether the recorder is idle.
func (r *Recorder) IsSleeping() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sleeping
}

// SetSleeping updates the sleep state, announcing changes.
func (r *Recorder) SetSleeping(ctx context.Context, sleeping bool) {
	r.mu.Lock()
	changed := r.sleeping != sleeping
	r.sleeping = sleeping
	r.mu.Unlock()

	if !changed {
		return
	}
	logger := logging.Component("recorder")
	logger.Debug().Bool("sleeping", sleeping).Msg("recording state changed")
	if r.publisher != nil {
		r.publisher.Publish(ctx, &events.Event{Type: events.EventEngineStateChanged})
	}
}
