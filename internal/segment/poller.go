package segment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Astrrra/arcmini/internal/logging"
	"github.com/Astrrra/arcmini/internal/uistate"
)

// Poller errors.
var (
	ErrPollerAlreadyRunning = errors.New("poller already running")
	ErrPollerNotRunning     = errors.New("poller not running")
)

// DefaultPollInterval is how often updating segments are rebuilt without an
// engine event. The processing boundary depends on the clock, so a segment
// stops being today at midnight even when nothing was recorded.
const DefaultPollInterval = 30 * time.Second

// Poller periodically rebuilds updating segments and the today affordance.
type Poller struct {
	interval time.Duration
	store    *uistate.Store
	logger   zerolog.Logger

	mu       sync.RWMutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	segments map[*Segment]struct{}
}

// NewPoller creates a stopped poller. A non-positive interval uses DefaultPollInterval.
func NewPoller(interval time.Duration, store *uistate.Store) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		interval: interval,
		store:    store,
		logger:   logging.Component("segment-poller"),
		segments: make(map[*Segment]struct{}),
	}
}

// Track adds a segment to the refresh set.
func (p *Poller) Track(s *Segment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.segments[s] = struct{}{}
}

// Untrack removes a segment from the refresh set.
func (p *Poller) Untrack(s *Segment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.segments, s)
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrPollerAlreadyRunning
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.logger.Debug().Dur("interval", p.interval).Msg("segment poller starting")

	p.wg.Add(1)
	go p.runLoop()
	return nil
}

// Stop halts the polling loop.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrPollerNotRunning
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Debug().Msg("segment poller stopped")
	return nil
}

// IsRunning returns true if the poller is running.
func (p *Poller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *Poller) runLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.Tick(p.ctx)
		}
	}
}

// Tick runs one refresh cycle over the updating segments.
func (p *Poller) Tick(ctx context.Context) {
	if p.store != nil {
		p.store.RefreshTodayButton()
	}

	p.mu.RLock()
	segments := make([]*Segment, 0, len(p.segments))
	for s := range p.segments {
		segments = append(segments, s)
	}
	p.mu.RUnlock()

	for _, s := range segments {
		if !s.IsUpdating() {
			continue
		}
		if err := s.Refresh(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrSegmentClosed) {
				continue
			}
			p.logger.Warn().Err(err).Str("segment", s.Range().String()).Msg("segment poll failed")
		}
	}
}
