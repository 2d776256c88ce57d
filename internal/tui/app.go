// Package tui is the arcmini terminal UI: a pager of day cards, each a
// scrollable timeline list under a map panel that follows what is on screen.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Astrrra/arcmini/internal/config"
	"github.com/Astrrra/arcmini/internal/events"
	"github.com/Astrrra/arcmini/internal/logging"
	"github.com/Astrrra/arcmini/internal/models"
	"github.com/Astrrra/arcmini/internal/segment"
	"github.com/Astrrra/arcmini/internal/timeline"
	"github.com/Astrrra/arcmini/internal/tui/styles"
	"github.com/Astrrra/arcmini/internal/uistate"
)

const (
	defaultDays     = 14
	mapStep         = 0.05
	dayCheckEvery   = time.Minute
	minBodyForSplit = 8
)

type Theme string

const (
	ThemeDefault      Theme = "default"
	ThemeHighContrast Theme = "high-contrast"
)

// Engine is the processing engine as the TUI consumes it.
type Engine interface {
	segment.Source
	FindAPlace(ctx context.Context, item *models.Item)
}

type Config struct {
	Theme                string
	Days                 int
	RootMapHeightPercent float64
	RefreshInterval      time.Duration

	// Location is the timezone days are cut in. Defaults to time.Local.
	Location *time.Location

	// Now overrides time.Now.
	Now func() time.Time
}

// Deps are the collaborators the TUI drives.
type Deps struct {
	Engine    Engine
	Recorder  timeline.Recorder
	Publisher events.Publisher

	// Sessions restores the last viewed day. Optional.
	Sessions *config.SessionStore
}

type Model struct {
	cfg      Config
	engine   Engine
	recorder timeline.Recorder
	pub      events.Publisher
	sessions *config.SessionStore
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	theme   styles.Theme
	keys    keyMap
	spinner spinner.Model

	store  *uistate.Store
	poller *segment.Poller
	cards  []*dayCard
	index  int

	// placeLookups holds items a place lookup was already fired for.
	placeLookups timeline.IDSet

	width    int
	height   int
	showHelp bool
	detail   *models.Item
}

// segmentUpdatedMsg reports that card's segment rebuilt its display list.
type segmentUpdatedMsg struct {
	card *dayCard
}

type dayCheckMsg struct{}

func (c Config) normalize() (Config, error) {
	if c.Theme == "" {
		c.Theme = string(ThemeDefault)
	}
	switch Theme(c.Theme) {
	case ThemeDefault, ThemeHighContrast:
	default:
		return Config{}, fmt.Errorf("invalid theme %q", c.Theme)
	}
	if c.Days <= 0 {
		c.Days = defaultDays
	}
	if c.RootMapHeightPercent <= 0 {
		c.RootMapHeightPercent = uistate.DefaultRootMapHeightPercent
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = segment.DefaultPollInterval
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, nil
}

// NewModel builds the pager with its cards, makes the initial day live and
// restores the saved session.
func NewModel(cfg Config, deps Deps) (*Model, error) {
	normalized, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	if deps.Engine == nil {
		return nil, errors.New("tui: engine is required")
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewInMemoryPublisher()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		cfg:          normalized,
		engine:       deps.Engine,
		recorder:     deps.Recorder,
		pub:          deps.Publisher,
		sessions:     deps.Sessions,
		logger:       logging.Component("tui"),
		ctx:          ctx,
		cancel:       cancel,
		theme:        styles.Lookup(normalized.Theme),
		keys:         defaultKeyMap(),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		placeLookups: timeline.IDSet{},
	}

	today := models.DayRange(m.now())
	days := make([]models.DateRange, normalized.Days)
	for i := range days {
		days[i] = models.DayRange(today.Start.AddDate(0, 0, i-(normalized.Days-1)))
	}
	m.index = len(days) - 1
	session := m.loadSession()
	if session != nil {
		if day, ok := session.DayIn(normalized.Location); ok {
			for i, r := range days {
				if r.Contains(day) {
					m.index = i
				}
			}
		}
	}

	m.store = uistate.New(days[m.index],
		uistate.WithPublisher(m.pub),
		uistate.WithClock(normalized.Now),
		uistate.WithRootMapHeightPercent(normalized.RootMapHeightPercent),
	)
	m.poller = segment.NewPoller(normalized.RefreshInterval, m.store)

	for _, r := range days {
		if _, err := m.addCard(r); err != nil {
			m.Close()
			return nil, err
		}
	}

	card := m.current()
	card.life.Appeared(m.ctx)
	m.store.SetCurrentCardIndex(m.ctx, m.index)
	card.setEntries(card.seg.Entries(), 0)
	if session != nil && session.MapHeightPercent > 0 {
		m.store.SetMapHeightPercent(session.MapHeightPercent)
	}
	return m, nil
}

func (m *Model) addCard(r models.DateRange) (*dayCard, error) {
	seg := segment.New(r, m.engine, m.recorder, m.pub, segment.WithClock(m.cfg.Now))
	life := segment.NewLifecycle(seg, m.store, m.pub)
	if err := life.Attach(); err != nil {
		seg.Close()
		return nil, fmt.Errorf("attach %s: %w", r, err)
	}
	m.poller.Track(seg)
	card := newDayCard(seg, life)
	m.cards = append(m.cards, card)
	return card, nil
}

func (m *Model) now() time.Time {
	return m.cfg.Now().In(m.cfg.Location)
}

func (m *Model) loadSession() *config.Session {
	if m.sessions == nil {
		return nil
	}
	session, err := m.sessions.Load()
	if err != nil {
		m.logger.Warn().Err(err).Str("path", m.sessions.Path()).Msg("session load failed")
		return nil
	}
	return session
}

func (m *Model) saveSession() {
	if m.sessions == nil {
		return
	}
	session := &config.Session{MapHeightPercent: m.store.Snapshot().MapHeightPercent}
	session.SetDay(m.current().rng.Start)
	if err := m.sessions.Save(session); err != nil {
		m.logger.Warn().Err(err).Str("path", m.sessions.Path()).Msg("session save failed")
	}
}

// Run starts the poller and the bubbletea program until the user quits or
// ctx is done.
func Run(ctx context.Context, cfg Config, deps Deps) error {
	model, err := NewModel(cfg, deps)
	if err != nil {
		return err
	}
	defer model.Close()

	if err := model.poller.Start(ctx); err != nil {
		return fmt.Errorf("start segment poller: %w", err)
	}
	defer func() { _ = model.poller.Stop() }()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	model.saveSession()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Close detaches every card and closes its segment.
func (m *Model) Close() {
	for _, card := range m.cards {
		card.life.Detach()
		m.poller.Untrack(card.seg)
		card.seg.Close()
	}
	m.cancel()
}

// Store exposes the shared UI state.
func (m *Model) Store() *uistate.Store {
	return m.store
}

func (m *Model) current() *dayCard {
	return m.cards[m.index]
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, dayCheckCmd()}
	for _, card := range m.cards {
		cmds = append(cmds, waitForSegmentUpdate(card))
	}
	return tea.Batch(cmds...)
}

func waitForSegmentUpdate(card *dayCard) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-card.seg.Updates(); !ok {
			return nil
		}
		return segmentUpdatedMsg{card: card}
	}
}

func dayCheckCmd() tea.Cmd {
	return tea.Tick(dayCheckEvery, func(time.Time) tea.Msg { return dayCheckMsg{} })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.current().clampScroll(m.listHeight())
		m.syncVisibility()
		return m, nil
	case segmentUpdatedMsg:
		// The channel value may already be stale; Entries is the latest build.
		typed.card.setEntries(typed.card.seg.Entries(), m.listHeight())
		if typed.card == m.current() {
			m.syncVisibility()
		}
		return m, waitForSegmentUpdate(typed.card)
	case dayCheckMsg:
		return m, tea.Batch(m.rollDay(), dayCheckCmd())
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case tea.KeyMsg:
		return m, m.handleKey(typed)
	}
	return m, nil
}

// rollDay appends a card once the clock passes midnight so today stays reachable.
func (m *Model) rollDay() tea.Cmd {
	today := models.DayRange(m.now())
	last := m.cards[len(m.cards)-1]
	if !today.Start.After(last.rng.Start) {
		return nil
	}
	card, err := m.addCard(today)
	if err != nil {
		m.logger.Warn().Err(err).Msg("add day card failed")
		return nil
	}
	m.store.RefreshTodayButton()
	return waitForSegmentUpdate(card)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return nil
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Back) {
			m.showHelp = false
		}
		return nil
	}
	if m.detail != nil {
		if key.Matches(msg, m.keys.Back) {
			m.closeDetail()
		}
		return nil
	}

	card := m.current()
	height := m.listHeight()
	switch {
	case key.Matches(msg, m.keys.Up):
		card.moveCursor(-1, height)
	case key.Matches(msg, m.keys.Down):
		card.moveCursor(1, height)
	case key.Matches(msg, m.keys.PageUp):
		card.scrollBy(-maxPage(height), height)
	case key.Matches(msg, m.keys.PageDown):
		card.scrollBy(maxPage(height), height)
	case key.Matches(msg, m.keys.Top):
		card.scrollToTop()
	case key.Matches(msg, m.keys.Bottom):
		card.scrollToBottom(height)
	case key.Matches(msg, m.keys.PrevDay):
		m.showDay(m.index - 1)
		return nil
	case key.Matches(msg, m.keys.NextDay):
		m.showDay(m.index + 1)
		return nil
	case key.Matches(msg, m.keys.Today):
		m.showDay(len(m.cards) - 1)
		return nil
	case key.Matches(msg, m.keys.Open):
		m.openDetail()
		return nil
	case key.Matches(msg, m.keys.MapGrow):
		m.store.SetMapHeightPercent(m.store.Snapshot().MapHeightPercent + mapStep)
		m.current().clampScroll(m.listHeight())
	case key.Matches(msg, m.keys.MapShrink):
		m.store.SetMapHeightPercent(m.store.Snapshot().MapHeightPercent - mapStep)
		m.current().clampScroll(m.listHeight())
	default:
		return nil
	}
	m.syncVisibility()
	return nil
}

func maxPage(height int) int {
	if height < 1 {
		return 1
	}
	return height
}

// showDay pages to card i: the visible range moves first, then the card
// index, then the old card disappears and the new one appears.
func (m *Model) showDay(i int) {
	if i < 0 || i >= len(m.cards) || i == m.index {
		return
	}
	prev := m.current()
	m.detail = nil
	m.index = i
	next := m.current()

	m.store.SetVisibleDateRange(m.ctx, next.rng)
	m.store.SetCurrentCardIndex(m.ctx, i)
	prev.life.Disappeared(m.ctx)
	next.life.Appeared(m.ctx)

	prev.resetVisibility()
	next.resetVisibility()
	next.setEntries(next.seg.Entries(), m.listHeight())
	m.syncVisibility()
}

// syncVisibility diffs the rows on screen against what was last reported
// and feeds the difference to the store, disappearances first.
func (m *Model) syncVisibility() {
	card := m.current()
	next := card.visibleRows(m.listHeight())
	nextSet := timeline.NewIDSet(next...)

	for _, id := range card.onScreen.Sorted() {
		if !nextSet.Contains(id) {
			m.store.RowDisappeared(card.rng, id)
		}
	}
	for _, id := range next {
		if card.onScreen.Contains(id) {
			continue
		}
		if m.store.RowAppeared(card.rng, id) {
			m.lookupPlace(card, id)
		}
	}
	card.onScreen = nextSet

	top := card.scrolledToTop()
	if !card.topKnown || card.topShown != top {
		if top {
			m.store.TopAppeared()
		} else {
			m.store.TopDisappeared()
		}
		card.topKnown = true
		card.topShown = top
	}
}

// lookupPlace fires a place lookup the first time an unnamed visit shows up.
func (m *Model) lookupPlace(card *dayCard, id uuid.UUID) {
	if m.placeLookups.Contains(id) {
		return
	}
	m.placeLookups[id] = struct{}{}
	item := card.item(id)
	if item == nil || !item.NeedsPlace() {
		return
	}
	m.engine.FindAPlace(m.ctx, item)
}

func (m *Model) openDetail() {
	e, ok := m.current().focused()
	if !ok || e.IsPlaceholder() {
		return
	}
	m.detail = e.Item
	m.store.ShowBackButton()
}

func (m *Model) closeDetail() {
	m.detail = nil
	m.store.HideBackButton()
}

func (m *Model) bodyHeight() int {
	h := m.height - headerLines - footerLines
	if h < 0 {
		return 0
	}
	return h
}

func (m *Model) mapHeight() int {
	if m.bodyHeight() < minBodyForSplit {
		return 0
	}
	mapH, _ := styles.Split(m.bodyHeight(), m.store.Snapshot().MapHeightPercent)
	return mapH
}

func (m *Model) listHeight() int {
	return m.bodyHeight() - m.mapHeight()
}
