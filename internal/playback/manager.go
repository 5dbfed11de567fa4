package playback

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/catalog"
	"github.com/advenue/screen-server/internal/impression"
	"github.com/advenue/screen-server/internal/metrics"
)

type options struct {
	settings  SettingsProvider
	catalog   CatalogProvider
	sink      impression.Sink
	afterFunc AfterFunc
	debounce  time.Duration
	now       func() time.Time
	seed      func() uint64
}

type Option func(*options)

// WithDebounce sets how long machine-triggered reloads are collapsed.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

func WithAfterFunc(f AfterFunc) Option {
	return func(o *options) { o.afterFunc = f }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSeed makes random rotation reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		s := seed
		o.seed = func() uint64 { s++; return s }
	}
}

// Manager owns the players of all screens served by this process.
type Manager struct {
	opts options

	mu      sync.Mutex
	players map[string]*Player
}

func NewManager(settings SettingsProvider, cat CatalogProvider, sink impression.Sink, opts ...Option) *Manager {
	o := options{
		settings:  settings,
		catalog:   cat,
		sink:      sink,
		afterFunc: realAfterFunc,
		debounce:  200 * time.Millisecond,
		now:       time.Now,
		seed:      rand.Uint64,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Manager{
		opts:    o,
		players: make(map[string]*Player),
	}
}

// Get returns the screen's player, starting it on first use.
func (m *Manager) Get(_ context.Context, screenID string) *Player {
	m.mu.Lock()
	p, ok := m.players[screenID]
	if !ok {
		p = newPlayer(screenID, &m.opts)
		m.players[screenID] = p
		metrics.ActivePlayers.Set(float64(len(m.players)))
	}
	m.mu.Unlock()

	p.touch()
	if !ok {
		log.Info().Str("screenId", screenID).Msg("player started")
		p.Reload(TriggerStart, true)
	}
	return p
}

func (m *Manager) Lookup(screenID string) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[screenID]
	return p, ok
}

// Notify reloads a running player. Screens without a player are skipped; they
// build a fresh sequence when first asked.
func (m *Manager) Notify(screenID string, trigger Trigger, immediate bool) {
	if p, ok := m.Lookup(screenID); ok {
		p.Reload(trigger, immediate)
	}
}

// OnCatalogChange is a catalog.Listener that schedules a debounced reload of
// every running player.
func (m *Manager) OnCatalogChange(snap *catalog.Snapshot) {
	for _, p := range m.snapshot() {
		p.Reload(TriggerCatalog, false)
	}
	log.Debug().Uint64("version", snap.Version).Msg("catalog change fanned out to players")
}

// Stop removes and stops the screen's player, if any.
func (m *Manager) Stop(screenID string) {
	m.mu.Lock()
	p, ok := m.players[screenID]
	delete(m.players, screenID)
	metrics.ActivePlayers.Set(float64(len(m.players)))
	m.mu.Unlock()

	if ok {
		p.Stop()
		log.Info().Str("screenId", screenID).Msg("player stopped")
	}
}

// StopIdle stops players nobody has asked about for longer than idle.
func (m *Manager) StopIdle(idle time.Duration) (int64, error) {
	cutoff := m.opts.now().Add(-idle)

	var stale []string
	for _, p := range m.snapshot() {
		if p.idleSince().Before(cutoff) {
			stale = append(stale, p.ScreenID())
		}
	}
	for _, id := range stale {
		m.Stop(id)
	}
	return int64(len(stale)), nil
}

func (m *Manager) StopAll() {
	m.mu.Lock()
	players := m.players
	m.players = make(map[string]*Player)
	metrics.ActivePlayers.Set(0)
	m.mu.Unlock()

	for _, p := range players {
		p.Stop()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}

// ScreenIDs lists the screens that currently have a running player.
func (m *Manager) ScreenIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.players))
	for id := range m.players {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) snapshot() []*Player {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	return out
}
