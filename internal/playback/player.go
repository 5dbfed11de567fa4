// Package playback runs the display loop of each paired screen.
package playback

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/catalog"
	"github.com/advenue/screen-server/internal/content"
	"github.com/advenue/screen-server/internal/impression"
	"github.com/advenue/screen-server/internal/metrics"
	"github.com/advenue/screen-server/internal/model"
)

const settingsLoadTimeout = 5 * time.Second

type SettingsProvider interface {
	Get(ctx context.Context, screenID string) (*model.ScreenSettings, error)
}

type CatalogProvider interface {
	Snapshot() *catalog.Snapshot
}

// Trigger names what caused a reload.
type Trigger string

const (
	TriggerStart    Trigger = "start"
	TriggerSettings Trigger = "settings"
	TriggerCatalog  Trigger = "catalog"
)

// State is a copy of what a player is showing.
type State struct {
	ScreenID   string              `json:"screenId"`
	Epoch      uint64              `json:"epoch"`
	Index      int                 `json:"index"`
	Sequence   []model.DisplayItem `json:"sequence"`
	Current    *model.DisplayItem  `json:"current,omitempty"`
	StartedAt  time.Time           `json:"startedAt"`
	Duration   time.Duration       `json:"-"`
	DurationMs int64               `json:"durationMs"`
}

type showing struct {
	item      model.DisplayItem
	handle    impression.Handle
	startedAt time.Time
	duration  time.Duration
}

// Player owns one screen's sequence and its single active timer. All state
// changes happen under mu, and every timer callback carries the epoch it was
// scheduled in; a callback whose epoch is no longer current does nothing.
type Player struct {
	screenID  string
	settings  SettingsProvider
	catalog   CatalogProvider
	sink      impression.Sink
	afterFunc AfterFunc
	debounce  time.Duration
	now       func() time.Time

	mu          sync.Mutex
	rng         *rand.Rand
	epoch       uint64
	debounceGen uint64
	stopped     bool
	built       bool
	cfg         model.ScreenSettings
	items       []model.DisplayItem
	seq         []model.DisplayItem
	index       int
	fingerprint uint64
	current     *showing
	timer       Timer
	pending     Timer
	lastAccess  time.Time
}

func newPlayer(screenID string, o *options) *Player {
	return &Player{
		screenID:  screenID,
		settings:  o.settings,
		catalog:   o.catalog,
		sink:      o.sink,
		afterFunc: o.afterFunc,
		debounce:  o.debounce,
		now:       o.now,
		rng:       rand.New(rand.NewPCG(o.seed(), o.seed())),
	}
}

func (p *Player) ScreenID() string {
	return p.screenID
}

// Reload rebuilds the sequence. Immediate reloads run now; others collapse
// into one rebuild after the debounce window.
func (p *Player) Reload(trigger Trigger, immediate bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}

	if immediate || p.debounce <= 0 {
		p.cancelPendingLocked()
		p.reloadLocked(trigger)
		return
	}

	p.cancelPendingLocked()
	gen := p.debounceGen
	p.pending = p.afterFunc(p.debounce, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.stopped || gen != p.debounceGen {
			return
		}
		p.pending = nil
		p.reloadLocked(trigger)
	})
}

func (p *Player) cancelPendingLocked() {
	p.debounceGen++
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
}

// reloadLocked restarts from index 0 only when the selection or the settings
// changed; an identical rebuild leaves the current item playing.
func (p *Player) reloadLocked(trigger Trigger) {
	ctx, cancel := context.WithTimeout(context.Background(), settingsLoadTimeout)
	defer cancel()

	cfg, err := p.settings.Get(ctx, p.screenID)
	if err != nil {
		log.Error().Err(err).Str("screenId", p.screenID).Msg("failed to load screen settings")
		return
	}

	snap := p.catalog.Snapshot()
	items := content.SelectItems(cfg, snap.Campaigns, snap.CustomByID)

	fp := sequenceFingerprint(cfg, items)
	if p.built && fp == p.fingerprint {
		return
	}

	metrics.PlayerReloadsTotal.WithLabelValues(string(trigger)).Inc()

	p.stopTimerLocked()
	p.endCurrentLocked()

	p.cfg = *cfg
	p.items = items
	p.fingerprint = fp
	p.built = true
	p.seq = content.Order(items, &p.cfg, p.rng)
	p.index = 0

	log.Debug().
		Str("screenId", p.screenID).
		Str("trigger", string(trigger)).
		Int("items", len(items)).
		Int("sequence", len(p.seq)).
		Uint64("catalogVersion", snap.Version).
		Msg("sequence rebuilt")

	p.showLocked()
}

// showLocked starts the item at p.index under a fresh epoch.
func (p *Player) showLocked() {
	p.epoch++
	if len(p.seq) == 0 {
		return
	}

	item := p.seq[p.index]
	d := content.DurationFor(&item, &p.cfg)
	if d <= 0 {
		d = model.DefaultRotationFrequency * time.Second
	}
	handle := p.sink.OnItemStart(p.screenID, &item, map[string]string{
		"epoch":      strconv.FormatUint(p.epoch, 10),
		"position":   strconv.Itoa(p.index),
		"durationMs": strconv.FormatInt(d.Milliseconds(), 10),
	})
	metrics.ItemsDisplayedTotal.WithLabelValues(string(item.Kind)).Inc()

	p.current = &showing{item: item, handle: handle, startedAt: p.now(), duration: d}

	epoch := p.epoch
	p.timer = p.afterFunc(d, func() { p.onTimer(epoch) })
}

func (p *Player) onTimer(epoch uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || epoch != p.epoch {
		metrics.StaleTimerDropsTotal.Inc()
		log.Debug().Str("screenId", p.screenID).Uint64("epoch", epoch).Msg("stale timer dropped")
		return
	}
	p.timer = nil
	p.advanceLocked()
}

func (p *Player) advanceLocked() {
	p.stopTimerLocked()
	p.endCurrentLocked()

	if len(p.seq) == 0 {
		p.epoch++
		return
	}

	p.index = (p.index + 1) % len(p.seq)
	if p.index == 0 && p.cfg.RotationMode == model.RotationRandom {
		p.seq = content.Order(p.items, &p.cfg, p.rng)
	}
	p.showLocked()
}

func (p *Player) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Player) endCurrentLocked() {
	if p.current == nil {
		return
	}
	p.sink.OnItemEnd(p.current.handle)
	p.current = nil
}

// Next ends the current item early and returns the one now showing.
func (p *Player) Next() (*model.DisplayItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || len(p.seq) == 0 {
		return nil, false
	}
	p.advanceLocked()
	if p.current == nil {
		return nil, false
	}
	item := p.current.item
	return &item, true
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := State{
		ScreenID: p.screenID,
		Epoch:    p.epoch,
		Index:    p.index,
		Sequence: append([]model.DisplayItem{}, p.seq...),
	}
	if p.current != nil {
		item := p.current.item
		st.Current = &item
		st.StartedAt = p.current.startedAt
		st.Duration = p.current.duration
		st.DurationMs = p.current.duration.Milliseconds()
	}
	return st
}

// Stop cancels the active timer and closes the current display interval.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true
	p.epoch++
	p.cancelPendingLocked()
	p.stopTimerLocked()
	p.endCurrentLocked()
}

func (p *Player) touch() {
	p.mu.Lock()
	p.lastAccess = p.now()
	p.mu.Unlock()
}

func (p *Player) idleSince() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAccess
}

// sequenceFingerprint hashes every selected item, sorted by id, together
// with the settings that shape the sequence. Any field of an item counts, so
// media edited in place (new url, duration or type) forces a rebuild.
func sequenceFingerprint(cfg *model.ScreenSettings, items []model.DisplayItem) uint64 {
	sorted := append([]model.DisplayItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h := xxhash.New()
	raw, _ := json.Marshal(sorted)
	_, _ = h.Write(raw)
	_, _ = h.WriteString("\n")

	shape := *cfg
	shape.UpdatedAt = time.Time{}
	raw, _ = json.Marshal(shape)
	_, _ = h.Write(raw)
	return h.Sum64()
}
