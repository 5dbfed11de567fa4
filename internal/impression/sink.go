// Package impression records when display items start and stop showing.
package impression

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/advenue/screen-server/internal/model"
)

// Handle identifies one display interval. The zero value is never issued.
type Handle string

// Sink receives paired start/end notifications. OnItemEnd for a handle that
// already ended, or was never issued, is ignored.
type Sink interface {
	OnItemStart(screenID string, item *model.DisplayItem, metadata map[string]string) Handle
	OnItemEnd(h Handle)
}

type Event string

const (
	EventStart Event = "start"
	EventEnd   Event = "end"
)

type Record struct {
	Handle     Handle            `json:"impressionId"`
	Event      Event             `json:"event"`
	ScreenID   string            `json:"screenId"`
	ItemID     string            `json:"itemId"`
	Kind       model.ItemKind    `json:"kind"`
	CampaignID string            `json:"campaignId,omitempty"`
	MediaID    string            `json:"mediaId,omitempty"`
	ContentID  string            `json:"contentId,omitempty"`
	StartedAt  time.Time         `json:"startedAt"`
	EndedAt    *time.Time        `json:"endedAt,omitempty"`
	DurationMs int64             `json:"durationMs,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// tracker pairs starts with ends and hands finished records to emit.
type tracker struct {
	mu   sync.Mutex
	open map[Handle]Record
	now  func() time.Time
	emit func(Record)
}

func newTracker(emit func(Record)) *tracker {
	return &tracker{
		open: make(map[Handle]Record),
		now:  time.Now,
		emit: emit,
	}
}

func (t *tracker) start(screenID string, item *model.DisplayItem, metadata map[string]string) Handle {
	rec := Record{
		Handle:     Handle(uuid.NewString()),
		Event:      EventStart,
		ScreenID:   screenID,
		ItemID:     item.ID,
		Kind:       item.Kind,
		CampaignID: item.CampaignID,
		ContentID:  item.ContentID,
		StartedAt:  t.now(),
		Metadata:   metadata,
	}
	if item.Media != nil {
		rec.MediaID = item.Media.ID
	}

	t.mu.Lock()
	t.open[rec.Handle] = rec
	t.mu.Unlock()

	t.emit(rec)
	return rec.Handle
}

func (t *tracker) end(h Handle) {
	t.mu.Lock()
	rec, ok := t.open[h]
	delete(t.open, h)
	t.mu.Unlock()
	if !ok {
		return
	}

	ended := t.now()
	rec.Event = EventEnd
	rec.EndedAt = &ended
	rec.DurationMs = ended.Sub(rec.StartedAt).Milliseconds()
	t.emit(rec)
}

func (t *tracker) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// MultiSink fans out to several sinks and maps its own handle to theirs.
type MultiSink struct {
	sinks []Sink
	mu    sync.Mutex
	open  map[Handle][]Handle
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks, open: make(map[Handle][]Handle)}
}

func (m *MultiSink) OnItemStart(screenID string, item *model.DisplayItem, metadata map[string]string) Handle {
	handles := make([]Handle, len(m.sinks))
	for i, s := range m.sinks {
		handles[i] = s.OnItemStart(screenID, item, metadata)
	}

	h := Handle(uuid.NewString())
	m.mu.Lock()
	m.open[h] = handles
	m.mu.Unlock()
	return h
}

func (m *MultiSink) OnItemEnd(h Handle) {
	m.mu.Lock()
	handles, ok := m.open[h]
	delete(m.open, h)
	m.mu.Unlock()
	if !ok {
		return
	}

	for i, s := range m.sinks {
		s.OnItemEnd(handles[i])
	}
}
