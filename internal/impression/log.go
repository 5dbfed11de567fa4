package impression

import (
	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/model"
)

// LogSink writes impressions to the structured log.
type LogSink struct {
	t *tracker
}

func NewLogSink() *LogSink {
	return &LogSink{t: newTracker(logRecord)}
}

func (s *LogSink) OnItemStart(screenID string, item *model.DisplayItem, metadata map[string]string) Handle {
	return s.t.start(screenID, item, metadata)
}

func (s *LogSink) OnItemEnd(h Handle) {
	s.t.end(h)
}

func logRecord(rec Record) {
	ev := log.Debug()
	if rec.Event == EventEnd {
		ev = log.Info().Int64("durationMs", rec.DurationMs)
	}
	ev.
		Str("impressionId", string(rec.Handle)).
		Str("event", string(rec.Event)).
		Str("screenId", rec.ScreenID).
		Str("itemId", rec.ItemID).
		Str("kind", string(rec.Kind)).
		Str("campaignId", rec.CampaignID).
		Msg("impression")
}
