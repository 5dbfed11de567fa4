package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/middleware"
	"github.com/advenue/screen-server/internal/playback"
	"github.com/advenue/screen-server/internal/sse"
)

// EventsHandler streams a screen's events. It expects the screen auth
// middleware to have run.
type EventsHandler struct {
	broker  *sse.Broker
	players *playback.Manager
}

func NewEventsHandler(broker *sse.Broker, players *playback.Manager) *EventsHandler {
	return &EventsHandler{
		broker:  broker,
		players: players,
	}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	screen := middleware.GetScreen(r.Context())
	if screen == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(screen.ScreenID)
	defer h.broker.Unsubscribe(client)

	log.Info().
		Str("screenId", screen.ScreenID).
		Msg("sse connection established")

	ctx := r.Context()

	connected := map[string]any{
		"screenId": screen.ScreenID,
		"status":   screen.Status,
	}
	if h.players != nil {
		connected["state"] = h.players.Get(ctx, screen.ScreenID).State()
	}
	if err := h.sendEvent(w, flusher, sse.EventConnected, connected); err != nil {
		log.Error().Err(err).Msg("failed to send connected event")
		return
	}

	heartbeat := time.NewTicker(sse.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("screenId", screen.ScreenID).
				Msg("sse connection closed by client")
			return

		case <-client.Done:
			h.drain(w, flusher, client)
			log.Info().
				Str("screenId", screen.ScreenID).
				Msg("sse connection closed by broker")
			return

		case event := <-client.Events:
			if err := h.sendRawEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}
			// The unpair may have run on another process.
			if event.Type == sse.EventUnpaired {
				log.Info().
					Str("screenId", screen.ScreenID).
					Msg("sse connection closed after unpair")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().
					Str("screenId", screen.ScreenID).
					Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

// drain flushes whatever the broker queued before closing the client, so an
// unpaired event still reaches the screen.
func (h *EventsHandler) drain(w http.ResponseWriter, flusher http.Flusher, client *sse.Client) {
	for {
		select {
		case event := <-client.Events:
			if err := h.sendRawEvent(w, flusher, event); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return h.sendRawEvent(w, flusher, sse.Event{Type: eventType, Data: jsonData})
}

func (h *EventsHandler) sendRawEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
