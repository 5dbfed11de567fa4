package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/advenue/screen-server/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
	clientBuffer      = 32
)

// Event types pushed to screens.
const (
	EventConnected       = "connected"
	EventPaired          = "paired"
	EventUnpaired        = "unpaired"
	EventSettingsChanged = "settings_changed"
	EventCatalogChanged  = "catalog_changed"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	ScreenID string
	Events   chan Event
	Done     chan struct{}
}

type screenSub struct {
	clients map[*Client]bool
	cancel  context.CancelFunc
}

// Broker fans per-screen events out to connected event streams. Events travel
// through Redis pub/sub so any process may publish them.
type Broker struct {
	redis  *redisclient.Client
	mu     sync.RWMutex
	subs   map[string]*screenSub
	ctx    context.Context
	cancel context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:  redisClient,
		subs:   make(map[string]*screenSub),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (b *Broker) Subscribe(screenID string) *Client {
	client := &Client{
		ScreenID: screenID,
		Events:   make(chan Event, clientBuffer),
		Done:     make(chan struct{}),
	}

	b.mu.Lock()
	sub, ok := b.subs[screenID]
	if !ok {
		ctx, cancel := context.WithCancel(b.ctx)
		sub = &screenSub{clients: make(map[*Client]bool), cancel: cancel}
		b.subs[screenID] = sub
		if b.redis != nil {
			go b.subscribeToRedis(ctx, screenID)
		}
	}
	sub.clients[client] = true
	clientCount := len(sub.clients)
	b.mu.Unlock()

	log.Info().
		Str("screenId", screenID).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[client.ScreenID]
	if !ok || !sub.clients[client] {
		return
	}
	delete(sub.clients, client)
	close(client.Done)

	if len(sub.clients) == 0 {
		sub.cancel()
		delete(b.subs, client.ScreenID)
	}

	log.Info().
		Str("screenId", client.ScreenID).
		Int("clientCount", len(sub.clients)).
		Msg("sse client unsubscribed")
}

// Publish sends an event to every stream of the screen.
func (b *Broker) Publish(ctx context.Context, screenID, eventType string, data any) error {
	event, err := newEvent(eventType, data)
	if err != nil {
		return err
	}

	if b.redis == nil {
		b.broadcast(screenID, event)
		return nil
	}
	return b.publishRedis(ctx, screenID, event)
}

// PublishAndDisconnect delivers a last event to the screen and closes its
// streams. Local streams get the event queued directly before they close, so
// it never depends on the Redis round trip. With Redis the event is then
// published for streams held by other processes, which end themselves after
// an unpaired event.
func (b *Broker) PublishAndDisconnect(ctx context.Context, screenID, eventType string, data any) error {
	event, err := newEvent(eventType, data)
	if err != nil {
		b.Disconnect(screenID)
		return err
	}

	b.broadcast(screenID, event)
	b.Disconnect(screenID)

	if b.redis == nil {
		return nil
	}
	return b.publishRedis(ctx, screenID, event)
}

func newEvent(eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return Event{Type: eventType, Data: raw}, nil
}

func (b *Broker) publishRedis(ctx context.Context, screenID string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.redis.Publish(ctx, redisclient.ScreenChannel(screenID), payload).Err()
}

// Disconnect closes every stream of the screen on this process. Events
// already queued stay readable; use PublishAndDisconnect to send a last one.
func (b *Broker) Disconnect(screenID string) {
	b.mu.Lock()
	sub, ok := b.subs[screenID]
	delete(b.subs, screenID)
	b.mu.Unlock()
	if !ok {
		return
	}

	sub.cancel()
	for client := range sub.clients {
		close(client.Done)
	}
}

func (b *Broker) subscribeToRedis(ctx context.Context, screenID string) {
	channel := redisclient.ScreenChannel(screenID)
	pubsub := b.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("screenId", screenID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(screenID, event)
		}
	}
}

func (b *Broker) broadcast(screenID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sub, ok := b.subs[screenID]
	if !ok {
		return
	}

	for client := range sub.clients {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("screenId", screenID).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		for client := range sub.clients {
			close(client.Done)
		}
	}
	b.subs = make(map[string]*screenSub)
}

func (b *Broker) ClientCount(screenID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if sub, ok := b.subs[screenID]; ok {
		return len(sub.clients)
	}
	return 0
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, sub := range b.subs {
		total += len(sub.clients)
	}
	return total
}
