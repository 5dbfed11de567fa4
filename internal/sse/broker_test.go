package sse

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/advenue/screen-server/internal/redis"
)

func TestBroker_LocalDelivery(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	a1 := b.Subscribe("screen-a")
	a2 := b.Subscribe("screen-a")
	other := b.Subscribe("screen-b")
	assert.Equal(t, 2, b.ClientCount("screen-a"))
	assert.Equal(t, 3, b.TotalClients())

	require.NoError(t, b.Publish(context.Background(), "screen-a", EventSettingsChanged, map[string]int{"rotationFrequency": 5}))

	for _, c := range []*Client{a1, a2} {
		select {
		case ev := <-c.Events:
			assert.Equal(t, EventSettingsChanged, ev.Type)
			var data map[string]int
			require.NoError(t, json.Unmarshal(ev.Data, &data))
			assert.Equal(t, 5, data["rotationFrequency"])
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	select {
	case <-other.Events:
		t.Fatal("event leaked to another screen")
	default:
	}
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	c := b.Subscribe("screen-a")
	b.Unsubscribe(c)
	b.Unsubscribe(c)

	assert.Equal(t, 0, b.ClientCount("screen-a"))
	select {
	case <-c.Done:
	default:
		t.Fatal("done channel not closed")
	}
}

func TestBroker_Disconnect(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	c := b.Subscribe("screen-a")
	require.NoError(t, b.Publish(context.Background(), "screen-a", EventUnpaired, map[string]string{}))
	b.Disconnect("screen-a")

	assert.Len(t, c.Events, 1, "final event stays readable")
	select {
	case <-c.Done:
	default:
		t.Fatal("stream not closed")
	}
	assert.Equal(t, 0, b.TotalClients())

	b.Unsubscribe(c)
}

func TestBroker_PublishAndDisconnect(t *testing.T) {
	assertFinal := func(t *testing.T, b *Broker, c *Client) {
		t.Helper()
		require.Len(t, c.Events, 1, "final event stays readable")
		ev := <-c.Events
		assert.Equal(t, EventUnpaired, ev.Type)
		select {
		case <-c.Done:
		default:
			t.Fatal("stream not closed")
		}
		assert.Zero(t, b.ClientCount("screen-a"))
	}

	t.Run("local broker", func(t *testing.T) {
		b := NewBroker(nil)
		defer b.Close()

		c := b.Subscribe("screen-a")
		require.NoError(t, b.PublishAndDisconnect(context.Background(), "screen-a", EventUnpaired, map[string]string{"screenId": "screen-a"}))
		assertFinal(t, b, c)
	})

	t.Run("redis-backed broker delivers locally even when redis is down", func(t *testing.T) {
		down := &redisclient.Client{Client: goredis.NewClient(&goredis.Options{
			Addr:       "127.0.0.1:1",
			MaxRetries: -1,
		})}
		defer down.Close()
		b := NewBroker(down)
		defer b.Close()

		c := b.Subscribe("screen-a")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		err := b.PublishAndDisconnect(ctx, "screen-a", EventUnpaired, map[string]string{"screenId": "screen-a"})
		assert.Error(t, err, "redis publish fails")
		assertFinal(t, b, c)
	})
}

func TestBroker_RedisFanOut(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	client, err := redisclient.NewClient(url)
	require.NoError(t, err)
	defer client.Close()

	origin := NewBroker(client)
	defer origin.Close()
	replica := NewBroker(client)
	defer replica.Close()

	local := origin.Subscribe("screen-fanout")
	remote := replica.Subscribe("screen-fanout")
	// Give the replica's pub/sub subscription time to register.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, origin.PublishAndDisconnect(context.Background(), "screen-fanout", EventUnpaired, map[string]string{}))

	ev := <-local.Events
	assert.Equal(t, EventUnpaired, ev.Type)
	select {
	case ev := <-remote.Events:
		assert.Equal(t, EventUnpaired, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("unpaired event did not reach the other process")
	}
}

func TestBroker_FullBufferDrops(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	c := b.Subscribe("screen-a")
	for i := 0; i < clientBuffer+5; i++ {
		require.NoError(t, b.Publish(context.Background(), "screen-a", EventCatalogChanged, i))
	}
	assert.Len(t, c.Events, clientBuffer)
}
