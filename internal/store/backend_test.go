package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/advenue/screen-server/internal/database"
	"github.com/advenue/screen-server/internal/redis"
)

// testBackend runs the behavior every Store must share. Values are compared
// as JSON because Postgres normalizes jsonb on the way back.
func testBackend(t *testing.T, s Store, ns string) {
	ctx := context.Background()

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		_, err := s.Get(ctx, ns, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, ns, "a", []byte(`{"v":1}`)))
		v, err := s.Get(ctx, ns, "a")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":1}`, string(v))
	})

	t.Run("put overwrites", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, ns, "a", []byte(`{"v":2}`)))
		v, err := s.Get(ctx, ns, "a")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2}`, string(v))
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		_, err := s.Get(ctx, ns+"-other", "a")
		assert.ErrorIs(t, err, ErrNotFound)

		all, err := s.List(ctx, ns+"-other")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("list and delete", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, ns, "b", []byte(`2`)))
		all, err := s.List(ctx, ns)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		assert.JSONEq(t, `{"v":2}`, string(all["a"]))

		require.NoError(t, s.Delete(ctx, ns, "a"))
		require.NoError(t, s.Delete(ctx, ns, "never-existed"))

		_, err = s.Get(ctx, ns, "a")
		assert.ErrorIs(t, err, ErrNotFound)
		all, err = s.List(ctx, ns)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		assert.Contains(t, all, "b")
	})

	t.Run("json helpers", func(t *testing.T) {
		got, err := GetJSON[record](ctx, s, ns, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got)

		require.NoError(t, PutJSON(ctx, s, ns, "rec", &record{Name: "rec", Count: 3}))
		got, err = GetJSON[record](ctx, s, ns, "rec")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, record{Name: "rec", Count: 3}, *got)
	})
}

func testNamespace() string {
	return fmt.Sprintf("test-%d", time.Now().UnixNano())
}

func TestMemoryStore_Backend(t *testing.T) {
	testBackend(t, NewMemoryStore(), testNamespace())
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	client, err := redis.NewClient(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ns := testNamespace()
	t.Cleanup(func() {
		client.Del(context.Background(), redis.StoreKey(ns))
	})

	testBackend(t, NewRedisStore(client), ns)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Connect(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.EnsureSchema(context.Background()))

	ns := testNamespace()
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `DELETE FROM kv_records WHERE namespace LIKE $1`, ns+"%")
	})

	testBackend(t, NewPostgresStore(db.DB), ns)
}
