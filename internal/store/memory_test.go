package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		_, err := s.Get(ctx, "ns", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "ns", "a", []byte(`{"v":1}`)))
		v, err := s.Get(ctx, "ns", "a")
		require.NoError(t, err)
		assert.Equal(t, `{"v":1}`, string(v))
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		_, err := s.Get(ctx, "other", "a")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returned bytes are copies", func(t *testing.T) {
		v, err := s.Get(ctx, "ns", "a")
		require.NoError(t, err)
		v[0] = 'X'

		again, err := s.Get(ctx, "ns", "a")
		require.NoError(t, err)
		assert.Equal(t, byte('{'), again[0])
	})

	t.Run("list and delete", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "ns", "b", []byte(`2`)))
		all, err := s.List(ctx, "ns")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		require.NoError(t, s.Delete(ctx, "ns", "a"))
		require.NoError(t, s.Delete(ctx, "ns", "never-existed"))
		all, err = s.List(ctx, "ns")
		require.NoError(t, err)
		assert.Len(t, all, 1)
		assert.Contains(t, all, "b")
	})
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	got, err := GetJSON[record](ctx, s, "r", "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, PutJSON(ctx, s, "r", "one", &record{Name: "one", Count: 1}))
	require.NoError(t, PutJSON(ctx, s, "r", "two", &record{Name: "two", Count: 2}))
	require.NoError(t, s.Put(ctx, "r", "broken", []byte("{not json")))

	got, err = GetJSON[record](ctx, s, "r", "one")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Count)

	_, err = GetJSON[record](ctx, s, "r", "broken")
	assert.Error(t, err)

	all, skipped, err := ListJSON[record](ctx, s, "r")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 1, skipped)
}
