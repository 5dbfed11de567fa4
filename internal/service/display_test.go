package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/advenue/screen-server/internal/errors"
	"github.com/advenue/screen-server/internal/model"
)

func TestDisplayService(t *testing.T) {
	ctx := context.Background()

	t.Run("empty selection has nothing to advance to", func(t *testing.T) {
		h := newHarness(t)

		state := h.display.GetDisplaySequence(ctx, "lobby-screen")
		assert.Empty(t, state.Sequence)
		assert.Nil(t, state.Current)

		_, err := h.display.NextItem(ctx, "lobby-screen")
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})

	t.Run("next wraps around the sequence", func(t *testing.T) {
		h := newHarness(t)
		h.addCampaign(t, "camp-1", image("m1"), image("m2"))

		settings := model.DefaultSettings("lobby-screen")
		settings.DisplayAll = true
		require.NoError(t, h.settingsRepo.Save(ctx, &settings))

		state := h.display.GetDisplaySequence(ctx, "lobby-screen")
		require.Len(t, state.Sequence, 2)
		assert.Equal(t, "ad-camp-1-m1", state.Current.ID)
		assert.Equal(t, int64(10000), state.DurationMs)

		item, err := h.display.NextItem(ctx, "lobby-screen")
		require.NoError(t, err)
		assert.Equal(t, "ad-camp-1-m2", item.ID)

		item, err = h.display.NextItem(ctx, "lobby-screen")
		require.NoError(t, err)
		assert.Equal(t, "ad-camp-1-m1", item.ID)

		assert.Equal(t, 0, h.display.GetDisplaySequence(ctx, "lobby-screen").Index)
	})

	t.Run("catalog changes reach running players", func(t *testing.T) {
		h := newHarness(t)
		h.cache.Subscribe(h.players.OnCatalogChange)

		settings := model.DefaultSettings("lobby-screen")
		settings.DisplayAll = true
		require.NoError(t, h.settingsRepo.Save(ctx, &settings))

		h.addCampaign(t, "camp-1", image("m1"))
		require.Len(t, h.display.GetDisplaySequence(ctx, "lobby-screen").Sequence, 1)

		h.addCampaign(t, "camp-2", image("m9"))
		state := h.display.GetDisplaySequence(ctx, "lobby-screen")
		require.Len(t, state.Sequence, 2)
		assert.Equal(t, "ad-camp-2-m9", state.Sequence[1].ID)
	})
}
