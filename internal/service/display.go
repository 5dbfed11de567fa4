package service

import (
	"context"

	apperrors "github.com/advenue/screen-server/internal/errors"
	"github.com/advenue/screen-server/internal/model"
	"github.com/advenue/screen-server/internal/playback"
)

// DisplayService is what the rendering surface of a paired screen talks to.
type DisplayService struct {
	players *playback.Manager
}

func NewDisplayService(players *playback.Manager) *DisplayService {
	return &DisplayService{players: players}
}

// GetDisplaySequence returns the screen's current sequence and position,
// starting its player if needed.
func (s *DisplayService) GetDisplaySequence(ctx context.Context, screenID string) playback.State {
	return s.players.Get(ctx, screenID).State()
}

// NextItem ends the current item early, e.g. when an embedded video reported
// its own end, and returns the item now showing.
func (s *DisplayService) NextItem(ctx context.Context, screenID string) (*model.DisplayItem, error) {
	item, ok := s.players.Get(ctx, screenID).Next()
	if !ok {
		return nil, apperrors.NotFound("Display item")
	}
	return item, nil
}
