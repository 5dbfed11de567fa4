package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/audit"
	"github.com/advenue/screen-server/internal/model"
	"github.com/advenue/screen-server/internal/playback"
	"github.com/advenue/screen-server/internal/repository"
	"github.com/advenue/screen-server/internal/sse"
	"github.com/advenue/screen-server/internal/validation"
)

// SettingsService reads and writes per-screen settings. It is also the
// settings source of the players.
type SettingsService struct {
	settingsRepo repository.SettingsRepository
	screenRepo   repository.ScreenRepository
	broker       *sse.Broker
	players      *playback.Manager
	now          func() time.Time
}

func NewSettingsService(
	settingsRepo repository.SettingsRepository,
	screenRepo repository.ScreenRepository,
	broker *sse.Broker,
) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		screenRepo:   screenRepo,
		broker:       broker,
		now:          time.Now,
	}
}

// AttachPlayers wires the manager that is reloaded on updates. The manager
// itself reads settings through this service, so it is created afterwards.
func (s *SettingsService) AttachPlayers(players *playback.Manager) {
	s.players = players
}

// Get returns the stored settings or the defaults for screens that never
// saved any.
func (s *SettingsService) Get(ctx context.Context, screenID string) (*model.ScreenSettings, error) {
	settings, err := s.settingsRepo.FindByScreenID(ctx, screenID)
	if err != nil {
		return nil, fmt.Errorf("find settings: %w", err)
	}
	if settings == nil {
		defaults := model.DefaultSettings(screenID)
		return &defaults, nil
	}
	return settings, nil
}

func (s *SettingsService) GetForOwner(ctx context.Context, screenID, ownerID string) (*model.ScreenSettings, error) {
	if _, err := requireOwner(ctx, s.screenRepo, screenID, ownerID); err != nil {
		return nil, err
	}
	return s.Get(ctx, screenID)
}

// Update replaces the screen's settings. The change is user-triggered, so a
// running player rebuilds right away instead of waiting out the debounce.
func (s *SettingsService) Update(ctx context.Context, screenID, ownerID string, in model.ScreenSettings) (*model.ScreenSettings, error) {
	if _, err := requireOwner(ctx, s.screenRepo, screenID, ownerID); err != nil {
		return nil, err
	}

	in.ScreenID = screenID
	if in.SelectedCampaignIDs == nil {
		in.SelectedCampaignIDs = []string{}
	}
	if in.CustomContentIDs == nil {
		in.CustomContentIDs = []string{}
	}
	if verr := validation.Struct(&in); verr != nil {
		return nil, verr
	}
	in.UpdatedAt = s.now()

	if err := s.settingsRepo.Save(ctx, &in); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	if s.players != nil {
		s.players.Notify(screenID, playback.TriggerSettings, true)
	}
	if err := s.broker.Publish(ctx, screenID, sse.EventSettingsChanged, &in); err != nil {
		log.Warn().Err(err).Str("screenId", screenID).Msg("failed to publish settings change")
	}

	audit.Log(ctx, audit.Event{
		Type:     audit.EventSettingsUpdate,
		ScreenID: screenID,
		OwnerID:  ownerID,
		Details: map[string]interface{}{
			"contentMode":  string(in.ContentMode),
			"rotationMode": string(in.RotationMode),
		},
	})

	return &in, nil
}
