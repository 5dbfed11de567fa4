package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/audit"
	"github.com/advenue/screen-server/internal/config"
	apperrors "github.com/advenue/screen-server/internal/errors"
	"github.com/advenue/screen-server/internal/metrics"
	"github.com/advenue/screen-server/internal/model"
	"github.com/advenue/screen-server/internal/playback"
	"github.com/advenue/screen-server/internal/repository"
	"github.com/advenue/screen-server/internal/sse"
	"github.com/advenue/screen-server/internal/util"
)

const maxCustomNameLen = 100

// TokenResult is the outcome of a session token check. Invalid tokens are an
// expected result, not an error.
type TokenResult struct {
	Valid  bool                `json:"valid"`
	Screen *model.ScreenView   `json:"screen,omitempty"`
	Error  *apperrors.AppError `json:"error,omitempty"`
}

type ScreenService struct {
	screenRepo   repository.ScreenRepository
	settingsRepo repository.SettingsRepository
	players      *playback.Manager
	broker       *sse.Broker
	locks        *keyedMutex
	now          func() time.Time
}

func NewScreenService(
	screenRepo repository.ScreenRepository,
	settingsRepo repository.SettingsRepository,
	players *playback.Manager,
	broker *sse.Broker,
) *ScreenService {
	return &ScreenService{
		screenRepo:   screenRepo,
		settingsRepo: settingsRepo,
		players:      players,
		broker:       broker,
		locks:        newKeyedMutex(),
		now:          time.Now,
	}
}

// CreateSession binds the screen to its owner and issues a fresh session
// token. It returns the plaintext token, which is never stored.
func (s *ScreenService) CreateSession(ctx context.Context, screenID, ownerID, venueID string) (*model.PairedScreen, string, error) {
	unlock := s.locks.Lock(screenID)
	defer unlock()

	token, err := util.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	existing, err := s.screenRepo.FindByID(ctx, screenID)
	if err != nil {
		return nil, "", fmt.Errorf("find screen: %w", err)
	}
	if existing != nil {
		s.players.Stop(screenID)
	}

	now := s.now()
	screen := &model.PairedScreen{
		ScreenID:         screenID,
		OwnerID:          ownerID,
		PairedAt:         now,
		SessionTokenHash: util.HashToken(token),
		TokenExpiresAt:   now.Add(config.SessionTokenTTL),
		VenueID:          venueID,
		Status:           model.ScreenStatusOnline,
		LastSeen:         now,
	}
	if err := s.screenRepo.Save(ctx, screen); err != nil {
		return nil, "", fmt.Errorf("save screen: %w", err)
	}

	log.Info().
		Str("screenId", screenID).
		Str("ownerId", ownerID).
		Bool("repaired", existing != nil).
		Time("tokenExpiresAt", screen.TokenExpiresAt).
		Msg("screen session created")

	return screen, token, nil
}

// ValidateToken checks a screen's session token. A valid token counts as a
// heartbeat: it marks the screen online and slides the expiry forward once
// less than the refresh threshold remains.
func (s *ScreenService) ValidateToken(ctx context.Context, screenID, token string) (TokenResult, error) {
	unlock := s.locks.Lock(screenID)
	defer unlock()

	screen, err := s.screenRepo.FindByID(ctx, screenID)
	if err != nil {
		return TokenResult{}, fmt.Errorf("find screen: %w", err)
	}

	now := s.now()
	var reason *apperrors.AppError
	switch {
	case screen == nil, token == "":
		reason = apperrors.InvalidToken()
	case !util.ConstantTimeEqual(util.HashToken(token), screen.SessionTokenHash):
		reason = apperrors.InvalidToken()
	case screen.TokenExpired(now):
		reason = apperrors.TokenExpired()
	}
	if reason != nil {
		metrics.RecordTokenValidation(false)
		audit.Log(ctx, audit.Event{
			Type:     audit.EventTokenInvalid,
			ScreenID: screenID,
			Details:  map[string]interface{}{"reason": string(reason.Code)},
		})
		return TokenResult{Valid: false, Error: reason}, nil
	}

	screen.LastSeen = now
	screen.Status = model.ScreenStatusOnline
	if screen.TokenExpiresAt.Sub(now) < config.SessionRefreshThreshold {
		screen.TokenExpiresAt = now.Add(config.SessionTokenTTL)
		log.Debug().Str("screenId", screenID).Time("tokenExpiresAt", screen.TokenExpiresAt).Msg("session token extended")
	}
	if err := s.screenRepo.Save(ctx, screen); err != nil {
		return TokenResult{}, fmt.Errorf("save screen: %w", err)
	}

	metrics.RecordTokenValidation(true)
	view := screen.View()
	return TokenResult{Valid: true, Screen: &view}, nil
}

// ComputeStatus derives liveness from the last heartbeat without touching
// the record.
func ComputeStatus(screen *model.PairedScreen, now time.Time, threshold time.Duration) model.ScreenStatus {
	if now.Sub(screen.LastSeen) > threshold {
		return model.ScreenStatusOffline
	}
	return model.ScreenStatusOnline
}

// Unpair deletes the screen's session and settings. Only the owning account
// may do this.
func (s *ScreenService) Unpair(ctx context.Context, screenID, ownerID string) (bool, error) {
	unlock := s.locks.Lock(screenID)
	defer unlock()

	screen, err := s.screenRepo.FindByID(ctx, screenID)
	if err != nil {
		return false, fmt.Errorf("find screen: %w", err)
	}
	if screen == nil {
		return false, apperrors.NotFound("Screen")
	}
	if screen.OwnerID != ownerID {
		audit.Log(ctx, audit.Event{Type: audit.EventUnpairDenied, ScreenID: screenID, OwnerID: ownerID})
		return false, apperrors.Forbidden("Screen belongs to another owner")
	}

	if err := s.screenRepo.Delete(ctx, screenID); err != nil {
		return false, fmt.Errorf("delete screen: %w", err)
	}
	if err := s.settingsRepo.Delete(ctx, screenID); err != nil {
		log.Warn().Err(err).Str("screenId", screenID).Msg("failed to delete settings of unpaired screen")
	}

	s.players.Stop(screenID)
	if err := s.broker.PublishAndDisconnect(ctx, screenID, sse.EventUnpaired, map[string]string{"screenId": screenID}); err != nil {
		log.Warn().Err(err).Str("screenId", screenID).Msg("failed to publish unpaired event")
	}

	metrics.UnpairsTotal.Inc()
	audit.Log(ctx, audit.Event{Type: audit.EventUnpair, ScreenID: screenID, OwnerID: ownerID})

	return true, nil
}

func (s *ScreenService) Get(ctx context.Context, screenID string) (*model.ScreenView, error) {
	screen, err := s.screenRepo.FindByID(ctx, screenID)
	if err != nil {
		return nil, fmt.Errorf("find screen: %w", err)
	}
	if screen == nil {
		return nil, apperrors.NotFound("Screen")
	}
	return s.view(screen), nil
}

// ListOwnerScreens returns the owner's screens with their status derived
// from the last heartbeat.
func (s *ScreenService) ListOwnerScreens(ctx context.Context, ownerID string) ([]model.ScreenView, error) {
	screens, err := s.screenRepo.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list screens: %w", err)
	}

	views := make([]model.ScreenView, len(screens))
	for i := range screens {
		views[i] = *s.view(&screens[i])
	}
	return views, nil
}

// Rename sets the screen's display name. An empty name clears it.
func (s *ScreenService) Rename(ctx context.Context, screenID, ownerID, name string) (*model.ScreenView, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) > maxCustomNameLen {
		return nil, apperrors.InvalidInput("customName", fmt.Sprintf("must be at most %d characters", maxCustomNameLen))
	}

	unlock := s.locks.Lock(screenID)
	defer unlock()

	screen, err := requireOwner(ctx, s.screenRepo, screenID, ownerID)
	if err != nil {
		return nil, err
	}

	screen.CustomName = name
	if err := s.screenRepo.Save(ctx, screen); err != nil {
		return nil, fmt.Errorf("save screen: %w", err)
	}
	return s.view(screen), nil
}

// requireOwner fails unless the screen exists and belongs to ownerID.
func requireOwner(ctx context.Context, repo repository.ScreenRepository, screenID, ownerID string) (*model.PairedScreen, error) {
	screen, err := repo.FindByID(ctx, screenID)
	if err != nil {
		return nil, fmt.Errorf("find screen: %w", err)
	}
	if screen == nil {
		return nil, apperrors.NotFound("Screen")
	}
	if screen.OwnerID != ownerID {
		return nil, apperrors.Forbidden("Screen belongs to another owner")
	}
	return screen, nil
}

func (s *ScreenService) view(screen *model.PairedScreen) *model.ScreenView {
	v := screen.View()
	v.Status = ComputeStatus(screen, s.now(), config.ScreenOfflineThreshold)
	return &v
}
