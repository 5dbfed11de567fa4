package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/audit"
	"github.com/advenue/screen-server/internal/config"
	apperrors "github.com/advenue/screen-server/internal/errors"
	"github.com/advenue/screen-server/internal/metrics"
	"github.com/advenue/screen-server/internal/model"
	"github.com/advenue/screen-server/internal/repository"
	"github.com/advenue/screen-server/internal/sse"
	"github.com/advenue/screen-server/internal/util"
)

// PairingTicket is what the device shows to its owner. The code is only ever
// returned here.
type PairingTicket struct {
	ScreenID  string    `json:"screenId"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ValidateResult struct {
	Success           bool                `json:"success"`
	Error             *apperrors.AppError `json:"error,omitempty"`
	Session           *model.ScreenView   `json:"session,omitempty"`
	AttemptsRemaining int                 `json:"attemptsRemaining"`
}

// PairingStatus answers the device's poll. SessionToken is set exactly once,
// on the first poll after a successful validation.
type PairingStatus struct {
	ScreenID     string    `json:"screenId"`
	Paired       bool      `json:"paired"`
	SessionToken string    `json:"sessionToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type PairingService struct {
	requestRepo repository.PairingRequestRepository
	screens     *ScreenService
	broker      *sse.Broker
	sealer      *util.Sealer
	locks       *keyedMutex
	now         func() time.Time
}

func NewPairingService(
	requestRepo repository.PairingRequestRepository,
	screens *ScreenService,
	broker *sse.Broker,
	sealer *util.Sealer,
) *PairingService {
	return &PairingService{
		requestRepo: requestRepo,
		screens:     screens,
		broker:      broker,
		sealer:      sealer,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
}

// CreateRequest issues a new pairing code for the screen, replacing any
// earlier request. A screen id is generated when the device has none.
func (s *PairingService) CreateRequest(ctx context.Context, screenID, deviceFingerprint string) (*PairingTicket, error) {
	if screenID == "" {
		id, err := util.GenerateScreenID()
		if err != nil {
			return nil, fmt.Errorf("generate screen id: %w", err)
		}
		screenID = id
	} else if !util.IsValidScreenID(screenID) {
		return nil, apperrors.InvalidInput("screenId", "must be 3-64 URL-safe characters")
	}

	code, err := util.GeneratePairingCode()
	if err != nil {
		return nil, fmt.Errorf("generate pairing code: %w", err)
	}

	unlock := s.locks.Lock(screenID)
	defer unlock()

	now := s.now()
	req := &model.PairingRequest{
		ScreenID:          screenID,
		CodeHash:          util.HashPairingCode(code),
		CreatedAt:         now,
		ExpiresAt:         now.Add(config.PairingCodeTTL),
		DeviceFingerprint: deviceFingerprint,
	}
	if err := s.requestRepo.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("save pairing request: %w", err)
	}

	metrics.PairingRequestsTotal.Inc()
	log.Info().
		Str("screenId", screenID).
		Str("code", util.MaskCode(code)).
		Time("expiresAt", req.ExpiresAt).
		Msg("pairing request created")

	return &PairingTicket{ScreenID: screenID, Code: code, ExpiresAt: req.ExpiresAt}, nil
}

// Validate checks an owner-entered code. The checks run in a fixed order:
// missing, used, expired, locked, then the code itself. Every outcome is
// returned in the result; the error is reserved for storage failures.
func (s *PairingService) Validate(ctx context.Context, screenID, code, ownerID, venueID string) (ValidateResult, error) {
	unlock := s.locks.Lock(screenID)
	defer unlock()

	req, err := s.requestRepo.FindByScreenID(ctx, screenID)
	if err != nil {
		return ValidateResult{}, fmt.Errorf("find pairing request: %w", err)
	}

	now := s.now()
	switch {
	case req == nil:
		return s.reject(ctx, screenID, ownerID, apperrors.NotFound("Pairing request"), 0), nil
	case req.Used:
		return s.reject(ctx, screenID, ownerID, apperrors.AlreadyUsed(), 0), nil
	case req.IsExpired(now):
		return s.reject(ctx, screenID, ownerID, apperrors.PairingExpired(), req.AttemptsRemaining()), nil
	case req.Attempts >= model.MaxPairingAttempts:
		return s.reject(ctx, screenID, ownerID, apperrors.AttemptsExceeded(), 0), nil
	}

	if !util.ConstantTimeEqual(util.HashPairingCode(code), req.CodeHash) {
		req.Attempts++
		if err := s.requestRepo.Save(ctx, req); err != nil {
			return ValidateResult{}, fmt.Errorf("save pairing request: %w", err)
		}

		remaining := req.AttemptsRemaining()
		if remaining == 0 {
			audit.Log(ctx, audit.Event{Type: audit.EventPairingLocked, ScreenID: screenID, OwnerID: ownerID})
		}
		return s.reject(ctx, screenID, ownerID, apperrors.InvalidPairingCode(remaining), remaining), nil
	}

	req.Used = true
	req.UsedAt = &now
	if err := s.requestRepo.Save(ctx, req); err != nil {
		return ValidateResult{}, fmt.Errorf("save pairing request: %w", err)
	}

	screen, token, err := s.screens.CreateSession(ctx, screenID, ownerID, venueID)
	if err != nil {
		return ValidateResult{}, err
	}

	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return ValidateResult{}, fmt.Errorf("seal session token: %w", err)
	}
	req.PendingToken = sealed
	if err := s.requestRepo.Save(ctx, req); err != nil {
		return ValidateResult{}, fmt.Errorf("save pairing request: %w", err)
	}

	view := screen.View()
	if err := s.broker.Publish(ctx, screenID, sse.EventPaired, view); err != nil {
		log.Warn().Err(err).Str("screenId", screenID).Msg("failed to publish paired event")
	}

	metrics.RecordPairingValidation("success")
	audit.Log(ctx, audit.Event{
		Type:     audit.EventPairingSuccess,
		ScreenID: screenID,
		OwnerID:  ownerID,
		Details:  map[string]interface{}{"venueId": venueID},
	})

	return ValidateResult{Success: true, Session: &view, AttemptsRemaining: req.AttemptsRemaining()}, nil
}

func (s *PairingService) reject(ctx context.Context, screenID, ownerID string, reason *apperrors.AppError, remaining int) ValidateResult {
	metrics.RecordPairingValidation(string(reason.Code))
	audit.Log(ctx, audit.Event{
		Type:     audit.EventPairingFailure,
		ScreenID: screenID,
		OwnerID:  ownerID,
		Details: map[string]interface{}{
			"reason":            string(reason.Code),
			"attemptsRemaining": remaining,
		},
	})
	return ValidateResult{Success: false, Error: reason, AttemptsRemaining: remaining}
}

// Status is polled by the device while it shows its code. The caller proves
// possession of the screen with the code itself. A wrong code is rejected
// without touching the request: only Validate spends attempts, so polling
// can never lock a device out of its own token.
func (s *PairingService) Status(ctx context.Context, screenID, code string) (*PairingStatus, error) {
	unlock := s.locks.Lock(screenID)
	defer unlock()

	req, err := s.requestRepo.FindByScreenID(ctx, screenID)
	if err != nil {
		return nil, fmt.Errorf("find pairing request: %w", err)
	}
	if req == nil {
		return nil, apperrors.NotFound("Pairing request")
	}

	if !util.ConstantTimeEqual(util.HashPairingCode(code), req.CodeHash) {
		audit.Log(ctx, audit.Event{
			Type:     audit.EventPairingFailure,
			ScreenID: screenID,
			Details:  map[string]interface{}{"reason": "status_code_mismatch"},
		})
		return nil, apperrors.InvalidPairingCode(req.AttemptsRemaining())
	}

	now := s.now()
	status := &PairingStatus{ScreenID: screenID, Paired: req.Used, ExpiresAt: req.ExpiresAt}

	if !req.Used {
		if req.IsExpired(now) {
			return nil, apperrors.PairingExpired()
		}
		if req.Attempts >= model.MaxPairingAttempts {
			return nil, apperrors.AttemptsExceeded()
		}
		return status, nil
	}

	if req.PendingToken == "" {
		return status, nil
	}
	if !req.PickupOpen(now) {
		return nil, apperrors.PairingExpired()
	}

	token, err := s.sealer.Open(req.PendingToken)
	if err != nil {
		return nil, fmt.Errorf("open session token: %w", err)
	}
	req.PendingToken = ""
	if err := s.requestRepo.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("save pairing request: %w", err)
	}

	status.SessionToken = token
	audit.Log(ctx, audit.Event{Type: audit.EventTokenPickup, ScreenID: screenID})
	return status, nil
}
