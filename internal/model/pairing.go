package model

import (
	"time"
)

const MaxPairingAttempts = 3

// PairingPickupGrace is how long after a successful validation the device can
// still collect its session token, even when the code itself has expired.
const PairingPickupGrace = 5 * time.Minute

// PairingRequest is the outstanding pairing attempt for one screen id. Only
// the hash of the code is kept.
type PairingRequest struct {
	ScreenID          string     `json:"screenId"`
	CodeHash          string     `json:"codeHash"`
	CreatedAt         time.Time  `json:"createdAt"`
	ExpiresAt         time.Time  `json:"expiresAt"`
	Attempts          int        `json:"attempts"`
	Used              bool       `json:"used"`
	UsedAt            *time.Time `json:"usedAt,omitempty"`
	DeviceFingerprint string     `json:"deviceFingerprint,omitempty"`
	// PendingToken holds the sealed session token until the device collects it.
	PendingToken      string     `json:"pendingToken,omitempty"`
}

func (r *PairingRequest) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// PickupOpen reports whether a sealed token is waiting and may still be
// collected at now. The window closes at the later of the code's expiry and
// UsedAt plus PairingPickupGrace.
func (r *PairingRequest) PickupOpen(now time.Time) bool {
	if !r.Used || r.PendingToken == "" || r.UsedAt == nil {
		return false
	}
	deadline := r.ExpiresAt
	if grace := r.UsedAt.Add(PairingPickupGrace); grace.After(deadline) {
		deadline = grace
	}
	return !now.After(deadline)
}

func (r *PairingRequest) AttemptsRemaining() int {
	remaining := MaxPairingAttempts - r.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
