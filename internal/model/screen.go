package model

import (
	"time"
)

// PairedScreen is the session record of a screen bound to an owner.
type PairedScreen struct {
	ScreenID         string       `json:"screenId"`
	OwnerID          string       `json:"ownerId"`
	PairedAt         time.Time    `json:"pairedAt"`
	SessionTokenHash string       `json:"sessionTokenHash"`
	TokenExpiresAt   time.Time    `json:"tokenExpiresAt"`
	VenueID          string       `json:"venueId,omitempty"`
	CustomName       string       `json:"customName,omitempty"`
	Status           ScreenStatus `json:"status"`
	LastSeen         time.Time    `json:"lastSeen"`
}

func (s *PairedScreen) TokenExpired(now time.Time) bool {
	return now.After(s.TokenExpiresAt)
}

// ScreenView is the client-facing projection of a PairedScreen.
type ScreenView struct {
	ScreenID       string       `json:"screenId"`
	OwnerID        string       `json:"ownerId"`
	PairedAt       time.Time    `json:"pairedAt"`
	TokenExpiresAt time.Time    `json:"tokenExpiresAt"`
	VenueID        string       `json:"venueId,omitempty"`
	CustomName     string       `json:"customName,omitempty"`
	Status         ScreenStatus `json:"status"`
	LastSeen       time.Time    `json:"lastSeen"`
}

func (s *PairedScreen) View() ScreenView {
	return ScreenView{
		ScreenID:       s.ScreenID,
		OwnerID:        s.OwnerID,
		PairedAt:       s.PairedAt,
		TokenExpiresAt: s.TokenExpiresAt,
		VenueID:        s.VenueID,
		CustomName:     s.CustomName,
		Status:         s.Status,
		LastSeen:       s.LastSeen,
	}
}
