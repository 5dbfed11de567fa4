package model

import (
	"time"
)

const (
	DefaultRotationFrequency = 10
	DefaultAdsContentRatio   = 50
	MinCampaignPriority      = 1
	MaxCampaignPriority      = 10
)

// ScreenSettings controls what a screen shows and for how long.
type ScreenSettings struct {
	ScreenID            string            `json:"screenId"`
	DisplayAll          bool              `json:"displayAll"`
	SelectedCampaignIDs []string          `json:"selectedCampaignIds" validate:"dive,required"`
	SelectedCategories  []string          `json:"selectedCategories,omitempty" validate:"dive,oneof=Food Clothing Hotel Entertainment Technology Health Other"`
	ContentMode         ContentMode       `json:"contentMode" validate:"oneof=ads-only custom-only mixed"`
	CustomContentIDs    []string          `json:"customContentIds" validate:"dive,required"`
	ShowAds             bool              `json:"showAds"`
	AdsContentRatio     int               `json:"adsContentRatio" validate:"min=0,max=100"`
	RotationMode        RotationMode      `json:"rotationMode" validate:"oneof=sequential random weighted"`
	CampaignPriorities  map[string]int    `json:"campaignPriorities,omitempty" validate:"dive,min=1,max=10"`
	RotationFrequency   int               `json:"rotationFrequency" validate:"min=1,max=86400"`
	VideoPlaybackMode   VideoPlaybackMode `json:"videoPlaybackMode" validate:"oneof=complete rotation smart"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

// DefaultSettings is what a screen uses until its owner saves settings.
func DefaultSettings(screenID string) ScreenSettings {
	return ScreenSettings{
		ScreenID:            screenID,
		DisplayAll:          false,
		SelectedCampaignIDs: []string{},
		ContentMode:         ContentModeAdsOnly,
		CustomContentIDs:    []string{},
		ShowAds:             true,
		AdsContentRatio:     DefaultAdsContentRatio,
		RotationMode:        RotationSequential,
		RotationFrequency:   DefaultRotationFrequency,
		VideoPlaybackMode:   PlaybackSmart,
	}
}

// AdsEnabled is false when the content mode or the owner's switch rules out ads.
func (s *ScreenSettings) AdsEnabled() bool {
	return s.ContentMode != ContentModeCustomOnly && s.ShowAds
}

func (s *ScreenSettings) CustomEnabled() bool {
	return s.ContentMode != ContentModeAdsOnly
}

// Priority returns the weight for a campaign, defaulting to 1.
func (s *ScreenSettings) Priority(campaignID string) int {
	p := s.CampaignPriorities[campaignID]
	if p < MinCampaignPriority {
		return MinCampaignPriority
	}
	if p > MaxCampaignPriority {
		return MaxCampaignPriority
	}
	return p
}

func (s *ScreenSettings) RotationInterval() time.Duration {
	return time.Duration(s.RotationFrequency) * time.Second
}
