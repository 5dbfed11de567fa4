package model

type ScreenStatus string

const (
	ScreenStatusOnline  ScreenStatus = "online"
	ScreenStatusOffline ScreenStatus = "offline"
)

type ContentMode string

const (
	ContentModeAdsOnly    ContentMode = "ads-only"
	ContentModeCustomOnly ContentMode = "custom-only"
	ContentModeMixed      ContentMode = "mixed"
)

type RotationMode string

const (
	RotationSequential RotationMode = "sequential"
	RotationRandom     RotationMode = "random"
	RotationWeighted   RotationMode = "weighted"
)

type VideoPlaybackMode string

const (
	PlaybackComplete VideoPlaybackMode = "complete"
	PlaybackRotation VideoPlaybackMode = "rotation"
	PlaybackSmart    VideoPlaybackMode = "smart"
)

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

type CustomContentType string

const (
	CustomContentMenu            CustomContentType = "menu"
	CustomContentYouTubeVideo    CustomContentType = "youtube-video"
	CustomContentYouTubePlaylist CustomContentType = "youtube-playlist"
)
