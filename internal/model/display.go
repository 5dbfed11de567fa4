package model

import (
	"fmt"
)

type ItemKind string

const (
	ItemKindAd                    ItemKind = "ad"
	ItemKindCustomMenu            ItemKind = "custom-menu"
	ItemKindCustomYouTubeVideo    ItemKind = "custom-youtube-video"
	ItemKindCustomYouTubePlaylist ItemKind = "custom-youtube-playlist"
)

// DisplayItem is one schedulable unit of content. Kind selects which of the
// remaining fields are meaningful:
//
//	ad                      CampaignID, Media
//	custom-menu             ContentID, MediaRef
//	custom-youtube-video    ContentID, VideoID
//	custom-youtube-playlist ContentID, PlaylistID
type DisplayItem struct {
	ID         string     `json:"id"`
	Kind       ItemKind   `json:"type"`
	CampaignID string     `json:"campaignId,omitempty"`
	Media      *MediaFile `json:"media,omitempty"`
	ContentID  string     `json:"contentId,omitempty"`
	Title      string     `json:"title,omitempty"`
	MediaRef   string     `json:"mediaRef,omitempty"`
	VideoID    string     `json:"videoId,omitempty"`
	PlaylistID string     `json:"playlistId,omitempty"`
}

// NewAdItem keys the item by (campaign, media) so the same media file in two
// campaigns stays two distinct items.
func NewAdItem(campaignID string, media MediaFile) DisplayItem {
	media.CampaignID = campaignID
	return DisplayItem{
		ID:         fmt.Sprintf("ad-%s-%s", campaignID, media.ID),
		Kind:       ItemKindAd,
		CampaignID: campaignID,
		Media:      &media,
	}
}

func NewMenuItem(contentID, title, mediaRef string) DisplayItem {
	return DisplayItem{
		ID:        "custom-" + contentID,
		Kind:      ItemKindCustomMenu,
		ContentID: contentID,
		Title:     title,
		MediaRef:  mediaRef,
	}
}

func NewYouTubeVideoItem(contentID, title, videoID string) DisplayItem {
	return DisplayItem{
		ID:        "custom-" + contentID,
		Kind:      ItemKindCustomYouTubeVideo,
		ContentID: contentID,
		Title:     title,
		VideoID:   videoID,
	}
}

func NewYouTubePlaylistItem(contentID, title, playlistID string) DisplayItem {
	return DisplayItem{
		ID:         "custom-" + contentID,
		Kind:       ItemKindCustomYouTubePlaylist,
		ContentID:  contentID,
		Title:      title,
		PlaylistID: playlistID,
	}
}

func (d DisplayItem) IsAd() bool {
	return d.Kind == ItemKindAd
}

func (d DisplayItem) IsYouTube() bool {
	return d.Kind == ItemKindCustomYouTubeVideo || d.Kind == ItemKindCustomYouTubePlaylist
}

func (d DisplayItem) IsVideoAd() bool {
	return d.IsAd() && d.Media != nil && d.Media.IsVideo()
}
