package model

import (
	"net/url"
	"strings"
	"time"
)

type MediaFile struct {
	ID         string    `db:"id" json:"id"`
	CampaignID string    `db:"campaign_id" json:"campaignId"`
	Name       string    `db:"name" json:"name"`
	Type       MediaType `db:"media_type" json:"type"`
	URL        string    `db:"url" json:"url"`
	Size       int64     `db:"size_bytes" json:"size"`
	// Duration is in seconds; zero means unknown.
	Duration   float64   `db:"duration_seconds" json:"duration,omitempty"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploadedAt"`
}

func (m *MediaFile) IsVideo() bool {
	return m.Type == MediaTypeVideo
}

type Campaign struct {
	ID           string         `db:"id" json:"id"`
	AdvertiserID string         `db:"advertiser_id" json:"advertiserId"`
	Name         string         `db:"name" json:"name"`
	Category     *string        `db:"category" json:"category,omitempty"`
	Status       CampaignStatus `db:"status" json:"status"`
	TargetURL    *string        `db:"target_url" json:"targetUrl,omitempty"`
	StartDate    *time.Time     `db:"start_date" json:"startDate,omitempty"`
	EndDate      *time.Time     `db:"end_date" json:"endDate,omitempty"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
	Media        []MediaFile    `db:"-" json:"media"`
}

type CustomContent struct {
	ID         string            `db:"id" json:"id"`
	OwnerID    string            `db:"owner_id" json:"ownerId"`
	Type       CustomContentType `db:"content_type" json:"type"`
	Title      string            `db:"title" json:"title"`
	YouTubeURL *string           `db:"youtube_url" json:"youtubeUrl,omitempty"`
	YouTubeID  *string           `db:"youtube_id" json:"youtubeId,omitempty"`
	PlaylistID *string           `db:"playlist_id" json:"playlistId,omitempty"`
	MediaID    *string           `db:"media_id" json:"mediaId,omitempty"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updatedAt"`
}

// VideoRef returns the YouTube video id, falling back to parsing the URL.
func (c *CustomContent) VideoRef() string {
	if c.YouTubeID != nil && *c.YouTubeID != "" {
		return *c.YouTubeID
	}
	if c.YouTubeURL != nil {
		if kind, id := ParseYouTubeURL(*c.YouTubeURL); kind == CustomContentYouTubeVideo {
			return id
		}
	}
	return ""
}

// PlaylistRef returns the YouTube playlist id, falling back to parsing the URL.
func (c *CustomContent) PlaylistRef() string {
	if c.PlaylistID != nil && *c.PlaylistID != "" {
		return *c.PlaylistID
	}
	if c.YouTubeURL != nil {
		if kind, id := ParseYouTubeURL(*c.YouTubeURL); kind == CustomContentYouTubePlaylist {
			return id
		}
	}
	return ""
}

// ParseYouTubeURL recognises youtube.com watch/playlist links and youtu.be
// short links. A list parameter wins over v. An unrecognised URL yields "".
func ParseYouTubeURL(raw string) (CustomContentType, string) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", ""
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "youtube.com"):
		q := u.Query()
		if list := q.Get("list"); list != "" {
			return CustomContentYouTubePlaylist, list
		}
		if v := q.Get("v"); v != "" {
			return CustomContentYouTubeVideo, v
		}
	case host == "youtu.be":
		if id := strings.TrimPrefix(u.Path, "/"); id != "" {
			return CustomContentYouTubeVideo, id
		}
	}
	return "", ""
}
