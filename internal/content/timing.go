package content

import (
	"time"

	"github.com/advenue/screen-server/internal/model"
)

// YouTubeMinDisplay is the floor for embedded YouTube items; the embed is
// expected to signal its own end before this.
const YouTubeMinDisplay = 60 * time.Second

// DurationFor returns how long item stays on screen before the player
// advances.
func DurationFor(item *model.DisplayItem, settings *model.ScreenSettings) time.Duration {
	rotation := settings.RotationInterval()

	switch {
	case item.IsYouTube():
		return max(rotation, YouTubeMinDisplay)
	case item.IsVideoAd():
		video := time.Duration(item.Media.Duration * float64(time.Second))
		switch settings.VideoPlaybackMode {
		case model.PlaybackComplete:
			if video > 0 {
				return video
			}
			return rotation
		case model.PlaybackRotation:
			return rotation
		default:
			return max(video, rotation)
		}
	default:
		return rotation
	}
}
