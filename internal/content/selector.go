// Package content decides what a screen shows, in which order, and for how
// long. Everything here is a pure function of settings and a catalog snapshot.
package content

import (
	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/model"
)

// SelectItems computes the displayable set for a screen. Campaigns keep the
// catalog's order; custom items keep the order of settings.CustomContentIDs.
// Ids that no longer resolve are dropped.
func SelectItems(settings *model.ScreenSettings, campaigns []model.Campaign, customByID map[string]model.CustomContent) []model.DisplayItem {
	items := make([]model.DisplayItem, 0)

	if settings.AdsEnabled() {
		for _, c := range candidateCampaigns(settings, campaigns) {
			for _, m := range c.Media {
				items = append(items, model.NewAdItem(c.ID, m))
			}
		}
	}

	if settings.CustomEnabled() {
		for _, id := range settings.CustomContentIDs {
			cc, ok := customByID[id]
			if !ok {
				log.Debug().Str("screenId", settings.ScreenID).Str("contentId", id).Msg("custom content no longer exists")
				continue
			}
			if item, ok := customItem(&cc); ok {
				items = append(items, item)
			}
		}
	}

	return items
}

func candidateCampaigns(settings *model.ScreenSettings, campaigns []model.Campaign) []model.Campaign {
	var selected map[string]struct{}
	if !settings.DisplayAll {
		selected = make(map[string]struct{}, len(settings.SelectedCampaignIDs))
		for _, id := range settings.SelectedCampaignIDs {
			selected[id] = struct{}{}
		}
	}

	var categories map[string]struct{}
	if len(settings.SelectedCategories) > 0 {
		categories = make(map[string]struct{}, len(settings.SelectedCategories))
		for _, c := range settings.SelectedCategories {
			categories[c] = struct{}{}
		}
	}

	out := make([]model.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if selected != nil {
			if _, ok := selected[c.ID]; !ok {
				continue
			}
		}
		if categories != nil {
			if c.Category == nil {
				continue
			}
			if _, ok := categories[*c.Category]; !ok {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func customItem(cc *model.CustomContent) (model.DisplayItem, bool) {
	switch cc.Type {
	case model.CustomContentMenu:
		ref := ""
		if cc.MediaID != nil {
			ref = *cc.MediaID
		}
		return model.NewMenuItem(cc.ID, cc.Title, ref), true
	case model.CustomContentYouTubeVideo:
		if v := cc.VideoRef(); v != "" {
			return model.NewYouTubeVideoItem(cc.ID, cc.Title, v), true
		}
	case model.CustomContentYouTubePlaylist:
		if p := cc.PlaylistRef(); p != "" {
			return model.NewYouTubePlaylistItem(cc.ID, cc.Title, p), true
		}
	}
	log.Debug().Str("contentId", cc.ID).Str("type", string(cc.Type)).Msg("custom content has no playable reference")
	return model.DisplayItem{}, false
}
