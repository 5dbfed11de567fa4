package content

import (
	"math/rand/v2"

	"github.com/advenue/screen-server/internal/model"
)

// MixedCycleSlots is the length of one interleaved ads/custom cycle.
const MixedCycleSlots = 20

const (
	adsOnlyRatio    = 95
	customOnlyRatio = 5
)

// Order turns a selected set into the sequence a screen plays. rng is used by
// random rotation; nil falls back to the package generator.
func Order(items []model.DisplayItem, settings *model.ScreenSettings, rng *rand.Rand) []model.DisplayItem {
	var seq []model.DisplayItem

	switch settings.RotationMode {
	case model.RotationRandom:
		seq = append([]model.DisplayItem(nil), items...)
		shuffle(seq, rng)
	case model.RotationWeighted:
		seq = weight(items, settings)
	default:
		seq = append([]model.DisplayItem(nil), items...)
	}

	if settings.ContentMode == model.ContentModeMixed {
		return Interleave(seq, settings.AdsContentRatio)
	}
	return seq
}

// weight repeats each campaign's ad items priority times, campaign by
// campaign in first-appearance order. Custom items follow once each.
func weight(items []model.DisplayItem, settings *model.ScreenSettings) []model.DisplayItem {
	var order []string
	var custom []model.DisplayItem
	byCamp := make(map[string][]model.DisplayItem)
	for _, it := range items {
		if !it.IsAd() {
			custom = append(custom, it)
			continue
		}
		if _, seen := byCamp[it.CampaignID]; !seen {
			order = append(order, it.CampaignID)
		}
		byCamp[it.CampaignID] = append(byCamp[it.CampaignID], it)
	}

	out := make([]model.DisplayItem, 0, len(items))
	for _, id := range order {
		for n := settings.Priority(id); n > 0; n-- {
			out = append(out, byCamp[id]...)
		}
	}
	return append(out, custom...)
}

// Interleave builds the mixed-mode cycle. Slot i is an ad slot iff
// i*100/MixedCycleSlots < ratio; each side is cycled with its own index.
// An empty side, or a ratio at either extreme, collapses to one side.
func Interleave(seq []model.DisplayItem, ratio int) []model.DisplayItem {
	var ads, custom []model.DisplayItem
	for _, it := range seq {
		if it.IsAd() {
			ads = append(ads, it)
		} else {
			custom = append(custom, it)
		}
	}

	switch {
	case len(ads) == 0:
		return custom
	case len(custom) == 0:
		return ads
	case ratio >= adsOnlyRatio:
		return ads
	case ratio <= customOnlyRatio:
		return custom
	}

	out := make([]model.DisplayItem, 0, MixedCycleSlots)
	adIdx, customIdx := 0, 0
	for i := 0; i < MixedCycleSlots; i++ {
		if i*100/MixedCycleSlots < ratio {
			out = append(out, ads[adIdx%len(ads)])
			adIdx++
		} else {
			out = append(out, custom[customIdx%len(custom)])
			customIdx++
		}
	}
	return out
}

func shuffle(seq []model.DisplayItem, rng *rand.Rand) {
	swap := func(i, j int) { seq[i], seq[j] = seq[j], seq[i] }
	if rng == nil {
		rand.Shuffle(len(seq), swap)
		return
	}
	rng.Shuffle(len(seq), swap)
}
