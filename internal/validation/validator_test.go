package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/advenue/screen-server/internal/errors"
	"github.com/advenue/screen-server/internal/model"
)

type renameRequest struct {
	ScreenID string `json:"screenId" validate:"required"`
	Name     string `json:"customName" validate:"max=5"`
}

func TestStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		assert.Nil(t, Struct(&renameRequest{ScreenID: "s", Name: "ok"}))
	})

	t.Run("reports json field names", func(t *testing.T) {
		err := Struct(&renameRequest{Name: "too long"})
		require.NotNil(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, err.Code)
		assert.Contains(t, err.Message, "screenId is required")
		assert.Contains(t, err.Message, "customName must be at most 5 characters")

		details, ok := err.Details.(map[string]interface{})
		require.True(t, ok)
		assert.Len(t, details["fields"], 2)
	})
}

func TestScreenSettingsRules(t *testing.T) {
	valid := model.DefaultSettings("s")
	assert.Nil(t, Struct(&valid))

	tests := []struct {
		name   string
		mutate func(*model.ScreenSettings)
		field  string
	}{
		{"ratio above 100", func(s *model.ScreenSettings) { s.AdsContentRatio = 101 }, "adsContentRatio"},
		{"negative ratio", func(s *model.ScreenSettings) { s.AdsContentRatio = -1 }, "adsContentRatio"},
		{"zero rotation", func(s *model.ScreenSettings) { s.RotationFrequency = 0 }, "rotationFrequency"},
		{"unknown content mode", func(s *model.ScreenSettings) { s.ContentMode = "both" }, "contentMode"},
		{"unknown rotation mode", func(s *model.ScreenSettings) { s.RotationMode = "shuffle" }, "rotationMode"},
		{"unknown playback mode", func(s *model.ScreenSettings) { s.VideoPlaybackMode = "loop" }, "videoPlaybackMode"},
		{"priority out of range", func(s *model.ScreenSettings) { s.CampaignPriorities = map[string]int{"c": 11} }, "campaignPriorities[c]"},
		{"unknown category", func(s *model.ScreenSettings) { s.SelectedCategories = []string{"Cars"} }, "selectedCategories[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := model.DefaultSettings("s")
			tt.mutate(&s)

			err := Struct(&s)
			require.NotNil(t, err)
			fields := err.Details.(map[string]interface{})["fields"].([]FieldError)
			require.Len(t, fields, 1)
			assert.Equal(t, tt.field, fields[0].Field)
		})
	}
}
