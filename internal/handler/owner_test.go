package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/advenue/screen-server/internal/errors"
	"github.com/advenue/screen-server/internal/model"
)

type screenList struct {
	Screens []model.ScreenView `json:"screens"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

func TestOwnerHandler_ListScreens(t *testing.T) {
	s := newTestServer(t)
	s.pair(t, "owner-1")
	s.pair(t, "owner-1")
	s.pair(t, "owner-2")

	rec := s.do(t, http.MethodGet, "/v1/owners/owner-1/screens", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[screenList](t, rec)
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Screens, 2)
	assert.Equal(t, DefaultLimit, list.Limit)

	rec = s.do(t, http.MethodGet, "/v1/owners/owner-1/screens?limit=1&offset=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[screenList](t, rec)
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Screens, 1)

	rec = s.do(t, http.MethodGet, "/v1/owners/owner-1/screens?offset=10", nil, nil)
	list = decode[screenList](t, rec)
	assert.NotNil(t, list.Screens)
	assert.Empty(t, list.Screens)

	rec = s.do(t, http.MethodGet, "/v1/owners/nobody/screens", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[screenList](t, rec).Total)
}

func TestOwnerHandler_RenameScreen(t *testing.T) {
	s := newTestServer(t)
	screenID, _ := s.pair(t, "owner-1")
	path := "/v1/owners/owner-1/screens/" + screenID

	rec := s.do(t, http.MethodPatch, path, map[string]string{"customName": "  Lobby  "}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Lobby", decode[model.ScreenView](t, rec).CustomName)

	rec = s.do(t, http.MethodPatch, "/v1/owners/owner-2/screens/"+screenID, map[string]string{"customName": "Mine"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOwnerHandler_Settings(t *testing.T) {
	s := newTestServer(t)
	screenID, _ := s.pair(t, "owner-1")
	path := "/v1/owners/owner-1/screens/" + screenID + "/settings"

	t.Run("defaults before first save", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		got := decode[model.ScreenSettings](t, rec)
		assert.Equal(t, model.ContentModeAdsOnly, got.ContentMode)
		assert.Equal(t, model.DefaultAdsContentRatio, got.AdsContentRatio)
	})

	t.Run("update", func(t *testing.T) {
		in := model.DefaultSettings(screenID)
		in.RotationMode = model.RotationWeighted
		in.CampaignPriorities = map[string]int{"c1": 3}

		rec := s.do(t, http.MethodPut, path, in, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = s.do(t, http.MethodGet, path, nil, nil)
		got := decode[model.ScreenSettings](t, rec)
		assert.Equal(t, model.RotationWeighted, got.RotationMode)
		assert.Equal(t, 3, got.CampaignPriorities["c1"])
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		in := model.DefaultSettings(screenID)
		in.AdsContentRatio = 150

		rec := s.do(t, http.MethodPut, path, in, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(apperrors.ErrCodeValidation), decode[map[string]any](t, rec)["code"])
	})

	t.Run("other owner", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/owners/owner-2/screens/"+screenID+"/settings", nil, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestOwnerHandler_Unpair(t *testing.T) {
	s := newTestServer(t)
	screenID, token := s.pair(t, "owner-1")

	rec := s.do(t, http.MethodDelete, "/v1/owners/owner-2/screens/"+screenID, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/owners/owner-1/screens/"+screenID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]bool](t, rec)["success"])

	rec = s.do(t, http.MethodGet, "/v1/screens/"+screenID+"/sequence", nil, bearer(token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/owners/owner-1/screens/"+screenID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
