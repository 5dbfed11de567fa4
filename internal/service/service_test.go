package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/advenue/screen-server/internal/catalog"
	"github.com/advenue/screen-server/internal/impression"
	"github.com/advenue/screen-server/internal/model"
	"github.com/advenue/screen-server/internal/playback"
	"github.com/advenue/screen-server/internal/repository"
	"github.com/advenue/screen-server/internal/sse"
	"github.com/advenue/screen-server/internal/store"
	"github.com/advenue/screen-server/internal/util"
)

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

// idleAfterFunc never fires, so players only move when told to.
func idleAfterFunc(time.Duration, func()) playback.Timer {
	return idleTimer{}
}

type harness struct {
	now time.Time

	requestRepo  repository.PairingRequestRepository
	screenRepo   repository.ScreenRepository
	settingsRepo repository.SettingsRepository
	catalogRepo  *repository.MemoryCatalog
	cache        *catalog.Cache
	broker       *sse.Broker
	players      *playback.Manager

	pairing  *PairingService
	screens  *ScreenService
	settings *SettingsService
	display  *DisplayService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return h.now }

	kv := store.NewMemoryStore()
	h.requestRepo = repository.NewPairingRequestRepository(kv)
	h.screenRepo = repository.NewScreenRepository(kv)
	h.settingsRepo = repository.NewSettingsRepository(kv)
	h.catalogRepo = repository.NewMemoryCatalog()
	h.cache = catalog.NewCache(h.catalogRepo, time.Minute)

	h.broker = sse.NewBroker(nil)
	t.Cleanup(h.broker.Close)

	sealer, err := util.NewEphemeralSealer()
	require.NoError(t, err)

	h.settings = NewSettingsService(h.settingsRepo, h.screenRepo, h.broker)
	h.settings.now = clock

	h.players = playback.NewManager(h.settings, h.cache, impression.NewLogSink(),
		playback.WithAfterFunc(idleAfterFunc),
		playback.WithClock(clock),
		playback.WithDebounce(0),
		playback.WithSeed(1),
	)
	t.Cleanup(h.players.StopAll)
	h.settings.AttachPlayers(h.players)

	h.screens = NewScreenService(h.screenRepo, h.settingsRepo, h.players, h.broker)
	h.screens.now = clock

	h.pairing = NewPairingService(h.requestRepo, h.screens, h.broker, sealer)
	h.pairing.now = clock

	h.display = NewDisplayService(h.players)
	return h
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

// pair runs the whole handshake and returns the token the device picked up.
func (h *harness) pair(t *testing.T, screenID, ownerID string) string {
	t.Helper()
	ctx := context.Background()

	ticket, err := h.pairing.CreateRequest(ctx, screenID, "")
	require.NoError(t, err)

	res, err := h.pairing.Validate(ctx, ticket.ScreenID, ticket.Code, ownerID, "venue-1")
	require.NoError(t, err)
	require.True(t, res.Success, "pairing failed: %v", res.Error)

	status, err := h.pairing.Status(ctx, ticket.ScreenID, ticket.Code)
	require.NoError(t, err)
	require.NotEmpty(t, status.SessionToken)
	return status.SessionToken
}

func (h *harness) addCampaign(t *testing.T, id string, media ...model.MediaFile) {
	t.Helper()
	h.catalogRepo.PutCampaign(model.Campaign{
		ID:     id,
		Name:   id,
		Status: model.CampaignStatusActive,
		Media:  media,
	})
	_, err := h.cache.Refresh(context.Background())
	require.NoError(t, err)
}

func image(id string) model.MediaFile {
	return model.MediaFile{ID: id, Type: model.MediaTypeImage, URL: "https://cdn.example.com/" + id}
}
