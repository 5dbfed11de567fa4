package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/advenue/screen-server/internal/catalog"
	"github.com/advenue/screen-server/internal/impression"
	"github.com/advenue/screen-server/internal/middleware"
	"github.com/advenue/screen-server/internal/playback"
	"github.com/advenue/screen-server/internal/repository"
	"github.com/advenue/screen-server/internal/service"
	"github.com/advenue/screen-server/internal/sse"
	"github.com/advenue/screen-server/internal/store"
	"github.com/advenue/screen-server/internal/util"
)

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

func idleAfterFunc(time.Duration, func()) playback.Timer {
	return idleTimer{}
}

type testServer struct {
	router      chi.Router
	catalogRepo *repository.MemoryCatalog
	cache       *catalog.Cache
	pairing     *service.PairingService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	kv := store.NewMemoryStore()
	screenRepo := repository.NewScreenRepository(kv)
	settingsRepo := repository.NewSettingsRepository(kv)
	catalogRepo := repository.NewMemoryCatalog()
	cache := catalog.NewCache(catalogRepo, time.Minute)

	broker := sse.NewBroker(nil)
	t.Cleanup(broker.Close)

	sealer, err := util.NewEphemeralSealer()
	require.NoError(t, err)

	settingsSvc := service.NewSettingsService(settingsRepo, screenRepo, broker)
	players := playback.NewManager(settingsSvc, cache, impression.NewLogSink(),
		playback.WithAfterFunc(idleAfterFunc),
		playback.WithDebounce(0),
		playback.WithSeed(1),
	)
	t.Cleanup(players.StopAll)
	settingsSvc.AttachPlayers(players)

	screenSvc := service.NewScreenService(screenRepo, settingsRepo, players, broker)
	pairingSvc := service.NewPairingService(repository.NewPairingRequestRepository(kv), screenSvc, broker, sealer)
	displaySvc := service.NewDisplayService(players)

	auth := middleware.NewScreenAuthMiddleware(screenSvc)

	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Mount("/pairing", NewPairingHandler(pairingSvc, nil, nil).Routes())
		r.Mount("/screens", NewScreenHandler(screenSvc, displaySvc, NewEventsHandler(broker, players), auth.Handler).Routes())
		r.Mount("/owners", NewOwnerHandler(screenSvc, settingsSvc).Routes())
	})
	r.Mount("/admin", NewAdminHandler(cache, catalogRepo, players, broker).Routes())

	return &testServer{router: r, catalogRepo: catalogRepo, cache: cache, pairing: pairingSvc}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// wrongCode keeps the shape of code but uses a character codes never contain.
func wrongCode(code string) string {
	b := []byte(code)
	b[0] = '0'
	return string(b)
}

// pair runs the device and owner sides of pairing and returns the screen id
// and the picked-up token.
func (s *testServer) pair(t *testing.T, ownerID string) (string, string) {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/v1/pairing/request", map[string]string{}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ticket := decode[service.PairingTicket](t, rec)

	rec = s.do(t, http.MethodPost, "/v1/pairing/validate", map[string]string{
		"screenId": ticket.ScreenID,
		"code":     ticket.Code,
		"ownerId":  ownerID,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/pairing/status/"+ticket.ScreenID, nil, map[string]string{
		pairingCodeHeader: ticket.Code,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decode[service.PairingStatus](t, rec)
	require.True(t, status.Paired)
	require.NotEmpty(t, status.SessionToken)

	return ticket.ScreenID, status.SessionToken
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
