package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/advenue/screen-server/internal/errors"
	"github.com/advenue/screen-server/internal/model"
	"github.com/advenue/screen-server/internal/service"
)

type contextKey string

const ScreenContextKey contextKey = "screen"

func GetScreen(ctx context.Context) *model.ScreenView {
	if screen, ok := ctx.Value(ScreenContextKey).(*model.ScreenView); ok {
		return screen
	}
	return nil
}

type TokenValidator interface {
	ValidateToken(ctx context.Context, screenID, token string) (service.TokenResult, error)
}

// ScreenAuthMiddleware authenticates a paired screen by its session token.
// The screen id comes from the {screenId} route parameter. Every accepted
// request is also the screen's heartbeat.
type ScreenAuthMiddleware struct {
	validator TokenValidator
}

func NewScreenAuthMiddleware(validator TokenValidator) *ScreenAuthMiddleware {
	return &ScreenAuthMiddleware{validator: validator}
}

func (m *ScreenAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		screenID := chi.URLParam(r, "screenId")
		token := extractToken(r)
		if screenID == "" || token == "" {
			writeError(w, apperrors.Unauthorized("Missing session token"))
			return
		}

		result, err := m.validator.ValidateToken(r.Context(), screenID, token)
		if err != nil {
			log.Error().Err(err).Str("screenId", screenID).Msg("screen auth: validation failed")
			writeError(w, apperrors.Internal("Authentication failed"))
			return
		}

		if !result.Valid {
			writeError(w, result.Error)
			return
		}

		ctx := context.WithValue(r.Context(), ScreenContextKey, result.Screen)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken reads a bearer token, falling back to the token query
// parameter for EventSource clients that cannot set headers.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return r.URL.Query().Get("token")
}
