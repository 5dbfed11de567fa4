package middleware

import (
	"net/http"
	"strconv"

	"github.com/advenue/screen-server/internal/audit"
	apperrors "github.com/advenue/screen-server/internal/errors"
	"github.com/advenue/screen-server/internal/util"
)

// OperatorAuthMiddleware guards operator endpoints with HTTP basic auth
// against a bcrypt hash. Without a configured hash every request is refused.
type OperatorAuthMiddleware struct {
	passwordHash string
	limiter      *LoginRateLimiter
}

func NewOperatorAuthMiddleware(passwordHash string) *OperatorAuthMiddleware {
	return &OperatorAuthMiddleware{
		passwordHash: passwordHash,
		limiter:      NewLoginRateLimiter(),
	}
}

func (m *OperatorAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := audit.ClientIP(r)

		if m.limiter.Blocked(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(int(loginWindowDuration.Seconds())))
			writeError(w, apperrors.RateLimitExceeded())
			return
		}

		if m.passwordHash == "" {
			writeError(w, apperrors.Forbidden("Operator access is disabled"))
			return
		}

		_, password, ok := r.BasicAuth()
		if !ok || !util.CheckPasswordHash(password, m.passwordHash) {
			m.limiter.Fail(ip)
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventOperatorAuthFail,
				Details: map[string]interface{}{"path": r.URL.Path},
			})
			w.Header().Set("WWW-Authenticate", `Basic realm="screen-server"`)
			writeError(w, apperrors.Unauthorized("Operator credentials required"))
			return
		}

		m.limiter.Reset(ip)
		next.ServeHTTP(w, r)
	})
}
