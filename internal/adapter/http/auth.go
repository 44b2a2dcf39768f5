package http

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/bnema/transcoder/internal/adapter/http/middleware"
	"github.com/bnema/transcoder/internal/adapter/http/ratelimit"
	"github.com/bnema/transcoder/internal/infrastructure/logger"
)

type Authenticator interface {
	Authenticate(token string) error
}

// bearerToken extracts the credential of an "Authorization: Bearer <key>"
// header. The scheme is matched case-insensitively.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthMiddleware rejects requests without the API key. Clients that keep
// failing are blocked by limiter before their key is even checked.
func AuthMiddleware(auth Authenticator, limiter *ratelimit.FailureLimiter, trustProxy bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := middleware.ClientIP(r, trustProxy)

		if ok, wait := limiter.Allow(clientID); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "Too many failed authentication attempts.")
			return
		}

		token := bearerToken(r)
		if err := auth.Authenticate(token); err != nil {
			logger.Warn.Printf("auth: failed (header present: %t) ip=%s", r.Header.Get("Authorization") != "", logger.SanitizeForLog(clientID))
			if block := limiter.Fail(clientID); block > 0 {
				logger.Warn.Printf("auth: blocking ip=%s for %s", logger.SanitizeForLog(clientID), block)
			}
			writeError(w, http.StatusUnauthorized, "Missing or invalid Authorization header (use: Bearer <API_KEY>).")
			return
		}

		limiter.Reset(clientID)
		logger.Debug.Printf("auth: ok ip=%s", logger.SanitizeForLog(clientID))
		next(w, r)
	}
}
