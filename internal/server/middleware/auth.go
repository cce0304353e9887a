package middleware

import (
	"net/http"
	"strings"

	"tenancy-control-plane/backend/internal/platform/apperr"
	"tenancy-control-plane/backend/internal/platform/httpx"
)

const bearerPrefix = "bearer "

// TokenValidator validates a bearer access token and returns the caller's user id.
type TokenValidator interface {
	ValidateAccess(token string) (userID string, err error)
}

// Authenticate validates the Bearer token, when present, and stores the caller's user id in
// the request context. Requests without a valid token pass through anonymously; RequireUser
// rejects them on routes that need a caller. A nil validator authenticates nobody.
func Authenticate(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r.Header.Get("Authorization"))
			if token == "" || tokens == nil {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := tokens.ValidateAccess(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// RequireUser rejects requests without an authenticated caller with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			httpx.WriteError(w, apperr.New(apperr.CodeUnauthenticated, "missing or invalid authorization"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
