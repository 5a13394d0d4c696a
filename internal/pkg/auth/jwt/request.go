package jwt

import (
	"net/http"
	"strings"
)

// CookieName is the HttpOnly cookie carrying the session token for browser clients.
const CookieName = "session"

// ExtractToken finds the session token on r. The Authorization header wins over
// the cookie; the token query parameter is accepted for WebSocket clients that
// cannot set headers.
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return r.URL.Query().Get("token")
}
