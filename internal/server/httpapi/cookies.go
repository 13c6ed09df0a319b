package httpapi

import (
	"net/http"
	"time"

	"authcore/internal/token"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"

	// The refresh cookie is scoped to the one route that consumes it so the
	// long-lived token never rides along on ordinary requests.
	refreshCookiePath = "/v1/auth/refresh"
)

// setAuthCookies attaches the issued pair as HttpOnly cookies. SameSite is
// Strict on both; Secure tracks the deployment environment so local
// plain-HTTP development still works.
func (h *Handler) setAuthCookies(w http.ResponseWriter, pair *token.Pair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearAuthCookies expires both auth cookies.
func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	expired := time.Unix(0, 0)
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    "",
		Path:     "/",
		Expires:  expired,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		Expires:  expired,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// refreshTokenFrom pulls the refresh token from its cookie, falling back to
// the request body field for API clients.
func refreshTokenFrom(r *http.Request, bodyToken string) string {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return bodyToken
}
