// Package httpapi is the HTTP edge of the auth core: request decoding,
// cookie handling, and the auth middleware. All business rules live in the
// services it delegates to.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"authcore/internal/auth"
	"authcore/internal/blacklist"
	sessionsvc "authcore/internal/session/service"
	"authcore/internal/token"
	twofactorsvc "authcore/internal/twofactor/service"
	userdomain "authcore/internal/user/domain"
)

// Handler holds the service dependencies of every route.
type Handler struct {
	auth          *auth.Service
	tokens        *token.Service
	sessions      *sessionsvc.Service
	twoFactor     *twofactorsvc.Service
	blacklist     *blacklist.Service
	log           *zap.Logger
	secureCookies bool
}

func NewHandler(
	authSvc *auth.Service,
	tokens *token.Service,
	sessions *sessionsvc.Service,
	twoFactor *twofactorsvc.Service,
	bl *blacklist.Service,
	log *zap.Logger,
	secureCookies bool,
) *Handler {
	return &Handler{
		auth:          authSvc,
		tokens:        tokens,
		sessions:      sessions,
		twoFactor:     twoFactor,
		blacklist:     bl,
		log:           log,
		secureCookies: secureCookies,
	}
}

func (h *Handler) reqCtx(r *http.Request) token.RequestContext {
	return token.RequestContext{IP: clientIP(r), UserAgent: r.UserAgent()}
}

// clientIP returns the requesting address, preferring the first
// X-Forwarded-For hop set by a fronting proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(ip)
		}
		return strings.TrimSpace(fwd)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type twoFactorLoginRequest struct {
	Ticket string `json:"ticket"`
	Code   string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type enableTwoFactorRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type sessionResponse struct {
	ID         string     `json:"id"`
	IPAddress  string     `json:"ipAddress"`
	Browser    string     `json:"browser"`
	OS         string     `json:"os"`
	Device     string     `json:"device"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.Register(r.Context(), req.Email, req.Password, h.reqCtx(r))
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	h.setAuthCookies(w, res.Tokens)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user": userResponse{ID: res.User.ID, Email: res.User.Email, Role: res.User.Role},
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.Password, h.reqCtx(r))
	if errors.Is(err, auth.ErrTwoFactorRequired) {
		writeJSON(w, http.StatusOK, map[string]any{
			"twoFactorRequired": true,
			"ticket":            res.TwoFactorTicket,
		})
		return
	}
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	h.setAuthCookies(w, res.Tokens)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": userResponse{ID: res.User.ID, Email: res.User.Email, Role: res.User.Role},
	})
}

func (h *Handler) loginTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req twoFactorLoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.CompleteTwoFactor(r.Context(), req.Ticket, req.Code, h.reqCtx(r))
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	h.setAuthCookies(w, res.Tokens)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": userResponse{ID: res.User.ID, Email: res.User.Email, Role: res.User.Role},
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	// The body is optional here: cookie-based clients send none. Decode
	// whatever arrives so chunked requests without a Content-Length still work.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	raw := refreshTokenFrom(r, req.RefreshToken)
	if raw == "" {
		writeUnauthorized(w)
		return
	}
	pair, err := h.auth.Refresh(r.Context(), raw, h.reqCtx(r))
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, map[string]any{
		"expiresAt": pair.AccessExpiresAt,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	// Retire the presented pair. The refresh jti is recovered from the
	// cookie when one rides along; a missing or invalid refresh cookie
	// does not block logout.
	jtis := []string{claims.ID}
	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		if refreshClaims, err := h.tokens.VerifyRefresh(c.Value); err == nil && refreshClaims.ExpiresAt != nil {
			jtis = append(jtis, refreshClaims.ID)
			if remaining := time.Until(refreshClaims.ExpiresAt.Time); remaining > ttl {
				ttl = remaining
			}
		}
	}

	if err := h.auth.Logout(r.Context(), claims.Subject, jtis, ttl); err != nil {
		h.log.Error("logout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.clearAuthCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.auth.ChangePassword(r.Context(), claims.Subject, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeAuthError(w, err)
		return
	}
	h.clearAuthCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	sessions, err := h.sessions.ListForUser(r.Context(), claims.Subject)
	if err != nil {
		h.log.Error("list sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:         s.ID,
			IPAddress:  s.IPAddress,
			Browser:    s.Browser,
			OS:         s.OS,
			Device:     s.Device,
			LastUsedAt: s.LastUsedAt,
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	err := h.sessions.Revoke(r.Context(), claims.Subject, r.PathValue("id"))
	if errors.Is(err, sessionsvc.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.log.Error("revoke session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setupTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	secret, uri, err := h.twoFactor.GenerateSecret(claims.Subject)
	if err != nil {
		h.log.Error("two-factor setup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	png, err := h.twoFactor.QRCodePNG(uri)
	if err != nil {
		h.log.Error("two-factor qr failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"secret": secret,
		"uri":    uri,
		"qrPng":  base64.StdEncoding.EncodeToString(png),
	})
}

func (h *Handler) enableTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	var req enableTwoFactorRequest
	if !decode(w, r, &req) {
		return
	}
	codes, err := h.twoFactor.Enable(r.Context(), claims.Subject, req.Secret, req.Code)
	if err != nil {
		h.writeTwoFactorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recoveryCodes": codes})
}

func (h *Handler) verifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	var req codeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.twoFactor.Verify(r.Context(), claims.Subject, req.Code); err != nil {
		h.writeTwoFactorError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) disableTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	var req codeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.twoFactor.Disable(r.Context(), claims.Subject, req.Code); err != nil {
		h.writeTwoFactorError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recoveryCodes(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	var req codeRequest
	if !decode(w, r, &req) {
		return
	}
	codes, err := h.twoFactor.RecoveryCodes(r.Context(), claims.Subject, req.Code)
	if err != nil {
		h.writeTwoFactorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recoveryCodes": codes})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeAuthError maps orchestrator errors to responses. Everything that
// failed a credential or token check collapses to the one generic 401.
func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "password too short")
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenRevoked),
		errors.Is(err, auth.ErrFingerprintMismatch),
		errors.Is(err, auth.ErrAccountDisabled),
		errors.Is(err, auth.ErrTwoFactorInvalidCode),
		errors.Is(err, auth.ErrRecoveryCodeInvalid):
		writeUnauthorized(w)
	case errors.Is(err, userdomain.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "invalid email address")
	default:
		h.log.Error("auth request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) writeTwoFactorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, twofactorsvc.ErrInvalidCode),
		errors.Is(err, twofactorsvc.ErrRecoveryCodeInvalid),
		errors.Is(err, twofactorsvc.ErrNotEnrolled):
		writeUnauthorized(w)
	default:
		h.log.Error("two-factor request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "unauthorized")
}
