// Package auth coordinates the login, logout, and registration flows across
// the token, session, two-factor, and blacklist services. It owns the
// per-user revocation epoch: a logout or password change bumps the epoch and
// every refresh token minted before the bump dies on its next use.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"authcore/internal/audit"
	"authcore/internal/blacklist"
	"authcore/internal/cache"
	"authcore/internal/logger"
	"authcore/internal/mailer"
	"authcore/internal/metrics"
	"authcore/internal/security"
	sessiondomain "authcore/internal/session/domain"
	sessionsvc "authcore/internal/session/service"
	"authcore/internal/token"
	twofactorsvc "authcore/internal/twofactor/service"
	userdomain "authcore/internal/user/domain"
	userrepo "authcore/internal/user/repository"
)

const (
	minPasswordLen = 8

	// Pending two-factor tickets are short-lived: the user has this long to
	// finish the second step before the credential check must be repeated.
	twoFactorTicketTTL = 5 * time.Minute
	ticketKeyPrefix    = "auth:2fa:pending:"
)

// pendingTwoFactor is the state parked in the key-value store between the
// credential check and the two-factor step. The fingerprint pins the second
// step to the client that passed the first.
type pendingTwoFactor struct {
	UserID      string `json:"userId"`
	Fingerprint string `json:"fingerprint"`
}

// LoginResult is the outcome of a successful credential flow. When the
// account has two-factor enabled, Login instead returns a TwoFactorTicket
// together with ErrTwoFactorRequired and the remaining fields are nil.
type LoginResult struct {
	User            *userdomain.User
	Tokens          *token.Pair
	Session         *sessiondomain.Session
	TwoFactorTicket string
}

// Service is the auth orchestrator.
type Service struct {
	users        userrepo.Repository
	hasher       *security.Hasher
	tokens       *token.Service
	sessions     *sessionsvc.Service
	twoFactor    *twofactorsvc.Service
	blacklist    *blacklist.Service
	tickets      cache.Store
	fingerprints *security.Fingerprinter
	audit        audit.Sink
	mail         mailer.Sender
	log          *zap.Logger
}

func NewService(
	users userrepo.Repository,
	hasher *security.Hasher,
	tokens *token.Service,
	sessions *sessionsvc.Service,
	twoFactor *twofactorsvc.Service,
	bl *blacklist.Service,
	tickets cache.Store,
	fingerprints *security.Fingerprinter,
	sink audit.Sink,
	mail mailer.Sender,
	log *zap.Logger,
) *Service {
	return &Service{
		users:        users,
		hasher:       hasher,
		tokens:       tokens,
		sessions:     sessions,
		twoFactor:    twoFactor,
		blacklist:    bl,
		tickets:      tickets,
		fingerprints: fingerprints,
		audit:        sink,
		mail:         mail,
		log:          log,
	}
}

// Register creates a new account and logs it in immediately.
func (s *Service) Register(ctx context.Context, email, password string, reqCtx token.RequestContext) (*LoginResult, error) {
	email = userdomain.NormalizeEmail(email)
	if err := userdomain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         userdomain.RoleUser,
		TokenVersion: 0,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.audit.Record(ctx, user.ID, audit.ActionRegister, reqCtx.IP, "")
	if err := s.mail.SendWelcome(ctx, user.Email); err != nil {
		s.log.Warn("welcome mail failed", zap.Error(err))
	}

	return s.issue(ctx, user, reqCtx)
}

// Login runs the credential check and, unless a second factor is required,
// issues a token pair and records a session. With two-factor enabled it
// parks a pending ticket and returns it alongside ErrTwoFactorRequired; the
// caller completes the flow with CompleteTwoFactor.
func (s *Service) Login(ctx context.Context, email, password string, reqCtx token.RequestContext) (*LoginResult, error) {
	email = userdomain.NormalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		// Burn a comparison anyway so absent and present accounts take
		// comparable time.
		_ = s.hasher.Compare(security.DummyHash, password)
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		s.audit.Record(ctx, "", audit.ActionLoginFailure, reqCtx.IP, "unknown account")
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		s.audit.Record(ctx, user.ID, audit.ActionLoginFailure, reqCtx.IP, "bad password")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		metrics.LoginAttempts.WithLabelValues("disabled").Inc()
		s.audit.Record(ctx, user.ID, audit.ActionLoginFailure, reqCtx.IP, "account disabled")
		return nil, ErrAccountDisabled
	}

	enabled, err := s.twoFactor.IsEnabled(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("two-factor lookup: %w", err)
	}
	if enabled {
		ticket, err := s.createTicket(ctx, user.ID, reqCtx)
		if err != nil {
			return nil, err
		}
		metrics.LoginAttempts.WithLabelValues("two_factor_required").Inc()
		return &LoginResult{TwoFactorTicket: ticket}, ErrTwoFactorRequired
	}

	return s.issue(ctx, user, reqCtx)
}

// CompleteTwoFactor finishes a login that Login parked behind a pending
// ticket. The ticket is single use and bound to the client fingerprint
// captured at the credential step.
func (s *Service) CompleteTwoFactor(ctx context.Context, ticket, code string, reqCtx token.RequestContext) (*LoginResult, error) {
	raw, err := s.tickets.Get(ctx, ticketKeyPrefix+ticket)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			metrics.LoginAttempts.WithLabelValues("two_factor_failed").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("ticket lookup: %w", err)
	}
	var pending pendingTwoFactor
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}

	fingerprint := s.fingerprints.Fingerprint(reqCtx.UserAgent, reqCtx.IP)
	if subtle.ConstantTimeCompare([]byte(fingerprint), []byte(pending.Fingerprint)) != 1 {
		metrics.LoginAttempts.WithLabelValues("two_factor_failed").Inc()
		s.audit.Record(ctx, pending.UserID, audit.ActionLoginFailure, reqCtx.IP, "two-factor fingerprint mismatch")
		return nil, ErrInvalidCredentials
	}

	if err := s.twoFactor.Verify(ctx, pending.UserID, code); err != nil {
		metrics.LoginAttempts.WithLabelValues("two_factor_failed").Inc()
		s.audit.Record(ctx, pending.UserID, audit.ActionLoginFailure, reqCtx.IP, "two-factor code rejected")
		switch {
		case errors.Is(err, twofactorsvc.ErrRecoveryCodeInvalid):
			return nil, ErrRecoveryCodeInvalid
		case errors.Is(err, twofactorsvc.ErrInvalidCode), errors.Is(err, twofactorsvc.ErrNotEnrolled):
			return nil, ErrTwoFactorInvalidCode
		}
		return nil, fmt.Errorf("two-factor verify: %w", err)
	}

	// Single use: a verified ticket cannot be replayed.
	if err := s.tickets.Delete(ctx, ticketKeyPrefix+ticket); err != nil {
		s.log.Warn("pending two-factor ticket not deleted", zap.Error(err))
	}

	user, err := s.users.GetByID(ctx, pending.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	s.audit.Record(ctx, user.ID, audit.ActionLoginTwoFactor, reqCtx.IP, "")
	return s.issue(ctx, user, reqCtx)
}

// Refresh rotates a refresh token into a new pair and touches the session.
func (s *Service) Refresh(ctx context.Context, refreshToken string, reqCtx token.RequestContext) (*token.Pair, error) {
	pair, user, err := s.tokens.Refresh(ctx, refreshToken, reqCtx)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues(refreshOutcome(err)).Inc()
		return nil, err
	}
	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	s.sessions.Touch(ctx, user.ID)
	s.audit.Record(ctx, user.ID, audit.ActionTokenRefresh, reqCtx.IP, "")
	return pair, nil
}

// Logout revokes everything the user holds: the revocation epoch is bumped
// (killing every outstanding refresh token on its next use), all sessions
// are deactivated, and the presented pair's jtis are blacklisted so even the
// still-unexpired access token dies immediately at middleware checks. The
// epoch bump and session sweep are the authoritative actions; the blacklist
// write is best-effort hardening.
func (s *Service) Logout(ctx context.Context, userID string, jtis []string, ttl time.Duration) error {
	if _, err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	if len(jtis) > 0 && ttl > 0 {
		if err := s.blacklist.AddMany(ctx, jtis, ttl); err != nil {
			s.log.Warn("logout blacklist write failed", zap.Error(err))
		}
	}
	s.audit.Record(ctx, userID, audit.ActionLogout, "", "")
	return nil
}

// ChangePassword verifies the current password and swaps in the new one.
// The hash update, epoch bump, and history append commit in one database
// transaction; afterwards every existing session and refresh token is dead.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	if len(next) < minPasswordLen {
		return ErrWeakPassword
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.ChangePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		s.log.Warn("session revoke after password change failed", zap.Error(err))
	}

	s.audit.Record(ctx, userID, audit.ActionPasswordChange, "", "")
	if err := s.mail.SendPasswordChanged(ctx, user.Email); err != nil {
		s.log.Warn("password change mail failed", zap.Error(err))
	}
	return nil
}

// issue mints a token pair and records the login session. The session's
// expiry mirrors the refresh token's TTL.
func (s *Service) issue(ctx context.Context, user *userdomain.User, reqCtx token.RequestContext) (*LoginResult, error) {
	pair, err := s.tokens.Generate(user, reqCtx)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}
	session, err := s.sessions.Create(ctx, user.ID, reqCtx.IP, reqCtx.UserAgent, user.TokenVersion, s.tokens.RefreshTTL())
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.audit.Record(ctx, user.ID, audit.ActionLoginSuccess, reqCtx.IP, "")
	s.log.Info("login",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
		zap.String("browser", session.Browser))
	if err := s.mail.SendNewDeviceLogin(ctx, user.Email, session.Browser, reqCtx.IP); err != nil {
		s.log.Warn("new device mail failed", zap.Error(err))
	}

	return &LoginResult{User: user, Tokens: pair, Session: session}, nil
}

func (s *Service) createTicket(ctx context.Context, userID string, reqCtx token.RequestContext) (string, error) {
	id, err := security.NewJTI()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(pendingTwoFactor{
		UserID:      userID,
		Fingerprint: s.fingerprints.Fingerprint(reqCtx.UserAgent, reqCtx.IP),
	})
	if err != nil {
		return "", err
	}
	if err := s.tickets.Set(ctx, ticketKeyPrefix+id, string(payload), twoFactorTicketTTL); err != nil {
		return "", fmt.Errorf("store pending ticket: %w", err)
	}
	return id, nil
}

func refreshOutcome(err error) string {
	switch {
	case errors.Is(err, token.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, token.ErrFingerprintMismatch):
		return "fingerprint_mismatch"
	case errors.Is(err, token.ErrAccountDisabled):
		return "disabled"
	default:
		return "invalid"
	}
}
