// Package token mints, verifies, and rotates the access/refresh JWT pair.
package token

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"authcore/internal/security"
	"authcore/internal/user/domain"
)

// Sentinel errors for token verification and rotation. The transport layer
// collapses all of them into one generic unauthorized outcome; the split
// exists for internal logging and tests.
var (
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrFingerprintMismatch = errors.New("token fingerprint mismatch")
	ErrAccountDisabled     = errors.New("account disabled")
)

// Claims is the signed claim set carried by both access and refresh tokens.
// Claim names are part of the wire contract: sub, role, tokenVersion, jti,
// fingerprint, iat, exp.
type Claims struct {
	jwt.RegisteredClaims
	Role         string `json:"role"`
	TokenVersion int64  `json:"tokenVersion"`
	Fingerprint  string `json:"fingerprint"`
}

// RequestContext carries the client signals a token is bound to.
type RequestContext struct {
	IP        string
	UserAgent string
}

// Pair is one issued access/refresh token pair.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessJTI        string
	RefreshJTI       string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// UserStore is the minimal user lookup the refresh path needs.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Revocations is the blacklist surface the refresh path needs. IsBlacklisted
// is fail-closed by contract: on store trouble it reports true.
type Revocations interface {
	IsBlacklisted(ctx context.Context, jti string) bool
	Add(ctx context.Context, jti string, ttl time.Duration) error
}

// Service issues and rotates token pairs. Access and refresh tokens are
// signed with different secrets so a leak of one cannot forge the other.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	fingerprints  *security.Fingerprinter
	users         UserStore
	revocations   Revocations
}

// NewService returns a token Service. Secret strength and distinctness are
// enforced by config at boot; this constructor trusts its inputs.
func NewService(
	accessSecret, refreshSecret, issuer string,
	accessTTL, refreshTTL time.Duration,
	fingerprints *security.Fingerprinter,
	users UserStore,
	revocations Revocations,
) *Service {
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		fingerprints:  fingerprints,
		users:         users,
		revocations:   revocations,
	}
}

// AccessTTL returns the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// Generate mints a fresh access/refresh pair for user. Both tokens share one
// fingerprint computed from reqCtx; each gets its own random jti.
func (s *Service) Generate(user *domain.User, reqCtx RequestContext) (*Pair, error) {
	fingerprint := s.fingerprints.Fingerprint(reqCtx.UserAgent, reqCtx.IP)
	now := time.Now().UTC()

	accessJTI, err := security.NewJTI()
	if err != nil {
		return nil, err
	}
	refreshJTI, err := security.NewJTI()
	if err != nil {
		return nil, err
	}

	accessExp := now.Add(s.accessTTL)
	access, err := s.sign(s.accessSecret, user, accessJTI, fingerprint, now, accessExp)
	if err != nil {
		return nil, err
	}
	refreshExp := now.Add(s.refreshTTL)
	refresh, err := s.sign(s.refreshSecret, user, refreshJTI, fingerprint, now, refreshExp)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessJTI:        accessJTI,
		RefreshJTI:       refreshJTI,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *Service) sign(secret []byte, user *domain.User, jti, fingerprint string, now, exp time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		Fingerprint:  fingerprint,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess checks the access token's signature and expiry only. No store
// lookup happens here: this is the latency-critical path, and callers consult
// the blacklist by jti themselves.
func (s *Service) VerifyAccess(tokenString string) (*Claims, error) {
	return s.parse(tokenString, s.accessSecret)
}

// VerifyRefresh checks the refresh token's signature and expiry only.
// Refresh performs the full rotation checks; this exists for callers that
// need the claims of an already-presented token (e.g. logout).
func (s *Service) VerifyRefresh(tokenString string) (*Claims, error) {
	return s.parse(tokenString, s.refreshSecret)
}

func (s *Service) parse(tokenString string, secret []byte) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Refresh validates refreshToken against the caller's context and, on
// success, rotates it: the old refresh token is blacklisted for its remaining
// lifetime and a brand-new pair is minted. Refresh tokens are single-use; the
// presented token is never reissued.
func (s *Service) Refresh(ctx context.Context, refreshToken string, reqCtx RequestContext) (*Pair, *domain.User, error) {
	claims, err := s.parse(refreshToken, s.refreshSecret)
	if err != nil {
		return nil, nil, err
	}

	fingerprint := s.fingerprints.Fingerprint(reqCtx.UserAgent, reqCtx.IP)
	if subtle.ConstantTimeCompare([]byte(fingerprint), []byte(claims.Fingerprint)) != 1 {
		return nil, nil, ErrFingerprintMismatch
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrInvalidToken
	}
	if claims.TokenVersion != user.TokenVersion {
		return nil, nil, ErrTokenRevoked
	}
	if !user.IsActive {
		return nil, nil, ErrAccountDisabled
	}
	if s.revocations.IsBlacklisted(ctx, claims.ID) {
		return nil, nil, ErrTokenRevoked
	}

	// Single-use enforcement: retire the consumed jti for whatever lifetime
	// it had left. Best-effort; the epoch and fingerprint checks still stand
	// if this write is lost.
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			_ = s.revocations.Add(ctx, claims.ID, remaining)
		}
	}

	pair, err := s.Generate(user, reqCtx)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}
