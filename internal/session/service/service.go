// Package service implements per-device session tracking: one row per login,
// multi-device listing, and revocation.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"authcore/internal/metrics"
	"authcore/internal/session/domain"
	"authcore/internal/session/repository"
)

// ErrSessionNotFound is returned when a session does not exist or does not
// belong to the caller. Ownership mismatches deliberately look identical to
// missing rows so session ids of other users cannot be probed.
var ErrSessionNotFound = errors.New("session not found")

// Service manages session records.
type Service struct {
	repo repository.Repository
	log  *zap.Logger
}

// NewService returns a session Service.
func NewService(repo repository.Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create records a new session for a login. expiresIn is the refresh token
// TTL; the session expires with the token that backs it.
func (s *Service) Create(ctx context.Context, userID, ip, userAgent string, tokenVersion int64, expiresIn time.Duration) (*domain.Session, error) {
	now := time.Now().UTC()
	browser, osName, device := ParseUserAgent(userAgent)
	sess := &domain.Session{
		ID:           uuid.New().String(),
		UserID:       userID,
		IPAddress:    ip,
		Browser:      browser,
		OS:           osName,
		Device:       device,
		TokenVersion: tokenVersion,
		IsActive:     true,
		LastUsedAt:   &now,
		CreatedAt:    now,
		ExpiresAt:    now.Add(expiresIn),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListForUser returns the user's active sessions (self-service device list).
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	return s.repo.ListActiveByUser(ctx, userID)
}

// Revoke deactivates one of the user's sessions. A session that does not
// exist, is already inactive, or belongs to someone else all yield
// ErrSessionNotFound.
func (s *Service) Revoke(ctx context.Context, userID, sessionID string) error {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil || !sess.IsActive || sess.UserID != userID {
		return ErrSessionNotFound
	}
	if err := s.repo.Deactivate(ctx, sessionID); err != nil {
		return err
	}
	metrics.SessionsRevoked.WithLabelValues("self_service").Inc()
	return nil
}

// RevokeAll deactivates every active session the user has.
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	n, err := s.repo.DeactivateAllByUser(ctx, userID)
	if err != nil {
		return err
	}
	metrics.SessionsRevoked.WithLabelValues("logout").Add(float64(n))
	return nil
}

// Touch refreshes last_used_at on the user's most recent active session.
// Best-effort bookkeeping for the device list; tokens do not carry a session
// id, so this is a heuristic, not an auth decision.
func (s *Service) Touch(ctx context.Context, userID string) {
	if err := s.repo.TouchMostRecent(ctx, userID); err != nil && s.log != nil {
		s.log.Debug("session touch failed", zap.Error(err))
	}
}

// CleanupExpired deactivates all expired sessions. Pure conditional bulk
// update: idempotent, safe to run concurrently from multiple instances.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.SessionsRevoked.WithLabelValues("expired_sweep").Add(float64(n))
		if s.log != nil {
			s.log.Info("expired sessions deactivated", zap.Int64("count", n))
		}
	}
	return n, nil
}
