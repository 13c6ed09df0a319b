// Package blacklist is the per-token revocation store keyed by jti.
//
// Every revocation-correctness-critical lookup here is fail-closed: when the
// backing store cannot answer, the token is treated as revoked. This trades
// availability for revocation correctness, uniformly across call sites.
package blacklist

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"authcore/internal/cache"
	"authcore/internal/metrics"
)

const keyPrefix = "blacklist:token:"

const revokedMarker = "revoked"

// Service tracks revoked token identifiers until their natural expiry.
// Entries self-expire with the store TTL; no sweep job exists or is needed.
type Service struct {
	store   cache.Store
	timeout time.Duration
	log     *zap.Logger
}

// NewService returns a blacklist over store. timeout bounds every store
// call; on timeout a lookup resolves to revoked.
func NewService(store cache.Store, timeout time.Duration, log *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Service{store: store, timeout: timeout, log: log}
}

// Add revokes jti for ttl. Callers pass the token's remaining validity, so
// the entry never outlives the signed token itself.
func (s *Service) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired; expiry is terminal on its own
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.Set(ctx, keyPrefix+jti, revokedMarker, ttl)
}

// AddMany revokes every jti in one store round trip (bulk logout-all).
func (s *Service) AddMany(ctx context.Context, jtis []string, ttl time.Duration) error {
	if len(jtis) == 0 || ttl <= 0 {
		return nil
	}
	keys := make([]string, len(jtis))
	for i, jti := range jtis {
		keys[i] = keyPrefix + jti
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.SetMany(ctx, keys, revokedMarker, ttl)
}

// IsBlacklisted reports whether jti is revoked. A store failure means the
// token cannot be confirmed non-revoked, so it reports true.
func (s *Service) IsBlacklisted(ctx context.Context, jti string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.store.Get(ctx, keyPrefix+jti)
	if err == nil {
		return true
	}
	if errors.Is(err, cache.ErrNotFound) {
		return false
	}
	metrics.BlacklistFailClosed.Inc()
	if s.log != nil {
		s.log.Warn("blacklist lookup failed, failing closed", zap.Error(err))
	}
	return true
}

// Remove clears jti from the blacklist. Administrative escape hatch; normal
// revocation is irreversible.
func (s *Service) Remove(ctx context.Context, jti string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.Delete(ctx, keyPrefix+jti)
}
