// Package metrics exposes Prometheus counters for the auth core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts login attempts by outcome
	// (success, invalid_credentials, disabled, two_factor_required, two_factor_failed).
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authcore",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	// TokenRefreshes counts refresh attempts by outcome
	// (success, invalid, revoked, fingerprint_mismatch, disabled).
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authcore",
		Name:      "token_refreshes_total",
		Help:      "Refresh token rotations by outcome.",
	}, []string{"outcome"})

	// BlacklistFailClosed counts blacklist lookups that were denied because
	// the backing store was unreachable.
	BlacklistFailClosed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "authcore",
		Name:      "blacklist_fail_closed_total",
		Help:      "Blacklist lookups resolved to revoked due to store errors.",
	})

	// SessionsRevoked counts revoked sessions by reason (logout, self_service, expired_sweep).
	SessionsRevoked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authcore",
		Name:      "sessions_revoked_total",
		Help:      "Sessions deactivated by reason.",
	}, []string{"reason"})
)
