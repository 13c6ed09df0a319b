// Package audit records security-relevant account events. Recording is
// best-effort: a failed write is logged and never surfaces to the caller.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"authcore/internal/audit/domain"
	auditrepo "authcore/internal/audit/repository"
)

// Sink accepts audit events. Record must never block the calling request
// path on persistence failures.
type Sink interface {
	Record(ctx context.Context, userID, action, ip, metadata string)
}

// Logger is a Sink backed by the audit repository.
type Logger struct {
	repo auditrepo.Repository
	log  *zap.Logger
}

// NewLogger returns a Sink persisting to repo. repo may be nil; then events
// are dropped.
func NewLogger(repo auditrepo.Repository, log *zap.Logger) *Logger {
	return &Logger{repo: repo, log: log}
}

func (l *Logger) Record(ctx context.Context, userID, action, ip, metadata string) {
	if l.repo == nil {
		return
	}
	if ip == "" {
		ip = "unknown"
	}
	e := &domain.Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, e); err != nil {
		l.log.Warn("audit event dropped",
			zap.String("action", action),
			zap.Error(err))
	}
}

// Nop is a Sink that discards every event.
type Nop struct{}

func (Nop) Record(context.Context, string, string, string, string) {}
