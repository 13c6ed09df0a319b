// Package mailer defines the outbound email surface of the auth core.
package mailer

import (
	"context"

	"go.uber.org/zap"

	"authcore/internal/logger"
)

// Sender delivers account notification emails. Callers treat delivery as
// fire-and-forget; failures must not fail the triggering request.
type Sender interface {
	SendWelcome(ctx context.Context, email string) error
	SendPasswordChanged(ctx context.Context, email string) error
	SendNewDeviceLogin(ctx context.Context, email, browser, ip string) error
}

// LogSender writes a log line instead of sending mail. It is the default
// Sender until an SMTP or provider integration is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendWelcome(ctx context.Context, email string) error {
	s.log.Info("mail: welcome", zap.String("to", logger.MaskEmail(email)))
	return nil
}

func (s *LogSender) SendPasswordChanged(ctx context.Context, email string) error {
	s.log.Info("mail: password changed", zap.String("to", logger.MaskEmail(email)))
	return nil
}

func (s *LogSender) SendNewDeviceLogin(ctx context.Context, email, browser, ip string) error {
	s.log.Info("mail: new device login",
		zap.String("to", logger.MaskEmail(email)),
		zap.String("browser", browser),
		zap.String("ip", ip))
	return nil
}
