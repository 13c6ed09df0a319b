// Package logger provides the application's structured logger, built on zap.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger. When development is true the logger
// uses the human-readable console encoder and debug level instead.
func New(development bool) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// MaskEmail masks the local part of an email for log lines ("a***@example.com").
// Log payloads never carry full PII.
func MaskEmail(email string) string {
	for i, r := range email {
		if r == '@' {
			if i == 0 {
				return "***" + email[i:]
			}
			return email[:1] + "***" + email[i:]
		}
	}
	return "***"
}
