// Sweeper periodically deactivates expired sessions. The sweep is one
// conditional bulk update, so running several sweepers against the same
// database is safe.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"authcore/internal/config"
	"authcore/internal/db"
	"authcore/internal/logger"
	sessionrepo "authcore/internal/session/repository"
	sessionsvc "authcore/internal/session/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(!cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		zlog.Info("sweeper: shutting down")
		cancel()
	}()

	openCtx, openCancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.Open(openCtx, cfg.DatabaseURL)
	openCancel()
	if err != nil {
		zlog.Fatal("postgres", zap.Error(err))
	}
	defer pool.Close()

	sessions := sessionsvc.NewService(sessionrepo.NewPostgresRepository(pool), zlog)

	zlog.Info("sweeper started", zap.Duration("interval", cfg.SessionSweepInterval))
	ticker := time.NewTicker(cfg.SessionSweepInterval)
	defer ticker.Stop()

	for {
		if n, err := sessions.CleanupExpired(ctx); err != nil {
			zlog.Error("sweep failed", zap.Error(err))
		} else if n > 0 {
			zlog.Info("swept expired sessions", zap.Int64("count", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
