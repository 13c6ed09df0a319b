package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"authcore/internal/audit"
	auditrepo "authcore/internal/audit/repository"
	"authcore/internal/auth"
	"authcore/internal/blacklist"
	"authcore/internal/cache"
	"authcore/internal/config"
	"authcore/internal/db"
	"authcore/internal/logger"
	"authcore/internal/mailer"
	"authcore/internal/security"
	"authcore/internal/server/httpapi"
	sessionrepo "authcore/internal/session/repository"
	sessionsvc "authcore/internal/session/service"
	"authcore/internal/token"
	twofactorrepo "authcore/internal/twofactor/repository"
	twofactorsvc "authcore/internal/twofactor/service"
	userrepo "authcore/internal/user/repository"
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		zlog.Fatal("postgres", zap.Error(err))
	}
	defer pool.Close()

	store, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		zlog.Fatal("redis", zap.Error(err))
	}
	defer store.Close()

	encryptor, err := security.NewEncryptor(cfg.TwoFactorEncryptionKey)
	if err != nil {
		zlog.Fatal("encryptor", zap.Error(err))
	}
	fingerprints := security.NewFingerprinter(cfg.FingerprintIPv4Bits, cfg.FingerprintIPv6Bits)
	hasher := security.NewHasher(cfg.BcryptCost)

	users := userrepo.NewPostgresRepository(pool)
	sessions := sessionsvc.NewService(sessionrepo.NewPostgresRepository(pool), zlog)
	bl := blacklist.NewService(store, cfg.StoreTimeout, zlog)
	tokens := token.NewService(
		cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer,
		cfg.AccessTTL(), cfg.RefreshTTL(),
		fingerprints, users, bl,
	)
	twoFactor := twofactorsvc.NewService(
		twofactorrepo.NewPostgresRepository(pool), encryptor, cfg.TwoFactorIssuer,
	)
	sink := audit.NewLogger(auditrepo.NewPostgresRepository(pool), zlog)
	mail := mailer.NewLogSender(zlog)

	authSvc := auth.NewService(
		users, hasher, tokens, sessions, twoFactor,
		bl, store, fingerprints, sink, mail, zlog,
	)

	handler := httpapi.NewHandler(authSvc, tokens, sessions, twoFactor, bl, zlog, cfg.IsProduction())
	srv := httpapi.NewServer(cfg.HTTPAddr, handler, zlog)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		if err != nil {
			zlog.Fatal("serve", zap.Error(err))
		}
	case sig := <-quit:
		zlog.Info("shutting down", zap.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zlog.Error("shutdown", zap.Error(err))
		}
	}
}
