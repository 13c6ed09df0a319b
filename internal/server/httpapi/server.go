package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the HTTP front of the auth core.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

func NewServer(addr string, h *Handler, log *zap.Logger) *Server {
	mux := http.NewServeMux()

	// Public routes.
	mux.HandleFunc("POST /v1/auth/register", h.register)
	mux.HandleFunc("POST /v1/auth/login", h.login)
	mux.HandleFunc("POST /v1/auth/login/2fa", h.loginTwoFactor)
	mux.HandleFunc("POST /v1/auth/refresh", h.refresh)
	mux.HandleFunc("GET /healthz", h.health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Routes behind the access token.
	authed := h.Authenticate()
	mux.Handle("POST /v1/auth/logout", authed(http.HandlerFunc(h.logout)))
	mux.Handle("POST /v1/auth/password", authed(http.HandlerFunc(h.changePassword)))
	mux.Handle("GET /v1/sessions", authed(http.HandlerFunc(h.listSessions)))
	mux.Handle("DELETE /v1/sessions/{id}", authed(http.HandlerFunc(h.revokeSession)))
	mux.Handle("POST /v1/2fa/setup", authed(http.HandlerFunc(h.setupTwoFactor)))
	mux.Handle("POST /v1/2fa/enable", authed(http.HandlerFunc(h.enableTwoFactor)))
	mux.Handle("POST /v1/2fa/verify", authed(http.HandlerFunc(h.verifyTwoFactor)))
	mux.Handle("POST /v1/2fa/disable", authed(http.HandlerFunc(h.disableTwoFactor)))
	mux.Handle("POST /v1/2fa/recovery-codes", authed(http.HandlerFunc(h.recoveryCodes)))

	root := Chain(mux, Recover(log), Logging(log))

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           root,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		log: log,
	}
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", zap.String("addr", s.srv.Addr))
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
