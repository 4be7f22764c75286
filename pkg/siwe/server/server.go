// Package server is the relying-party side of Sign-In with Ethereum: a chi
// router issuing nonces, verifying signed messages and tracking sessions
// with a cookie.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletkit/pkg/logging"
	"github.com/DeBrosOfficial/walletkit/pkg/metrics"
	"github.com/DeBrosOfficial/walletkit/pkg/siwe/session"
)

// Verification outcomes recorded in metrics.
const (
	resultOK           = "ok"
	resultBadMessage   = "bad_message"
	resultBadNonce     = "bad_nonce"
	resultBadSignature = "bad_signature"
	resultStoreError   = "store_error"
)

// Config configures a Server.
type Config struct {
	ListenAddr   string
	Domain       string // expected message domain; not checked when empty
	SessionTTL   time.Duration
	CookieName   string
	SecureCookie bool
	Store        session.Store
	Logger       *logging.ColoredLogger
	Metrics      *metrics.Metrics
}

// Server serves the SIWE endpoints.
type Server struct {
	cfg    Config
	store  session.Store
	logger *logging.ColoredLogger
	router chi.Router
	now    func() time.Time
}

// New builds a Server with its routes mounted.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "siwe_session"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	s := &Server{
		cfg:    cfg,
		store:  cfg.Store,
		logger: logging.OrNop(cfg.Logger),
		router: chi.NewRouter(),
		now:    time.Now,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.cfg.Metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Handle("/metrics", s.cfg.Metrics.Handler())

	r.Get("/nonce", s.handleNonce)
	r.Post("/verify", s.handleVerify)
	r.Get("/me", s.handleMe)
	r.Get("/logout", s.handleLogout)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.purgeLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.ComponentInfo(logging.ComponentSIWE, "SIWE server listening", zap.String("addr", s.cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.ComponentInfo(logging.ComponentSIWE, "Shutting down SIWE server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.Purge(ctx)
			if err != nil {
				s.logger.ComponentWarn(logging.ComponentSIWE, "Session purge failed", zap.Error(err))
			} else if n > 0 {
				s.logger.ComponentDebug(logging.ComponentSIWE, "Purged expired sessions", zap.Int("count", n))
			}
		}
	}
}

// load returns the session named by the request cookie, or a new unsaved
// one.
func (s *Server) load(r *http.Request) (session.Session, error) {
	if c, err := r.Cookie(s.cfg.CookieName); err == nil && c.Value != "" {
		sess, ok, err := s.store.Get(r.Context(), c.Value)
		if err != nil {
			return session.Session{}, err
		}
		if ok {
			return sess, nil
		}
	}
	return session.Session{ID: session.NewID()}, nil
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, sess session.Session) error {
	sess.ExpiresAt = s.now().Add(s.cfg.SessionTTL)
	if err := s.store.Save(r.Context(), sess); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"message": msg})
}
