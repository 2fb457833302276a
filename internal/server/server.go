package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/studyflow/internal/shared"
)

const (
	DefaultPrefix     = "/api/v1"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	devSecret         = "studyflow-dev-secret"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Option configures a [Server].
type Option func(*Server)

// WithBcryptCost overrides the password hashing cost. Tests use [bcrypt.MinCost].
func WithBcryptCost(cost int) Option {
	return func(s *Server) { s.bcryptCost = cost }
}

// WithClock replaces the token clock.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithoutSeed starts the server with no users, communities or posts.
func WithoutSeed() Option {
	return func(s *Server) { s.seed = false }
}

// WithMiddleware appends middleware to the API routes, after auth-independent
// middleware and before routing.
func WithMiddleware(mw ...Middleware) Option {
	return func(s *Server) { s.middleware = append(s.middleware, mw...) }
}

// Server is the in-memory StudyFlow API.
type Server struct {
	cfg        shared.ServerConfig
	prefix     string
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
	seed       bool
	middleware []Middleware
	now        func() time.Time
	logger     *log.Logger

	store        *store
	accessEpoch  atomic.Int64
	sessionEpoch atomic.Int64
	refreshes    atomic.Int64

	handler http.Handler
}

// New builds a server from cfg. Zero values fall back to development defaults.
func New(cfg shared.ServerConfig, logger *log.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &Server{
		cfg:        cfg,
		prefix:     "/" + strings.Trim(cfg.Prefix, "/"),
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  time.Duration(cfg.AccessTTLSeconds) * time.Second,
		refreshTTL: time.Duration(cfg.RefreshTTLSeconds) * time.Second,
		bcryptCost: bcrypt.DefaultCost,
		seed:       true,
		now:        time.Now,
		logger:     shared.WithLogger(logger, "component", "server"),
		store:      newStore(),
	}
	if s.prefix == "/" {
		s.prefix = DefaultPrefix
	}
	if len(s.secret) == 0 {
		s.logger.Warn("no jwt_secret configured, using the development secret")
		s.secret = []byte(devSecret)
	}
	if s.accessTTL <= 0 {
		s.accessTTL = defaultAccessTTL
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = defaultRefreshTTL
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.seed {
		if err := s.seedData(); err != nil {
			return nil, fmt.Errorf("failed to seed server: %w", err)
		}
	}

	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route(s.prefix, func(api chi.Router) {
		for _, mw := range s.middleware {
			api.Use(mw)
		}

		api.Route("/auth", func(a chi.Router) {
			a.Post("/register", s.handleRegister)
			a.Post("/login", s.handleLogin)
			a.Post("/logout", s.handleLogout)
			a.Post("/refresh", s.handleRefresh)
			a.Post("/request-password-reset", s.handleRequestReset)
			a.Post("/verify-reset-code", s.handleVerifyReset)
			a.Post("/reset-password", s.handleResetPassword)
		})

		api.Group(func(authed chi.Router) {
			authed.Use(s.requireAuth)

			authed.Route("/users", func(u chi.Router) {
				u.Get("/me", s.handleMe)
				u.Put("/me", s.handleUpdateMe)
				u.Post("/change-password", s.handleChangePassword)
			})

			authed.Route("/posts", func(p chi.Router) {
				p.Get("/feed", s.handleFeed)
				p.Get("/explore", s.handleExplore)
				p.Post("/", s.handleCreatePost)
				p.Put("/{id}", s.handleUpdatePost)
				p.Delete("/{id}", s.handleDeletePost)
				p.Post("/{id}/like", s.handleLike)
				p.Delete("/{id}/like", s.handleUnlike)
				p.Get("/{id}/comments", s.handleListComments)
				p.Post("/{id}/comments", s.handleCreateComment)
				p.Get("/{id}/posts", s.handleCommunityPosts)
			})

			authed.Route("/communities", func(c chi.Router) {
				c.Get("/", s.handleListCommunities)
				c.Post("/", s.handleCreateCommunity)
				c.Get("/{id}", s.handleGetCommunity)
				c.Post("/{id}/join", s.handleJoin)
				c.Post("/{id}/leave", s.handleLeave)
			})
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept", "X-Request-ID"},
		AllowCredentials: true,
	})

	return otelhttp.NewHandler(c.Handler(r), "studyflow-api")
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Prefix is the path every API route is mounted under.
func (s *Server) Prefix() string {
	return s.prefix
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mock api listening", "addr", srv.Addr, "prefix", s.prefix)
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

	s.logger.Info("shutting down mock api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// RefreshCount reports how many times /auth/refresh has been called.
func (s *Server) RefreshCount() int {
	return int(s.refreshes.Load())
}

// ExpireAccessTokens revokes every issued access token. Refresh tokens stay
// valid, so clients can recover through /auth/refresh.
func (s *Server) ExpireAccessTokens() {
	s.accessEpoch.Add(1)
}

// ExpireSessions revokes every issued access and refresh token.
func (s *Server) ExpireSessions() {
	s.accessEpoch.Add(1)
	s.sessionEpoch.Add(1)
}

// ResetCode returns the pending password reset code for email, as the real
// service would have emailed it.
func (s *Server) ResetCode(email string) (string, bool) {
	return s.store.resetCode(email)
}
