package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"gorm.io/gorm"

	"mealplanner/internal/auth"
	"mealplanner/internal/config"
	"mealplanner/internal/handlers"
	applog "mealplanner/internal/log"
	"mealplanner/internal/mealplan"
	"mealplanner/internal/metrics"
	"mealplanner/internal/store"
)

// Config captures the runtime configuration for the HTTP server.
type Config struct {
	Addr       string
	Session    SessionConfig
	Database   *gorm.DB
	JWT        config.JWTConfig
	LoginLimit handlers.LoginLimit
}

// SessionConfig controls session behavior for the HTTP server.
type SessionConfig struct {
	Lifetime     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

// Server wraps an http.Server and exposes helpers for bootstrapping a
// production-ready web service.
type Server struct {
	config     Config
	httpServer *http.Server
	metrics    *metrics.Metrics
}

// New builds a new Server using the provided configuration.
func New(cfg Config) (*Server, error) {
	applog.Debug(context.Background(), "initializing server",
		"addr", cfg.Addr,
		"sessionLifetime", cfg.Session.Lifetime.String(),
		"sessionCookie", cfg.Session.CookieName,
	)

	sessionCfg := cfg.Session
	if sessionCfg.Lifetime <= 0 {
		applog.Debug(context.Background(), "session lifetime not provided, using default")
		sessionCfg.Lifetime = 12 * time.Hour
	}
	if strings.TrimSpace(sessionCfg.CookieName) == "" {
		applog.Debug(context.Background(), "session cookie name not provided, using default")
		sessionCfg.CookieName = "mealplanner_session"
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = sessionCfg.Lifetime
	sessionManager.Cookie.Name = sessionCfg.CookieName
	sessionManager.Cookie.Domain = sessionCfg.CookieDomain
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = sessionCfg.CookieSecure

	applog.Debug(context.Background(), "session manager configured",
		"cookieName", sessionCfg.CookieName,
		"cookieDomain", sessionCfg.CookieDomain,
		"cookieSecure", sessionCfg.CookieSecure,
	)

	collector, err := metrics.New()
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	var issuer *auth.TokenIssuer
	if strings.TrimSpace(cfg.JWT.Secret) != "" {
		issuer, err = auth.NewTokenIssuer(cfg.JWT)
		if err != nil {
			return nil, fmt.Errorf("create token issuer: %w", err)
		}
	} else {
		applog.Warn(context.Background(), "jwt secret not configured, bearer tokens are disabled")
	}

	var planner *mealplan.Service
	if cfg.Database != nil {
		planner = mealplan.NewService(store.New(cfg.Database), mealplan.Options{Recorder: collector})
	}

	handlers.Configure(handlers.Dependencies{
		Sessions:   sessionManager,
		Database:   cfg.Database,
		Planner:    planner,
		Tokens:     issuer,
		Metrics:    collector,
		LoginLimit: cfg.LoginLimit,
	})

	applog.Debug(context.Background(), "handler dependencies configured")

	handler := handlers.RequestID(sessionManager.LoadAndSave(newRouter(collector)))

	applog.Debug(context.Background(), "http handler chain prepared")

	return &Server{
		config:  cfg,
		metrics: collector,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Start begins serving HTTP traffic using the underlying http.Server.
func (s *Server) Start() error {
	applog.Debug(context.Background(), "server starting listener", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server with a timeout.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	applog.Debug(ctx, "server initiating graceful shutdown")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the configured HTTP handler, enabling integration tests.
func (s *Server) Handler() http.Handler {
	applog.Debug(context.Background(), "server handler requested")
	return s.httpServer.Handler
}
