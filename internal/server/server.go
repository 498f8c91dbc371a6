// Package server wires handlers, middleware, and routes, and owns the HTTP
// server lifecycle. It is the composition root: every dependency is
// assembled here, so main.go stays minimal and the wiring is testable.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/authhub/internal/auth"
	"github.com/sakif/authhub/internal/config"
	"github.com/sakif/authhub/internal/handler"
	"github.com/sakif/authhub/internal/identity"
	"github.com/sakif/authhub/internal/middleware"
	sqliteRepo "github.com/sakif/authhub/internal/repository/sqlite"
	"github.com/sakif/authhub/internal/service"
	"github.com/sakif/authhub/internal/webhook"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret signs session tokens. Required.
	JWTSecret string

	// ProviderURL and ProviderAnonKey point at the external identity
	// provider. Required unless trusted-header mode is on or AuthRequired
	// is off.
	ProviderURL     string
	ProviderAnonKey string

	// TrustedEmailHeader switches authentication to proxy-asserted
	// identities; TrustedNameHeader optionally carries the display name.
	TrustedEmailHeader string
	TrustedNameHeader  string

	// AuthRequired is the global auth mode; when false, signup gating is
	// skipped.
	AuthRequired bool

	// WebhookURL receives signup notifications when set.
	WebhookURL string
}

// Server carries the router and the resources it owns.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New builds the full dependency graph and the route table.
//
// Fail-fast: a missing JWT secret or missing identity-provider settings are
// configuration errors that abort startup rather than surfacing as runtime
// 500s.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.ProviderURL == "" && cfg.TrustedEmailHeader == "" && cfg.AuthRequired {
		return nil, errors.New("server: identity provider URL is required (set PROVIDER_URL, or enable trusted-header mode)")
	}
	if cfg.ProviderURL != "" && cfg.ProviderAnonKey == "" {
		return nil, errors.New("server: identity provider anon key is required (set PROVIDER_ANON_KEY)")
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens)
	return s, nil
}

// setupRoutes assembles services and handlers and mounts the route table.
func (s *Server) setupRoutes(tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	var gateway identity.Gateway
	if s.config.ProviderURL != "" {
		gateway = identity.NewHTTPGateway(s.config.ProviderURL, s.config.ProviderAnonKey, s.logger)
	} else {
		// No provider configured (trusted-header or open mode): password
		// sign-in has nothing to delegate to and always fails closed.
		gateway = identity.Disabled{}
	}

	cfgStore := config.NewStore(config.Defaults())
	notifier := webhook.New(s.config.WebhookURL, s.logger)
	passwords := auth.NewPasswordService()

	authSvc := service.NewAuthService(s.db, gateway, tokens, passwords, cfgStore, notifier, s.logger)
	authSvc.AuthRequired = s.config.AuthRequired

	authn := auth.NewAuthenticator(tokens, s.db)
	authn.TrustedEmailHeader = s.config.TrustedEmailHeader
	authn.TrustedNameHeader = s.config.TrustedNameHeader
	authn.EnsureTrustedUser = authSvc.EnsureTrustedUser

	authHandler := handler.NewAuthHandler(authSvc, authn, s.logger)
	adminHandler := handler.NewAdminHandler(authSvc, cfgStore, s.db, s.logger)

	s.router.Route("/api/v1/auths", func(r chi.Router) {
		// Public entry points.
		r.Post("/signin", authHandler.HandleSignIn)
		r.Post("/signup", authHandler.HandleSignUp)

		// Session required.
		r.Group(func(r chi.Router) {
			r.Use(authn.RequireUser)
			r.Get("/", authHandler.HandleSession)
			r.Post("/update/profile", authHandler.HandleUpdateProfile)
			r.Post("/update/password", authHandler.HandleUpdatePassword)
			r.Post("/api_key", authHandler.HandleCreateAPIKey)
			r.Get("/api_key", authHandler.HandleGetAPIKey)
			r.Delete("/api_key", authHandler.HandleDeleteAPIKey)
			r.Get("/admin/details", adminHandler.HandleAdminDetails)
		})

		// Admin required.
		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAdmin)
			r.Post("/add", adminHandler.HandleAddUser)
			r.Get("/admin/config", adminHandler.HandleGetConfig)
			r.Post("/admin/config", adminHandler.HandleUpdateConfig)
		})
	})
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.Bool("auth_required", s.config.AuthRequired),
			slog.Bool("trusted_header_mode", s.config.TrustedEmailHeader != ""),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
