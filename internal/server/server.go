// Package server is the composition root: it builds every dependency,
// mounts the routes and runs the HTTP server until a shutdown signal.
//
//	config → sqlite.DB → services → handlers → chi router
//	                   ↘ realtime.Hub (or redisbus.Bus) as the services' Notifier
//
// Each layer only receives what it needs. Services get repository
// interfaces, never *sqlite.DB; handlers get services, never the database.
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
	"github.com/go-chi/cors"

	"github.com/sakif/chirp/internal/auth"
	"github.com/sakif/chirp/internal/config"
	"github.com/sakif/chirp/internal/handler"
	"github.com/sakif/chirp/internal/media"
	"github.com/sakif/chirp/internal/middleware"
	"github.com/sakif/chirp/internal/realtime"
	"github.com/sakif/chirp/internal/realtime/redisbus"
	sqliteRepo "github.com/sakif/chirp/internal/repository/sqlite"
	"github.com/sakif/chirp/internal/service"
)

// Server owns the long-lived resources: the database, the session hub, the
// optional Redis bus and the rate limiter.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	hub     *realtime.Hub
	bus     *redisbus.Bus
	limiter *middleware.RateLimiter
}

// New opens the database and wires every route. Optional integrations
// (GitHub, Redis, S3) are enabled by their config and skipped otherwise.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		hub:     realtime.NewHub(logger),
		limiter: middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
	}

	if cfg.RedisURL != "" {
		bus, err := redisbus.Dial(ctx, cfg.RedisURL, s.hub, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		s.bus = bus
	}

	if err := s.setupRoutes(ctx); err != nil {
		s.close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) notifier() service.Notifier {
	if s.bus != nil {
		return s.bus
	}
	return s.hub
}

// setupRoutes builds services and handlers and mounts them.
//
// Middleware order matters. RequestID comes first so the logger can print
// it; Recoverer sits inside the logger so a panic is still logged as a 500.
func (s *Server) setupRoutes(ctx context.Context) error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	} else {
		s.logger.Info("GitHub sign-in disabled (GITHUB_CLIENT_ID/SECRET not set)")
	}

	var signer handler.Signer
	if cfg.MediaEnabled() {
		s3Signer, err := media.NewS3Signer(ctx, media.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicURL:       cfg.S3PublicURL,
		})
		if err != nil {
			return fmt.Errorf("creating media signer: %w", err)
		}
		signer = s3Signer
	} else {
		s.logger.Info("media uploads disabled (S3_BUCKET not set)")
	}

	notifier := s.notifier()

	// === Services ===
	authSvc := service.NewAuthService(s.db, tokens, passwords, s.logger)
	relSvc := service.NewRelationshipService(s.db, s.db, s.db, notifier, s.logger)
	engSvc := service.NewEngagementService(s.db, s.db, notifier, s.logger)
	noteSvc := service.NewNotificationService(s.db, s.db, notifier, cfg.NotificationTail, s.logger)
	postSvc := service.NewPostService(s.db, s.logger)
	profSvc := service.NewProfileService(s.db, s.db, s.db, s.db, cfg.NotificationTail, s.logger)

	// === Handlers ===
	secure := cfg.Env == "production"
	authH := handler.NewAuthHandler(authSvc, github, tokens, cfg.ClientURL, secure, s.logger)
	userH := handler.NewUserHandler(profSvc, relSvc, s.logger)
	postH := handler.NewPostHandler(postSvc, engSvc, s.logger)
	noteH := handler.NewNotificationHandler(noteSvc, s.logger)
	mediaH := handler.NewMediaHandler(signer, s.logger)
	wsH := realtime.NewHandler(s.hub, cfg.AllowedOrigins, s.logger)

	// === Global middleware ===
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	requireAuth := auth.RequireAuth(tokens)
	optionalAuth := auth.OptionalAuth(tokens)
	limit := s.limiter.Middleware

	r.Get("/healthz", handler.Health(s.db))
	r.With(requireAuth).Get("/ws", wsH.ServeHTTP)

	// === Auth ===
	r.Route("/auth", func(r chi.Router) {
		r.With(limit).Post("/signup", authH.HandleSignup)
		r.With(limit).Post("/login", authH.HandleLogin)
		r.Post("/logout", authH.HandleLogout)
		r.Get("/github/login", authH.HandleGitHubLogin)
		r.Get("/github/callback", authH.HandleGitHubCallback)
	})

	// === API ===
	r.Route("/api", func(r chi.Router) {
		// Public reads. A token, if present, personalises the response.
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/posts", postH.HandleList)
			r.Get("/posts/search", postH.HandleSearch)
			r.Get("/posts/{postID}", postH.HandleGet)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authH.HandleMe)
			r.Get("/users/{userID}/profile", userH.HandleProfile)
			r.Get("/me/liked-posts", postH.HandleLiked)
			r.Get("/notifications", noteH.HandleList)

			// Writes are rate limited per user.
			r.Group(func(r chi.Router) {
				r.Use(limit)
				r.Patch("/me/profile", userH.HandleUpdateProfile)
				r.Post("/users/{userID}/follow", userH.HandleFollow)
				r.Delete("/users/{userID}/follow", userH.HandleUnfollow)
				r.Post("/posts", postH.HandleCreate)
				r.Delete("/posts/{postID}", postH.HandleDelete)
				r.Post("/posts/{postID}/like", postH.HandleToggleLike)
				r.Post("/notifications", noteH.HandleAdd)
				r.Post("/media/sign", mediaH.HandleSign)
			})
		})
	})

	return nil
}

// Start runs the HTTP server and blocks until SIGINT/SIGTERM or a server
// error, then shuts down gracefully:
//
//  1. stop accepting connections and let in-flight requests finish (30s)
//  2. hang up live websocket sessions
//  3. stop the Redis subscriber
//  4. close the database
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	bg, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	go s.limiter.RunSweeper(time.Minute, bg.Done())
	if s.bus != nil {
		go func() {
			if err := s.bus.Run(bg); err != nil {
				s.logger.Error("notification bus stopped", slog.String("error", err.Error()))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("database", s.config.DBPath),
			slog.Bool("redis", s.bus != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s.hub.Close()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// close releases everything New acquired.
func (s *Server) close() {
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			s.logger.Warn("closing redis", slog.String("error", err.Error()))
		}
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing database", slog.String("error", err.Error()))
	}
}
