package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wellcheck/wellcheck/internal/config"
	"github.com/wellcheck/wellcheck/internal/domain/analysis"
	"github.com/wellcheck/wellcheck/internal/domain/assessment"
	"github.com/wellcheck/wellcheck/internal/domain/dashboard"
	"github.com/wellcheck/wellcheck/internal/domain/profile"
	"github.com/wellcheck/wellcheck/internal/domain/questionbank"
	"github.com/wellcheck/wellcheck/internal/domain/scoring"
	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/internal/platform/db"
	"github.com/wellcheck/wellcheck/internal/platform/localstore"
	"github.com/wellcheck/wellcheck/internal/platform/logging"
	"github.com/wellcheck/wellcheck/internal/platform/middleware"
	"github.com/wellcheck/wellcheck/internal/platform/scheduler"
	"github.com/wellcheck/wellcheck/internal/platform/telemetry"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "wellcheck-server",
		Short: "Bilingual health self-assessment API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(bankCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// app holds everything the HTTP server and the housekeeping jobs share.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	pool     *pgxpool.Pool
	guests   localstore.LocalStorage
	attempts *assessment.AttemptStore
	bank     *questionbank.Bank
	verifier *auth.Verifier
	store    assessment.Store
	service  *assessment.Service
	metrics  *telemetry.Metrics
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Logger
	logger, logCloser := logging.New(logging.Options{Env: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile})
	defer logCloser.Close()

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	a := &app{cfg: cfg, logger: logger}

	// Database, optional: without it only guests are served
	if cfg.HasDatabase() {
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		a.pool = pool
		logger.Info().Msg("connected to database")
	} else {
		logger.Warn().Msg("DATABASE_URL not set, serving guests only")
	}

	// Guest storage
	sqliteStore, err := localstore.OpenSQLite(cfg.GuestStorePath, logger)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.GuestStorePath).Msg("guest store unavailable, falling back to memory")
		a.guests = localstore.NewMemory()
	} else {
		defer sqliteStore.Close()
		a.guests = sqliteStore
	}

	if err := a.build(); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise services")
	}

	sched := scheduler.New(logger)
	if err := a.registerJobs(sched); err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule housekeeping")
	}
	sched.Start()

	e := a.newEcho()

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("scheduler did not stop in time")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// build wires the domain services from a's config and storage.
func (a *app) build() error {
	bank, err := questionbank.Default()
	if err != nil {
		return fmt.Errorf("load question bank: %w", err)
	}
	a.bank = bank

	if a.cfg.HasUserAuth() {
		v, err := auth.NewVerifier(auth.JWTConfig{
			Issuer:     a.cfg.AuthIssuer,
			Audience:   a.cfg.AuthAudience,
			JWKSURL:    a.cfg.AuthJWKSURL,
			SigningKey: []byte(a.cfg.AuthJWTSecret),
		})
		if err != nil {
			return fmt.Errorf("token verifier: %w", err)
		}
		a.verifier = v
	} else {
		a.logger.Warn().Msg("no token verification configured, bearer tokens will be rejected")
	}

	levels := assessment.NewLevelCheck(bank, a.logger)
	guests := assessment.NewGuestStore(a.guests, a.logger)
	guests.SetLevelCheck(levels)
	store := &assessment.DualStore{Guests: guests}
	if a.pool != nil {
		users := assessment.NewPGStore(a.pool)
		users.SetLevelCheck(levels)
		store.Users = users
	}

	analyzer := analysis.New(analysis.Config{
		BaseURL: a.cfg.LLMBaseURL,
		APIKey:  a.cfg.LLMAPIKey,
		Model:   a.cfg.LLMModel,
		Timeout: a.cfg.LLMTimeout,
	}, a.logger)

	a.store = store
	a.attempts = assessment.NewAttemptStore(a.cfg.AttemptTTL)
	a.service = assessment.NewService(bank, scoring.NewCalculator(a.logger), analyzer, store, a.attempts, a.logger)
	a.metrics = telemetry.New()
	a.service.SetRecorder(a.metrics)
	return nil
}

// counted wraps job so every run is reflected in the job metrics.
func (a *app) counted(name string, job scheduler.Job) scheduler.Job {
	return func(ctx context.Context) error {
		err := job(ctx)
		a.metrics.JobFinished(name, err)
		return err
	}
}

// registerJobs schedules stale attempt eviction and guest data retention.
func (a *app) registerJobs(s *scheduler.Scheduler) error {
	if err := s.Add("evict-stale-attempts", "@every 10m", a.counted("evict-stale-attempts", func(ctx context.Context) error {
		if n := a.attempts.EvictStale(); n > 0 {
			a.logger.Info().Int("evicted", n).Msg("evicted stale attempts")
		}
		return nil
	})); err != nil {
		return err
	}

	retention := time.Duration(a.cfg.GuestRetentionDays) * 24 * time.Hour
	return s.Add("purge-guest-data", "0 3 * * *", a.counted("purge-guest-data", func(ctx context.Context) error {
		n, err := a.guests.PurgeOlderThan(ctx, time.Now().Add(-retention))
		if err != nil {
			return fmt.Errorf("purge guest data: %w", err)
		}
		if n > 0 {
			a.logger.Info().Int64("purged", n).Int("retention_days", a.cfg.GuestRetentionDays).Msg("purged idle guest data")
		}
		return nil
	}))
}

func (a *app) newEcho() *echo.Echo {
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.Logger(a.logger))
	e.Use(a.metrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", "Accept-Language", echo.HeaderXRequestID, auth.GuestIDHeader},
		ExposeHeaders: []string{echo.HeaderXRequestID, "Content-Language", "Retry-After"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(auth.IdentityMiddleware(a.verifier, a.logger))
	e.Use(middleware.Locale())

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if a.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.pool))
	} else {
		e.GET("/health/db", db.HealthHandler(nil))
	}

	e.GET("/metrics", a.metrics.Handler())

	api := e.Group("/api/v1")
	rl := middleware.DefaultRateLimitConfig()
	rl.RequestsPerSecond = cfg.RateLimitRPS
	rl.BurstSize = cfg.RateLimitBurst
	api.Use(middleware.RateLimit(rl))

	questionbank.NewHandler(a.bank).RegisterRoutes(api)
	assessment.NewHandler(a.service).RegisterRoutes(api)
	dashboard.NewHandler(dashboard.NewService(a.store, dashboard.Aggregator{Categories: a.bank})).RegisterRoutes(api)
	if a.pool != nil {
		profile.NewHandler(profile.NewService(profile.NewRepo(a.pool))).RegisterRoutes(api)
	}

	return e
}
