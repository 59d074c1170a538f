// Package main is the entry point for the Rainbow Tour Guides API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/rainbowtourguides/backend/internal/auth"
	"github.com/rainbowtourguides/backend/internal/cache"
	"github.com/rainbowtourguides/backend/internal/config"
	"github.com/rainbowtourguides/backend/internal/handler"
	"github.com/rainbowtourguides/backend/internal/middleware"
	"github.com/rainbowtourguides/backend/internal/preference"
	"github.com/rainbowtourguides/backend/internal/repo"
	"github.com/rainbowtourguides/backend/internal/service"
	"github.com/rainbowtourguides/backend/internal/worker"
	"github.com/rainbowtourguides/backend/migrations"
)

// holdSweepTimeout bounds a single run of the hold expiry job.
const holdSweepTimeout = 30 * time.Second

func main() {
	// --- Config -----------------------------------------------------------
	// A local .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if err := migrate(context.Background(), pool); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// --- Cache and visitor storage ----------------------------------------
	var (
		store cache.Store        = cache.NewMemoryStore()
		prefs preference.Storage = preference.NewMemoryStorage()
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		store = cache.NewRedisStore(rdb, "rtg:cache:")
		prefs = preference.NewRedisStorage(rdb, "rtg:visitor:", 0)
		slog.Info("redis connection established")
	}
	responses := cache.New(store, cfg.CacheTTL, logger)

	// --- Services ---------------------------------------------------------
	tx := repo.NewTransactor(pool)
	guideRepo := repo.NewGuideRepo(pool)
	slotRepo := repo.NewSlotRepo(pool)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)

	reservations := service.NewReservationService(tx, repo.NewReservationRepo(pool), guideRepo, responses,
		service.Fees{TravelerPct: cfg.TravelerFeePct, GuidePct: cfg.GuideFeePct}, logger)

	deps := handler.Deps{
		Slots:        service.NewSlotService(slotRepo, guideRepo, responses, logger),
		Exports:      service.NewExportService(guideRepo, slotRepo),
		Guides:       service.NewGuideService(guideRepo, tx),
		Themes:       service.NewThemeService(repo.NewThemeRepo(pool)),
		Reservations: reservations,
		Preferences:  prefs,
		Verifier:     issuer,
		Logger:       logger,
	}
	if cfg.DemoAuth {
		slog.Warn("demo auth enabled: POST /api/auth/demo issues tokens without credentials")
		deps.DemoAuth = service.NewAuthService(repo.NewUserRepo(pool), issuer)
	}

	// --- Background jobs --------------------------------------------------
	jobs := worker.New(logger)
	if err := jobs.AddHoldSweep(cfg.HoldSweepSchedule, reservations, cfg.HoldTTL, holdSweepTimeout); err != nil {
		slog.Error("failed to schedule hold sweep", "error", err)
		os.Exit(1)
	}
	jobs.Start()

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → rate limit → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Handler)
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", handler.NewServer(deps).Routes())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// and a running sweep up to 15 seconds to complete.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if err := jobs.Stop(ctx); err != nil {
		slog.Error("scheduler shutdown error", "error", err)
	}
	slog.Info("server stopped")
}

// migrate applies pending migrations through a database/sql view of the pool.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		slog.Info("migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}
