package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinixsphere/clinic-backend/internal/api"
	"github.com/clinixsphere/clinic-backend/internal/appointment"
	"github.com/clinixsphere/clinic-backend/internal/auth"
	"github.com/clinixsphere/clinic-backend/internal/config"
	"github.com/clinixsphere/clinic-backend/internal/db"
	"github.com/clinixsphere/clinic-backend/internal/prescription"
	redisclient "github.com/clinixsphere/clinic-backend/internal/redis"
	"github.com/clinixsphere/clinic-backend/internal/user"
)

const version = "1.0.0"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()
	logger.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)

	users := user.NewService(user.NewPgRepository(pgPool), tokens, logger)
	appointments := appointment.NewService(appointment.NewPgRepository(pgPool), users, locker, logger)
	prescriptions := prescription.NewService(prescription.NewPgRepository(pgPool), locker, logger)

	router := api.NewRouter(api.RouterConfig{
		Users:         users,
		Appointments:  appointments,
		Prescriptions: prescriptions,
		Tokens:        tokens,
		PgPool:        pgPool,
		Redis:         rdb,
		Env:           cfg.Env,
		Version:       version,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}

	logger.Info().Msg("api-server stopped")
}
