package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"learngate/internal/api/v1/router"
	"learngate/internal/config"
	"learngate/internal/logger"
	"learngate/internal/repository"
	"learngate/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// @title LearnGate API
// @version 1.0
// @description Plan quotas, scheduled tests and quiz attempts
// @host localhost:8080
// @BasePath /v1
// @Schemes http https

func main() {
	logger := logger.New()

	// 1. Load configuration
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Resolve the JWT secret from Secret Manager when only a resource name is configured
	if cfg.JWTSecret == "" {
		sm, err := service.NewSecretManagerService(ctx)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Secret Manager client: %v", err)
		}
		secret, err := service.ResolveJWTSecret(ctx, cfg, sm)
		sm.Close()
		if err != nil {
			logger.Fatal().Msgf("Failed to resolve JWT secret: %v", err)
		}
		cfg.JWTSecret = secret
	}

	// 3. Connect to the database
	poolCfg, err := pgxpool.ParseConfig(cfg.DBConnectionString)
	if err != nil {
		logger.Fatal().Msgf("Invalid DB_CONNECTION_STRING: %v", err)
	}
	poolCfg.MaxConns = cfg.DBMaxConns
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to create DB pool: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}
	logger.Info().Int32("max_conns", cfg.DBMaxConns).Msg("Database connection established")

	if cfg.DBAutoMigrate {
		if err := repository.ApplySchema(ctx, pool); err != nil {
			logger.Fatal().Msgf("Failed to apply schema: %v", err)
		}
		logger.Info().Msg("Database schema applied")
	}

	// 4. Build router
	r, cleanup, err := router.New(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to build router: %v", err)
	}
	defer cleanup()

	// 5. Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Msgf("🚀 Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Msgf("Listen: %s", err)
		}
	}()

	// 6. Graceful shutdown
	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received, exiting...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
		return
	}
	logger.Info().Msg("Server shut down gracefully")
}
