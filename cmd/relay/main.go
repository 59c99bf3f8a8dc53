package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"
	"time"

	"learngate/internal/config"
	"learngate/internal/logger"
	"learngate/internal/pgmq"
	"learngate/internal/pubsub"
	"learngate/internal/relay"
	"learngate/internal/repository"
	"learngate/internal/service"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Initialize logger
	logger := logger.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}
	if cfg.GCPProjectID == "" {
		logger.Fatal().Msg("GCP_PROJECT_ID is required for the relay")
	}

	// Initialize DB connection
	db, err := sql.Open("postgres", cfg.DBConnectionString)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}
	logger.Info().Msg("Database connection established")

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize PGMQ client
	pgmqClient := pgmq.New(db)
	if err := pgmqClient.CreateQueue(ctx, cfg.CompletionQueueName); err != nil {
		logger.Fatal().Msgf("Failed to create queue: %v", err)
	}
	logger.Info().Str("queue", cfg.CompletionQueueName).Msg("PGMQ client initialized")

	publisher, err := pubsub.NewPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
	}
	defer publisher.Close()
	if ok, err := publisher.TopicExists(ctx, cfg.PubSubCompletionTopic); err != nil || !ok {
		logger.Warn().Err(err).Str("topic", cfg.PubSubCompletionTopic).Msg("Completion topic not found; messages will be retried until it is created")
	}

	dlq := service.NewDLQService(repository.NewDLQRepository(db), logger)

	r := relay.New(pgmqClient, publisher, dlq, relay.Options{
		QueueName:      cfg.CompletionQueueName,
		Topic:          cfg.PubSubCompletionTopic,
		VisibilitySec:  cfg.CompletionVisibilitySec,
		PollSec:        cfg.CompletionPollTimeoutSec,
		MaxMessages:    cfg.CompletionPollMaxMsg,
		MaxRetries:     cfg.CompletionMaxRetries,
		BackoffInitial: time.Duration(cfg.CompletionBackoffInitialSec) * time.Second,
		BackoffMax:     time.Duration(cfg.CompletionBackoffMaxSec) * time.Second,
	}, logger)

	if err := r.Run(ctx); err != nil {
		logger.Fatal().Msgf("Completion relay failed: %v", err)
	}
	logger.Info().Msg("Completion relay stopped gracefully")
}
