package main

import (
	"context"
	"flag"
	"time"

	"learngate/internal/config"
	"learngate/internal/logger"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// 'host.docker.internal' lets the emulator container reach the API on the host.
const dlqEndpointLocal = "http://host.docker.internal:8080/v1/dlq/record"

func main() {
	reset := flag.Bool("reset", false, "delete every topic and subscription in the emulator first")
	flag.Parse()

	logger := logger.New()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}
	logger.Info().Msg("Starting Pub/Sub setup for the local environment")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Failed to load config: %v", err)
	}
	if cfg.GCPProjectID == "" {
		logger.Fatal().Msg("GCP_PROJECT_ID is not set")
	}
	if !cfg.IsLocalPubSub() {
		logger.Fatal().Msg("PUBSUB_EMULATOR_HOST must be set; this tool only targets the emulator")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID,
		option.WithEndpoint(cfg.PubSubEmulatorHost),
		option.WithoutAuthentication(),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub client: %v", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close pubsub client")
		}
	}()

	if *reset {
		resetEmulator(ctx, client, logger)
	}

	endpoint := cfg.DLQEndpointURL
	if endpoint == "" {
		endpoint = dlqEndpointLocal
	}
	ensureCompletionResources(ctx, client, logger, cfg.PubSubCompletionTopic, endpoint)

	logger.Info().Msg("Pub/Sub setup for local environment complete")
}

// resetEmulator deletes all subscriptions and topics. Emulator only.
func resetEmulator(ctx context.Context, client *pubsub.Client, logger zerolog.Logger) {
	subs := client.Subscriptions(ctx)
	for {
		sub, err := subs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list subscriptions: %v", err)
		}
		logger.Info().Str("subscription", sub.ID()).Msg("Deleting subscription")
		if err := sub.Delete(ctx); err != nil {
			logger.Warn().Err(err).Str("subscription", sub.ID()).Msg("Failed to delete subscription")
		}
	}

	topics := client.Topics(ctx)
	for {
		topic, err := topics.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list topics: %v", err)
		}
		logger.Info().Str("topic", topic.ID()).Msg("Deleting topic")
		if err := topic.Delete(ctx); err != nil {
			logger.Warn().Err(err).Str("topic", topic.ID()).Msg("Failed to delete topic")
		}
	}
}

// ensureCompletionResources creates the completion topic, its dead-letter topic, a pull
// subscription for downstream consumers and a push subscription that feeds the DLQ intake.
func ensureCompletionResources(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicID, dlqEndpoint string) {
	sevenDays := 7 * 24 * time.Hour
	retry := &pubsub.RetryPolicy{MinimumBackoff: 10 * time.Second, MaximumBackoff: 600 * time.Second}

	dlqTopic := ensureTopic(ctx, client, logger, topicID+"-dlq", sevenDays)
	mainTopic := ensureTopic(ctx, client, logger, topicID, sevenDays)

	ensureSubscription(ctx, client, logger, topicID+"-sub", pubsub.SubscriptionConfig{
		Topic:       mainTopic,
		AckDeadline: 60 * time.Second,
		RetryPolicy: retry,
		DeadLetterPolicy: &pubsub.DeadLetterPolicy{
			DeadLetterTopic:     dlqTopic.String(),
			MaxDeliveryAttempts: 5,
		},
	})
	ensureSubscription(ctx, client, logger, topicID+"-dlq-sub", pubsub.SubscriptionConfig{
		Topic:       dlqTopic,
		PushConfig:  pubsub.PushConfig{Endpoint: dlqEndpoint},
		AckDeadline: 60 * time.Second,
		RetryPolicy: retry,
	})
}

func ensureTopic(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicID string, retention time.Duration) *pubsub.Topic {
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		logger.Fatal().Msgf("Failed to check if topic %s exists: %v", topicID, err)
	}
	if exists {
		logger.Info().Str("topic", topicID).Msg("Topic already exists")
		return topic
	}
	logger.Info().Str("topic", topicID).Dur("retention", retention).Msg("Creating topic")
	topic, err = client.CreateTopicWithConfig(ctx, topicID, &pubsub.TopicConfig{RetentionDuration: retention})
	if err != nil {
		logger.Fatal().Msgf("Failed to create topic %s: %v", topicID, err)
	}
	return topic
}

func ensureSubscription(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, subID string, config pubsub.SubscriptionConfig) {
	sub := client.Subscription(subID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		logger.Fatal().Msgf("Failed to check if subscription %s exists: %v", subID, err)
	}
	if !exists {
		logger.Info().Str("subscription", subID).Str("endpoint", config.PushConfig.Endpoint).Msg("Creating subscription")
		if _, err := client.CreateSubscription(ctx, subID, config); err != nil {
			logger.Fatal().Msgf("Failed to create subscription %s: %v", subID, err)
		}
		return
	}

	existing, err := sub.Config(ctx)
	if err != nil {
		logger.Fatal().Msgf("Failed to get config for subscription %s: %v", subID, err)
	}
	if existing.PushConfig.Endpoint == config.PushConfig.Endpoint && existing.AckDeadline == config.AckDeadline {
		logger.Info().Str("subscription", subID).Msg("Subscription is up to date")
		return
	}
	logger.Info().Str("subscription", subID).Msg("Updating subscription")
	if _, err := sub.Update(ctx, pubsub.SubscriptionConfigToUpdate{
		PushConfig:  &config.PushConfig,
		AckDeadline: config.AckDeadline,
		RetryPolicy: config.RetryPolicy,
	}); err != nil {
		logger.Fatal().Msgf("Failed to update subscription %s: %v", subID, err)
	}
}
