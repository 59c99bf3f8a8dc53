package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string `envconfig:"PORT" default:"8080"`
	Environment        string `envconfig:"ENV" default:"development"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	DBAutoMigrate      bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
	DBMaxConns         int32  `envconfig:"DB_MAX_CONNS" default:"25"`

	// Either JWT_SECRET or JWT_SECRET_RESOURCE (a Secret Manager version name) must be set.
	JWTSecret         string `envconfig:"JWT_SECRET"`
	JWTSecretResource string `envconfig:"JWT_SECRET_RESOURCE"`

	// Quota and attempt rules
	Timezone               string        `envconfig:"APP_TIMEZONE" default:"UTC"`
	FreemiumPlanName       string        `envconfig:"FREEMIUM_PLAN_NAME" default:"Freemium"`
	RewardPointsPerCorrect int           `envconfig:"REWARD_POINTS_PER_CORRECT" default:"10"`
	AttemptAbandonAfter    time.Duration `envconfig:"ATTEMPT_ABANDON_AFTER" default:"0s"`

	// Notifications: pubsub publishes directly, queue writes to the pgmq outbox, log only logs.
	NotifyMode            string `envconfig:"NOTIFY_MODE" default:"log"`
	GCPProjectID          string `envconfig:"GCP_PROJECT_ID"`
	PubSubEmulatorHost    string `envconfig:"PUBSUB_EMULATOR_HOST"`
	PubSubCompletionTopic string `envconfig:"PUBSUB_COMPLETION_TOPIC" default:"quiz-completed"`

	// Pub/Sub push auth for the dead-letter intake endpoint
	DLQEndpointURL                string `envconfig:"DLQ_ENDPOINT_URL"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`

	// Completion relay settings
	CompletionQueueName         string `envconfig:"COMPLETION_QUEUE_NAME" default:"completion_queue"`
	CompletionVisibilitySec     int    `envconfig:"COMPLETION_VISIBILITY_SEC" default:"60"`
	CompletionPollTimeoutSec    int    `envconfig:"COMPLETION_POLL_TIMEOUT_SEC" default:"30"`
	CompletionPollMaxMsg        int    `envconfig:"COMPLETION_POLL_MAX_MSG" default:"10"`
	CompletionMaxRetries        int    `envconfig:"COMPLETION_MAX_RETRIES" default:"5"`
	CompletionBackoffInitialSec int    `envconfig:"COMPLETION_BACKOFF_INITIAL_SEC" default:"1"`
	CompletionBackoffMaxSec     int    `envconfig:"COMPLETION_BACKOFF_MAX_SEC" default:"60"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" && c.JWTSecretResource == "" {
		return fmt.Errorf("one of JWT_SECRET or JWT_SECRET_RESOURCE is required")
	}
	switch c.NotifyMode {
	case "pubsub", "queue", "log":
	default:
		return fmt.Errorf("invalid NOTIFY_MODE %q: want pubsub, queue or log", c.NotifyMode)
	}
	if c.NotifyMode == "pubsub" && c.GCPProjectID == "" {
		return fmt.Errorf("GCP_PROJECT_ID is required when NOTIFY_MODE=pubsub")
	}
	if c.RewardPointsPerCorrect < 0 {
		return fmt.Errorf("REWARD_POINTS_PER_CORRECT must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the reference timezone that defines a calendar day.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsLocalPubSub reports whether Pub/Sub traffic goes to the emulator.
func (c *Config) IsLocalPubSub() bool {
	return c.PubSubEmulatorHost != ""
}
