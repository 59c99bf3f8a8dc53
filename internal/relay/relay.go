package relay

import (
	"context"
	"fmt"
	"time"

	"learngate/internal/pgmq"

	"github.com/rs/zerolog"
)

// Queue is the slice of *pgmq.Client the relay drains.
type Queue interface {
	ReadWithPoll(ctx context.Context, queue string, visibilitySec, maxMessages, pollSec int) ([]*pgmq.Message, error)
	Delete(ctx context.Context, queue string, msgIDs []int64) error
	SetVisibility(ctx context.Context, queue string, msgID int64, visibilitySec int) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// DeadLetters receives messages that exhausted their retries.
type DeadLetters interface {
	RecordUndelivered(ctx context.Context, messageID string, payload []byte, reason string) error
}

type Options struct {
	QueueName      string
	Topic          string
	VisibilitySec  int
	PollSec        int
	MaxMessages    int
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Relay forwards completion events from the outbox queue to Pub/Sub.
type Relay struct {
	queue     Queue
	publisher Publisher
	dlq       DeadLetters
	opts      Options
	logger    zerolog.Logger
}

func New(queue Queue, publisher Publisher, dlq DeadLetters, opts Options, logger zerolog.Logger) *Relay {
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 1
	}
	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = time.Second
	}
	if opts.BackoffMax < opts.BackoffInitial {
		opts.BackoffMax = opts.BackoffInitial
	}
	return &Relay{
		queue:     queue,
		publisher: publisher,
		dlq:       dlq,
		opts:      opts,
		logger:    logger.With().Str("worker", "relay").Str("queue", opts.QueueName).Logger(),
	}
}

// Run drains the queue until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info().Str("topic", r.opts.Topic).Msg("Starting completion relay")
	failures := 0
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Shutting down completion relay")
			return nil
		default:
		}

		msgs, err := r.queue.ReadWithPoll(ctx, r.opts.QueueName, r.opts.VisibilitySec, r.opts.MaxMessages, r.opts.PollSec)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			failures++
			wait := r.backoff(failures)
			r.logger.Error().Err(err).Dur("retry_in", wait).Msg("Error reading completion queue")
			sleep(ctx, wait)
			continue
		}
		failures = 0

		for _, msg := range msgs {
			r.handle(ctx, msg)
		}
	}
}

// handle publishes one message. A failed publish leaves the message in the queue
// with a backed-off visibility timeout until MaxRetries reads have been spent.
func (r *Relay) handle(ctx context.Context, msg *pgmq.Message) {
	log := r.logger.With().Int64("msg_id", msg.ID).Int("read_count", msg.ReadCount).Logger()

	serverID, err := r.publisher.Publish(ctx, r.opts.Topic, msg.Data)
	if err == nil {
		log.Info().Str("pubsub_id", serverID).Msg("Completion event forwarded")
		r.delete(ctx, msg.ID, log)
		return
	}

	if r.opts.MaxRetries > 0 && msg.ReadCount >= r.opts.MaxRetries {
		log.Error().Err(err).Msg("Completion event exhausted retries, moving to dead letters")
		reason := fmt.Sprintf("publish failed after %d attempts: %v", msg.ReadCount, err)
		if dlqErr := r.dlq.RecordUndelivered(ctx, fmt.Sprintf("pgmq-%d", msg.ID), msg.Data, reason); dlqErr != nil {
			// Keep the message so the next read can try the dead-letter insert again.
			log.Error().Err(dlqErr).Msg("Failed to record undelivered completion event")
			return
		}
		r.delete(ctx, msg.ID, log)
		return
	}

	wait := r.backoff(msg.ReadCount)
	log.Warn().Err(err).Dur("retry_in", wait).Msg("Publish failed, will retry")
	if err := r.queue.SetVisibility(ctx, r.opts.QueueName, msg.ID, visibilitySeconds(wait)); err != nil {
		log.Error().Err(err).Msg("Failed to delay completion event")
	}
}

func (r *Relay) delete(ctx context.Context, msgID int64, log zerolog.Logger) {
	if err := r.queue.Delete(ctx, r.opts.QueueName, []int64{msgID}); err != nil {
		log.Error().Err(err).Msg("Error deleting completion message")
	}
}

// backoff doubles from BackoffInitial for each failed attempt, capped at BackoffMax.
func (r *Relay) backoff(attempt int) time.Duration {
	wait := r.opts.BackoffInitial
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= r.opts.BackoffMax {
			return r.opts.BackoffMax
		}
	}
	return wait
}

// visibilitySeconds rounds d up to whole seconds, with a floor of one.
func visibilitySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
