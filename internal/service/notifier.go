package service

import (
	"context"
	"encoding/json"
	"fmt"

	"learngate/internal/model"
	"learngate/internal/pubsub"

	"github.com/rs/zerolog"
)

// Notifier receives completion events after an attempt is committed.
type Notifier interface {
	AttemptCompleted(ctx context.Context, event model.CompletionEvent) error
}

// QueueSender is the outbox transport; *pgmq.Client satisfies it.
type QueueSender interface {
	Send(ctx context.Context, queue string, payload []byte) error
}

type pubSubNotifier struct {
	publisher pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// NewPubSubNotifier publishes completion events straight to a Pub/Sub topic.
func NewPubSubNotifier(publisher pubsub.Publisher, topic string, logger zerolog.Logger) Notifier {
	return &pubSubNotifier{
		publisher: publisher,
		topic:     topic,
		logger:    logger.With().Str("service", "PubSubNotifier").Logger(),
	}
}

func (n *pubSubNotifier) AttemptCompleted(ctx context.Context, event model.CompletionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal completion event %s: %w", event.AttemptID, err)
	}
	id, err := n.publisher.Publish(ctx, n.topic, payload)
	if err != nil {
		return err
	}
	n.logger.Debug().Str("attempt_id", event.AttemptID).Str("message_id", id).Msg("Completion event published")
	return nil
}

type queueNotifier struct {
	sender QueueSender
	queue  string
	logger zerolog.Logger
}

// NewQueueNotifier writes completion events to the pgmq outbox for the relay worker.
func NewQueueNotifier(sender QueueSender, queue string, logger zerolog.Logger) Notifier {
	return &queueNotifier{
		sender: sender,
		queue:  queue,
		logger: logger.With().Str("service", "QueueNotifier").Logger(),
	}
}

func (n *queueNotifier) AttemptCompleted(ctx context.Context, event model.CompletionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal completion event %s: %w", event.AttemptID, err)
	}
	if err := n.sender.Send(ctx, n.queue, payload); err != nil {
		return err
	}
	n.logger.Debug().Str("attempt_id", event.AttemptID).Str("queue", n.queue).Msg("Completion event queued")
	return nil
}

type logNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier only logs completion events.
func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{logger: logger.With().Str("service", "LogNotifier").Logger()}
}

func (n *logNotifier) AttemptCompleted(_ context.Context, event model.CompletionEvent) error {
	n.logger.Info().
		Str("attempt_id", event.AttemptID).
		Str("user_id", event.UserID).
		Str("quiz_id", event.QuizID).
		Float64("score_percentage", event.ScorePercentage).
		Int("correct_answers", event.CorrectAnswers).
		Int("total_questions", event.TotalQuestions).
		Bool("passed", event.Passed).
		Msg("Quiz attempt completed")
	return nil
}
