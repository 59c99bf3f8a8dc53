package service

import (
	"context"
	"encoding/json"
	"fmt"

	"learngate/internal/api/v1/dto"
	"learngate/internal/model"
	"learngate/internal/repository"

	"github.com/rs/zerolog"
)

const maxDeadLetterPage = 200

type DLQService interface {
	// ProcessAndSave stores a message pushed by a Pub/Sub dead-letter subscription.
	// A redelivered message is stored only once.
	ProcessAndSave(ctx context.Context, req *dto.PubSubPushRequest) error
	// RecordUndelivered stores an outbox message the relay gave up on.
	RecordUndelivered(ctx context.Context, messageID string, payload []byte, reason string) error
	List(ctx context.Context, status string, limit, offset int) ([]model.DeadLetterMessage, error)
	SetStatus(ctx context.Context, id int64, status string) (*model.DeadLetterMessage, error)
}

type dlqService struct {
	repo   repository.DLQRepository
	logger zerolog.Logger
}

func NewDLQService(repo repository.DLQRepository, logger zerolog.Logger) DLQService {
	return &dlqService{repo: repo, logger: logger.With().Str("service", "DLQService").Logger()}
}

func (s *dlqService) ProcessAndSave(ctx context.Context, req *dto.PubSubPushRequest) error {
	if req.Message.MessageID == "" {
		return fmt.Errorf("message id is required: %w", ErrInvalidInput)
	}

	var attributesJSON *string
	if len(req.Message.Attributes) > 0 {
		attrBytes, err := json.Marshal(req.Message.Attributes)
		if err == nil {
			attrStr := string(attrBytes)
			attributesJSON = &attrStr
		}
	}

	source := req.Subscription
	if source == "" {
		source = model.DLQSourcePush
	}
	return s.save(ctx, &model.DeadLetterMessage{
		Source:     source,
		MessageID:  req.Message.MessageID,
		Payload:    string(req.Message.Payload()),
		Attributes: attributesJSON,
		Status:     model.DeadLetterUnprocessed,
	})
}

func (s *dlqService) RecordUndelivered(ctx context.Context, messageID string, payload []byte, reason string) error {
	attrBytes, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return fmt.Errorf("marshal dead letter attributes: %w", err)
	}
	attrs := string(attrBytes)
	return s.save(ctx, &model.DeadLetterMessage{
		Source:     model.DLQSourceRelay,
		MessageID:  messageID,
		Payload:    string(payload),
		Attributes: &attrs,
		Status:     model.DeadLetterUnprocessed,
	})
}

func (s *dlqService) save(ctx context.Context, m *model.DeadLetterMessage) error {
	inserted, err := s.repo.Create(ctx, m)
	if err != nil {
		return err
	}
	if !inserted {
		s.logger.Info().Str("source", m.Source).Str("messageId", m.MessageID).Msg("Dead letter already stored, skipping duplicate")
	}
	return nil
}

func (s *dlqService) List(ctx context.Context, status string, limit, offset int) ([]model.DeadLetterMessage, error) {
	if status != "" && !model.IsValidDeadLetterStatus(status) {
		return nil, fmt.Errorf("unknown dead letter status %q: %w", status, ErrInvalidInput)
	}
	if limit <= 0 || limit > maxDeadLetterPage {
		limit = maxDeadLetterPage
	}
	if offset < 0 {
		offset = 0
	}
	msgs, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list dead letters")
		return nil, err
	}
	return msgs, nil
}

func (s *dlqService) SetStatus(ctx context.Context, id int64, status string) (*model.DeadLetterMessage, error) {
	if !model.IsValidDeadLetterStatus(status) {
		return nil, fmt.Errorf("unknown dead letter status %q: %w", status, ErrInvalidInput)
	}
	m, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("dead letter %d", id))
	}
	s.logger.Info().Int64("id", id).Str("status", status).Msg("Dead letter status updated")
	return m, nil
}
