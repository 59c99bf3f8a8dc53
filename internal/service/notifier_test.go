package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"learngate/internal/model"
)

type fakePublisher struct {
	topic   string
	payload []byte
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload []byte) (string, error) {
	p.topic, p.payload = topic, payload
	return "server-id", p.err
}

type fakeQueueSender struct {
	queue   string
	payload []byte
	err     error
}

func (s *fakeQueueSender) Send(_ context.Context, queue string, payload []byte) error {
	s.queue, s.payload = queue, payload
	return s.err
}

func sampleEvent() model.CompletionEvent {
	return model.CompletionEvent{
		AttemptID:       "a1",
		UserID:          "u1",
		QuizID:          "q1",
		ScorePercentage: 80,
		CorrectAnswers:  4,
		TotalQuestions:  5,
		Passed:          true,
		CompletedAt:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestPubSubNotifierPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	n := NewPubSubNotifier(pub, "quiz-completed", testLogger)
	if err := n.AttemptCompleted(context.Background(), sampleEvent()); err != nil {
		t.Fatal(err)
	}
	if pub.topic != "quiz-completed" {
		t.Fatalf("unexpected topic %s", pub.topic)
	}
	var got model.CompletionEvent
	if err := json.Unmarshal(pub.payload, &got); err != nil {
		t.Fatal(err)
	}
	if got.AttemptID != "a1" || got.ScorePercentage != 80 {
		t.Fatalf("unexpected payload %+v", got)
	}

	pub.err = errBoom
	if err := n.AttemptCompleted(context.Background(), sampleEvent()); !errors.Is(err, errBoom) {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestQueueNotifierSendsToOutbox(t *testing.T) {
	sender := &fakeQueueSender{}
	n := NewQueueNotifier(sender, "completion_queue", testLogger)
	if err := n.AttemptCompleted(context.Background(), sampleEvent()); err != nil {
		t.Fatal(err)
	}
	if sender.queue != "completion_queue" || len(sender.payload) == 0 {
		t.Fatalf("unexpected send %s %q", sender.queue, sender.payload)
	}
}

func TestLogNotifierNeverFails(t *testing.T) {
	if err := NewLogNotifier(testLogger).AttemptCompleted(context.Background(), sampleEvent()); err != nil {
		t.Fatal(err)
	}
}
