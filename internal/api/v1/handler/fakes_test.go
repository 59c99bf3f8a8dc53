package handler

import (
	"context"
	"fmt"
	"io"
	"time"

	"learngate/internal/api/v1/dto"
	"learngate/internal/clock"
	"learngate/internal/model"
	"learngate/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var (
	testLogger   = zerolog.New(io.Discard)
	testValidate = validator.New(validator.WithRequiredStructEnabled())
	testClock    = clock.NewFixed(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), time.UTC)
)

// Each fake embeds its interface and overrides only what a test needs; calling anything
// else panics on the nil embedded value.

type stubQuota struct {
	service.QuotaService
	requireTopicErr error
	recorded        []model.QuotaKind
	status          model.QuotaStatus
}

func (s *stubQuota) RequireTopic(_ context.Context, _ string, _ time.Time) (*model.QuotaStatus, error) {
	st := s.status
	return &st, s.requireTopicErr
}

func (s *stubQuota) RecordTopic(_ context.Context, _ string, _ time.Time) *model.QuotaStatus {
	s.recorded = append(s.recorded, model.QuotaTopic)
	st := s.status
	st.Used++
	st.Recorded = true
	return &st
}

func (s *stubQuota) Summary(_ context.Context, _ string, day time.Time) (*model.QuotaSummary, error) {
	q := s.status
	q.Kind = model.QuotaQuiz
	t := s.status
	t.Kind = model.QuotaTopic
	return &model.QuotaSummary{Day: day.Format(clock.DateLayout), Quiz: q, Topic: t}, nil
}

type stubAttempts struct {
	service.AttemptService
	startAttempt *model.QuizAttempt
	startCreated bool
	startErr     error

	submitted []model.SubmittedAnswer
	result    *model.AttemptResult
	submitErr error
}

func (s *stubAttempts) Start(_ context.Context, _, _ string) (*model.QuizAttempt, bool, error) {
	return s.startAttempt, s.startCreated, s.startErr
}

func (s *stubAttempts) Submit(_ context.Context, _, _ string, answers []model.SubmittedAnswer, _ *int) (*model.AttemptResult, error) {
	s.submitted = answers
	return s.result, s.submitErr
}

func (s *stubAttempts) TotalRewards(_ context.Context, _ string) (int, error) {
	return 70, nil
}

type stubPlans struct {
	service.PlanService
	created    []service.PlanInput
	plans      []model.Plan
	assignedBy *string
}

func (s *stubPlans) CreatePlan(_ context.Context, in service.PlanInput) (*model.Plan, error) {
	s.created = append(s.created, in)
	return &model.Plan{ID: "p-new", Name: in.Name, MonthlyCost: in.MonthlyCost, Status: model.PlanStatusActive}, nil
}

func (s *stubPlans) ListPlans(_ context.Context) ([]model.Plan, error) {
	return s.plans, nil
}

func (s *stubPlans) Assign(_ context.Context, userID, planID string, assignedBy *string) (*model.UserPlanAssignment, error) {
	s.assignedBy = assignedBy
	return &model.UserPlanAssignment{UserID: userID, PlanID: planID, AssignedBy: assignedBy}, nil
}

type stubSchedules struct {
	service.ScheduleService
	eligible []model.EligibleTest
}

func (s *stubSchedules) ListVisibleFor(_ context.Context, _ string, _ time.Time) ([]model.EligibleTest, error) {
	return s.eligible, nil
}

type stubDLQ struct {
	saved    []dto.PubSubPushRequest
	err      error
	letters  []model.DeadLetterMessage
	statuses map[int64]string
}

func (s *stubDLQ) ProcessAndSave(_ context.Context, req *dto.PubSubPushRequest) error {
	s.saved = append(s.saved, *req)
	return s.err
}

func (s *stubDLQ) RecordUndelivered(context.Context, string, []byte, string) error {
	return nil
}

func (s *stubDLQ) List(context.Context, string, int, int) ([]model.DeadLetterMessage, error) {
	return s.letters, nil
}

func (s *stubDLQ) SetStatus(_ context.Context, id int64, status string) (*model.DeadLetterMessage, error) {
	for _, m := range s.letters {
		if m.ID == id {
			if s.statuses == nil {
				s.statuses = map[int64]string{}
			}
			s.statuses[id] = status
			m.Status = status
			return &m, nil
		}
	}
	return nil, fmt.Errorf("dead letter %d: %w", id, service.ErrNotFound)
}
