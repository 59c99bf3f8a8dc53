package handler

import (
	"learngate/internal/api/v1/dto"
	"learngate/internal/model"
)

func toQuotaStatusDTO(s *model.QuotaStatus) dto.QuotaStatusResponseDTO {
	return dto.QuotaStatusResponseDTO{
		Kind:      string(s.Kind),
		Allowed:   s.Allowed,
		Limit:     s.Limit,
		Used:      s.Used,
		Remaining: s.Remaining,
		Day:       s.Day,
		PlanID:    s.PlanID,
		PlanName:  s.PlanName,
	}
}

func toRecordedQuotaDTO(s *model.QuotaStatus) dto.QuotaStatusResponseDTO {
	out := toQuotaStatusDTO(s)
	recorded := s.Recorded
	out.Recorded = &recorded
	return out
}

func toPlanDTO(p *model.Plan) dto.PlanResponseDTO {
	return dto.PlanResponseDTO{
		ID:              p.ID,
		Name:            p.Name,
		DailyQuizLimit:  p.DailyQuizLimit,
		DailyTopicLimit: p.DailyTopicLimit,
		MonthlyCost:     p.MonthlyCost.StringFixed(2),
		Status:          p.Status,
		IsDefault:       p.IsDefault,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func toScheduledTestDTO(t *model.ScheduledTest) dto.ScheduledTestResponseDTO {
	plans, users := t.TargetPlanIDs, t.TargetUserIDs
	if plans == nil {
		plans = []string{}
	}
	if users == nil {
		users = []string{}
	}
	return dto.ScheduledTestResponseDTO{
		ID:              t.ID,
		QuizID:          t.QuizID,
		Title:           t.Title,
		ScheduledFor:    t.ScheduledFor,
		VisibleFrom:     t.VisibleFrom,
		VisibleUntil:    t.VisibleUntil,
		DurationMinutes: t.DurationMinutes,
		TargetPlanIDs:   plans,
		TargetUserIDs:   users,
		Status:          t.Status,
		Instructions:    t.Instructions,
		CreatedBy:       t.CreatedBy,
		UpdatedBy:       t.UpdatedBy,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toAttemptDTO(a *model.QuizAttempt) dto.AttemptResponseDTO {
	return dto.AttemptResponseDTO{
		ID:               a.ID,
		UserID:           a.UserID,
		QuizID:           a.QuizID,
		ScheduledTestID:  a.ScheduledTestID,
		StartedAt:        a.StartedAt,
		CompletedAt:      a.CompletedAt,
		TotalQuestions:   a.TotalQuestions,
		CorrectAnswers:   a.CorrectAnswers,
		WrongAnswers:     a.WrongAnswers,
		Score:            a.Score,
		ScorePercentage:  a.ScorePercentage,
		Passed:           a.Passed,
		Status:           a.Status,
		TimeTakenSeconds: a.TimeTakenSeconds,
	}
}

func toOptionalAttemptDTO(a *model.QuizAttempt) *dto.AttemptResponseDTO {
	if a == nil {
		return nil
	}
	out := toAttemptDTO(a)
	return &out
}

func toAnswerDTOs(answers []model.AttemptAnswer) []dto.AttemptAnswerResponseDTO {
	out := make([]dto.AttemptAnswerResponseDTO, 0, len(answers))
	for _, a := range answers {
		out = append(out, dto.AttemptAnswerResponseDTO{
			QuestionID:       a.QuestionID,
			SubmittedAnswer:  a.SubmittedAnswer,
			IsCorrect:        a.IsCorrect,
			TimeSpentSeconds: a.TimeSpentSeconds,
			AnsweredAt:       a.AnsweredAt,
		})
	}
	return out
}
