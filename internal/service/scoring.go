package service

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"learngate/internal/model"
)

// optionLetter matches a single multiple-choice letter with optional decoration: "b", "(B)", "b)", "B."
var optionLetter = regexp.MustCompile(`^\(?([A-Da-d])[).]?$`)

func normalizeAnswer(s string) string {
	s = strings.TrimSpace(s)
	if m := optionLetter.FindStringSubmatch(s); m != nil {
		return strings.ToUpper(m[1])
	}
	return strings.ToLower(s)
}

func normalizedSorted(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = normalizeAnswer(item)
	}
	slices.Sort(out)
	return out
}

// AnswersMatch compares a submitted answer against the stored correct one. List answers
// match as order-independent sets; scalars match case-insensitively after trimming.
func AnswersMatch(correct, submitted model.AnswerValue) bool {
	if correct.IsList {
		got := submitted.List
		if !submitted.IsList {
			got = []string{submitted.Scalar}
		}
		return slices.Equal(normalizedSorted(correct.List), normalizedSorted(got))
	}
	got := submitted.Scalar
	if submitted.IsList {
		if len(submitted.List) != 1 {
			return false
		}
		got = submitted.List[0]
	}
	return normalizeAnswer(correct.Scalar) == normalizeAnswer(got)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ScoreAttempt scores answers against quiz. totalQuestions is the count snapshotted when
// the attempt started. Answers for unknown questions and repeated question ids are
// skipped; the first answer for a question wins.
func ScoreAttempt(quiz *model.Quiz, totalQuestions int, answers []model.SubmittedAnswer, answeredAt time.Time) model.Scoring {
	questions := make(map[string]model.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions[q.ID] = q
	}

	var res model.Scoring
	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok || seen[a.QuestionID] {
			res.Skipped = append(res.Skipped, a.QuestionID)
			continue
		}
		seen[a.QuestionID] = true

		correct := AnswersMatch(q.CorrectAnswer, a.Answer)
		if correct {
			res.CorrectAnswers++
			res.Score += q.Points
		}
		spent := a.TimeSpentSeconds
		if spent < 0 {
			spent = 0
		}
		res.Answers = append(res.Answers, model.AttemptAnswer{
			QuestionID:       a.QuestionID,
			SubmittedAnswer:  a.Answer,
			IsCorrect:        correct,
			TimeSpentSeconds: spent,
			AnsweredAt:       answeredAt,
		})
	}

	res.WrongAnswers = totalQuestions - res.CorrectAnswers
	if res.WrongAnswers < 0 {
		res.WrongAnswers = 0
	}
	if totalQuestions > 0 {
		res.ScorePercentage = math.Min(100, round2(100*float64(res.CorrectAnswers)/float64(totalQuestions)))
	}
	res.Passed = res.ScorePercentage >= quiz.PassingPercentage
	return res
}
