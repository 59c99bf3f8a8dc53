package handler

import (
	"net/http"

	"learngate/internal/api/v1/dto"
	"learngate/internal/middleware"
	"learngate/internal/model"
	"learngate/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AttemptHandler handles quiz attempt endpoints
type AttemptHandler struct {
	attempts service.AttemptService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler
func NewAttemptHandler(attempts service.AttemptService, validate *validator.Validate, logger zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{attempts: attempts, validate: validate, logger: logger.With().Str("handler", "AttemptHandler").Logger()}
}

// RegisterRoutes mounts attempt routes
func (h *AttemptHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireModule("quiz"))
		r.Post("/quizzes/{quizId}/attempts", h.startAttempt)
		r.Post("/scheduled-tests/{testId}/attempts", h.startScheduledAttempt)
	})
	r.Post("/attempts/{attemptId}/submit", h.submitAttempt)
	r.Get("/attempts/{attemptId}", h.getAttempt)
	r.Get("/attempts", h.listAttempts)
	r.Get("/rewards", h.getRewards)
}

func (h *AttemptHandler) writeStarted(w http.ResponseWriter, a *model.QuizAttempt, created bool) {
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.StartAttemptResponseDTO{Attempt: toAttemptDTO(a), Resumed: !created})
}

// startAttempt godoc
// @Summary Start or resume a quiz attempt
// @Description Resumes the caller's in-progress attempt on the quiz, or starts a new one if the daily quiz quota allows.
// @Tags attempts
// @Produce json
// @Param quizId path string true "Quiz ID"
// @Success 201 {object} dto.StartAttemptResponseDTO "Attempt started"
// @Success 200 {object} dto.StartAttemptResponseDTO "Attempt resumed"
// @Failure 404 {object} dto.ErrorResponseDTO "Quiz not found"
// @Failure 429 {object} dto.LimitExceededResponseDTO "Daily quiz limit reached"
// @Router /quizzes/{quizId}/attempts [post]
func (h *AttemptHandler) startAttempt(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	a, created, err := h.attempts.Start(r.Context(), userID, chi.URLParam(r, "quizId"))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	h.writeStarted(w, a, created)
}

// startScheduledAttempt godoc
// @Summary Start or resume a scheduled test
// @Tags attempts
// @Produce json
// @Param testId path string true "Scheduled test ID"
// @Success 201 {object} dto.StartAttemptResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO "Scheduled test not found or not visible"
// @Failure 429 {object} dto.LimitExceededResponseDTO
// @Router /scheduled-tests/{testId}/attempts [post]
func (h *AttemptHandler) startScheduledAttempt(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	a, created, err := h.attempts.StartScheduled(r.Context(), userID, chi.URLParam(r, "testId"))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	h.writeStarted(w, a, created)
}

// submitAttempt godoc
// @Summary Submit an attempt
// @Description Scores and finalizes an in-progress attempt. An attempt can be submitted once.
// @Tags attempts
// @Accept json
// @Produce json
// @Param attemptId path string true "Attempt ID"
// @Param body body dto.SubmitAttemptDTO true "Answers"
// @Success 200 {object} dto.SubmitResultResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Failure 409 {object} dto.ErrorResponseDTO "Attempt is not in progress"
// @Router /attempts/{attemptId}/submit [post]
func (h *AttemptHandler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	var req dto.SubmitAttemptDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	answers := make([]model.SubmittedAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, model.SubmittedAnswer{
			QuestionID:       a.QuestionID,
			Answer:           a.Answer,
			TimeSpentSeconds: a.TimeSpentSeconds,
		})
	}
	res, err := h.attempts.Submit(r.Context(), userID, chi.URLParam(r, "attemptId"), answers, req.TimeTakenSeconds)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.SubmitResultResponseDTO{
		Attempt:            toAttemptDTO(&res.Attempt),
		Answers:            toAnswerDTOs(res.Answers),
		SkippedQuestionIDs: res.Skipped,
		RewardPoints:       res.Reward,
	})
}

// getAttempt godoc
// @Summary Get an attempt
// @Tags attempts
// @Produce json
// @Param attemptId path string true "Attempt ID"
// @Success 200 {object} dto.AttemptDetailResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /attempts/{attemptId} [get]
func (h *AttemptHandler) getAttempt(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	a, answers, err := h.attempts.Get(r.Context(), userID, chi.URLParam(r, "attemptId"))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.AttemptDetailResponseDTO{Attempt: toAttemptDTO(a), Answers: toAnswerDTOs(answers)})
}

// listAttempts godoc
// @Summary List the caller's attempts
// @Tags attempts
// @Produce json
// @Param quiz_id query string false "Only attempts on this quiz"
// @Success 200 {array} dto.AttemptResponseDTO
// @Router /attempts [get]
func (h *AttemptHandler) listAttempts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	attempts, err := h.attempts.ListForUser(r.Context(), userID, r.URL.Query().Get("quiz_id"))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	out := make([]dto.AttemptResponseDTO, 0, len(attempts))
	for i := range attempts {
		out = append(out, toAttemptDTO(&attempts[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// getRewards godoc
// @Summary Get the caller's reward points
// @Tags attempts
// @Produce json
// @Success 200 {object} dto.RewardTotalResponseDTO
// @Router /rewards [get]
func (h *AttemptHandler) getRewards(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	total, err := h.attempts.TotalRewards(r.Context(), userID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.RewardTotalResponseDTO{UserID: userID, Points: total})
}
