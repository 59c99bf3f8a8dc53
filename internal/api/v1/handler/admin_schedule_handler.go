package handler

import (
	"net/http"
	"strconv"

	"learngate/internal/api/v1/dto"
	"learngate/internal/middleware"
	"learngate/internal/repository"
	"learngate/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AdminScheduleHandler manages scheduled tests
type AdminScheduleHandler struct {
	schedules service.ScheduleService
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewAdminScheduleHandler creates a new AdminScheduleHandler
func NewAdminScheduleHandler(schedules service.ScheduleService, validate *validator.Validate, logger zerolog.Logger) *AdminScheduleHandler {
	return &AdminScheduleHandler{schedules: schedules, validate: validate, logger: logger.With().Str("handler", "AdminScheduleHandler").Logger()}
}

// RegisterRoutes mounts scheduled-test administration routes. The caller applies the admin guard.
func (h *AdminScheduleHandler) RegisterRoutes(r chi.Router) {
	r.Get("/scheduled-tests", h.listTests)
	r.Post("/scheduled-tests", h.createTest)
	r.Get("/scheduled-tests/{testId}", h.getTest)
	r.Put("/scheduled-tests/{testId}", h.updateTest)
	r.Delete("/scheduled-tests/{testId}", h.deleteTest)
	r.Put("/scheduled-tests/{testId}/status", h.setStatus)
}

func toScheduledTestInput(req *dto.ScheduledTestWriteDTO) service.ScheduledTestInput {
	in := service.ScheduledTestInput{
		QuizID:          req.QuizID,
		Title:           req.Title,
		VisibleFrom:     req.VisibleFrom,
		VisibleUntil:    req.VisibleUntil,
		DurationMinutes: req.DurationMinutes,
		TargetPlanIDs:   req.TargetPlanIDs,
		TargetUserIDs:   req.TargetUserIDs,
		Status:          req.Status,
		Instructions:    req.Instructions,
	}
	if req.ScheduledFor != nil {
		in.ScheduledFor = *req.ScheduledFor
	}
	return in
}

func queryInt(r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// listTests godoc
// @Summary List scheduled tests
// @Tags admin
// @Produce json
// @Param status query string false "Filter by status"
// @Param quiz_id query string false "Filter by quiz"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} dto.ScheduledTestResponseDTO
// @Router /admin/scheduled-tests [get]
func (h *AdminScheduleHandler) listTests(w http.ResponseWriter, r *http.Request) {
	limit, okLimit := queryInt(r, "limit")
	offset, okOffset := queryInt(r, "offset")
	if !okLimit || !okOffset {
		writeMessage(w, http.StatusBadRequest, "limit and offset must be non-negative integers")
		return
	}
	tests, err := h.schedules.List(r.Context(), repository.ScheduledTestFilter{
		Status: r.URL.Query().Get("status"),
		QuizID: r.URL.Query().Get("quiz_id"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	out := make([]dto.ScheduledTestResponseDTO, 0, len(tests))
	for i := range tests {
		out = append(out, toScheduledTestDTO(&tests[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// createTest godoc
// @Summary Schedule a test
// @Tags admin
// @Accept json
// @Produce json
// @Param test body dto.ScheduledTestWriteDTO true "Scheduled test"
// @Success 201 {object} dto.ScheduledTestResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO "Quiz not found"
// @Failure 409 {object} dto.ErrorResponseDTO "Visibility window ends before it starts"
// @Router /admin/scheduled-tests [post]
func (h *AdminScheduleHandler) createTest(w http.ResponseWriter, r *http.Request) {
	var req dto.ScheduledTestWriteDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	t, err := h.schedules.Create(r.Context(), middleware.UserID(r.Context()), toScheduledTestInput(&req))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, toScheduledTestDTO(t))
}

// getTest godoc
// @Summary Get a scheduled test
// @Tags admin
// @Produce json
// @Param testId path string true "Scheduled test ID"
// @Success 200 {object} dto.ScheduledTestResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /admin/scheduled-tests/{testId} [get]
func (h *AdminScheduleHandler) getTest(w http.ResponseWriter, r *http.Request) {
	t, err := h.schedules.Get(r.Context(), chi.URLParam(r, "testId"))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, toScheduledTestDTO(t))
}

// updateTest godoc
// @Summary Replace a scheduled test
// @Tags admin
// @Accept json
// @Produce json
// @Param testId path string true "Scheduled test ID"
// @Param test body dto.ScheduledTestWriteDTO true "Scheduled test"
// @Success 200 {object} dto.ScheduledTestResponseDTO
// @Failure 409 {object} dto.ErrorResponseDTO "Quiz cannot change once attempts exist"
// @Router /admin/scheduled-tests/{testId} [put]
func (h *AdminScheduleHandler) updateTest(w http.ResponseWriter, r *http.Request) {
	var req dto.ScheduledTestWriteDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	t, err := h.schedules.Update(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "testId"), toScheduledTestInput(&req))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, toScheduledTestDTO(t))
}

// deleteTest godoc
// @Summary Delete a scheduled test
// @Tags admin
// @Param testId path string true "Scheduled test ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /admin/scheduled-tests/{testId} [delete]
func (h *AdminScheduleHandler) deleteTest(w http.ResponseWriter, r *http.Request) {
	if err := h.schedules.Delete(r.Context(), chi.URLParam(r, "testId")); err != nil {
		writeError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setStatus godoc
// @Summary Change a scheduled test's status
// @Tags admin
// @Accept json
// @Produce json
// @Param testId path string true "Scheduled test ID"
// @Param body body dto.ScheduledTestStatusDTO true "Status"
// @Success 200 {object} dto.ScheduledTestResponseDTO
// @Router /admin/scheduled-tests/{testId}/status [put]
func (h *AdminScheduleHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.ScheduledTestStatusDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	t, err := h.schedules.SetStatus(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "testId"), req.Status)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, toScheduledTestDTO(t))
}
