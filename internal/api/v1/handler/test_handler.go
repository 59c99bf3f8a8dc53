package handler

import (
	"net/http"

	"learngate/internal/api/v1/dto"
	"learngate/internal/clock"
	"learngate/internal/middleware"
	"learngate/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// TestHandler lists the scheduled tests a caller may take
type TestHandler struct {
	schedules service.ScheduleService
	clock     clock.Clock
	logger    zerolog.Logger
}

// NewTestHandler creates a new TestHandler
func NewTestHandler(schedules service.ScheduleService, clk clock.Clock, logger zerolog.Logger) *TestHandler {
	return &TestHandler{schedules: schedules, clock: clk, logger: logger.With().Str("handler", "TestHandler").Logger()}
}

// RegisterRoutes mounts scheduled-test routes for learners
func (h *TestHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tests/visible", h.listVisible)
}

// listVisible godoc
// @Summary List visible scheduled tests
// @Description Returns the scheduled tests visible to the caller now, active first, then due, then upcoming.
// @Tags tests
// @Produce json
// @Success 200 {array} dto.EligibleTestResponseDTO
// @Router /tests/visible [get]
func (h *TestHandler) listVisible(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	eligible, err := h.schedules.ListVisibleFor(r.Context(), userID, h.clock.Now())
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	out := make([]dto.EligibleTestResponseDTO, 0, len(eligible))
	for i := range eligible {
		e := &eligible[i]
		out = append(out, dto.EligibleTestResponseDTO{
			Test:          toScheduledTestDTO(&e.Test),
			InProgress:    toOptionalAttemptDTO(e.InProgress),
			LastCompleted: toOptionalAttemptDTO(e.LastCompleted),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
