package handler

import (
	"net/http"

	"learngate/internal/api/v1/dto"
	"learngate/internal/middleware"
	"learngate/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AdminPlanHandler manages plans and user plan assignments
type AdminPlanHandler struct {
	plans    service.PlanService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAdminPlanHandler creates a new AdminPlanHandler
func NewAdminPlanHandler(plans service.PlanService, validate *validator.Validate, logger zerolog.Logger) *AdminPlanHandler {
	return &AdminPlanHandler{plans: plans, validate: validate, logger: logger.With().Str("handler", "AdminPlanHandler").Logger()}
}

// RegisterRoutes mounts plan administration routes. The caller applies the admin guard.
func (h *AdminPlanHandler) RegisterRoutes(r chi.Router) {
	r.Get("/plans", h.listPlans)
	r.Post("/plans", h.createPlan)
	r.Get("/plans/{planId}", h.getPlan)
	r.Put("/plans/{planId}", h.updatePlan)
	r.Delete("/plans/{planId}", h.deletePlan)

	r.Get("/users/{userId}/plan", h.getUserPlan)
	r.Put("/users/{userId}/plan", h.assignUserPlan)
	r.Delete("/users/{userId}/plan", h.unassignUserPlan)
}

// listPlans godoc
// @Summary List plans
// @Tags admin
// @Produce json
// @Success 200 {array} dto.PlanResponseDTO
// @Router /admin/plans [get]
func (h *AdminPlanHandler) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListPlans(r.Context())
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	out := make([]dto.PlanResponseDTO, 0, len(plans))
	for i := range plans {
		out = append(out, toPlanDTO(&plans[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// createPlan godoc
// @Summary Create a plan
// @Tags admin
// @Accept json
// @Produce json
// @Param plan body dto.PlanCreateDTO true "Plan"
// @Success 201 {object} dto.PlanResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 409 {object} dto.ErrorResponseDTO "Plan name already exists"
// @Router /admin/plans [post]
func (h *AdminPlanHandler) createPlan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanCreateDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	p, err := h.plans.CreatePlan(r.Context(), service.PlanInput{
		Name:            req.Name,
		DailyQuizLimit:  req.DailyQuizLimit,
		DailyTopicLimit: req.DailyTopicLimit,
		MonthlyCost:     req.MonthlyCost,
		Status:          req.Status,
	})
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanDTO(p))
}

// getPlan godoc
// @Summary Get a plan
// @Tags admin
// @Produce json
// @Param planId path string true "Plan ID"
// @Success 200 {object} dto.PlanResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /admin/plans/{planId} [get]
func (h *AdminPlanHandler) getPlan(w http.ResponseWriter, r *http.Request) {
	p, err := h.plans.GetPlan(r.Context(), chi.URLParam(r, "planId"))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(p))
}

// updatePlan godoc
// @Summary Update a plan
// @Description Only the fields present in the body change. The Freemium plan cannot be deactivated.
// @Tags admin
// @Accept json
// @Produce json
// @Param planId path string true "Plan ID"
// @Param plan body dto.PlanUpdateDTO true "Changes"
// @Success 200 {object} dto.PlanResponseDTO
// @Failure 409 {object} dto.ErrorResponseDTO
// @Router /admin/plans/{planId} [put]
func (h *AdminPlanHandler) updatePlan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanUpdateDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	p, err := h.plans.UpdatePlan(r.Context(), chi.URLParam(r, "planId"), service.PlanPatch{
		Name:            req.Name,
		DailyQuizLimit:  req.DailyQuizLimit,
		DailyTopicLimit: req.DailyTopicLimit,
		MonthlyCost:     req.MonthlyCost,
		Status:          req.Status,
	})
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(p))
}

// deletePlan godoc
// @Summary Delete a plan
// @Description Removes an unused plan; a plan still referenced by users or scheduled tests is deactivated instead.
// @Tags admin
// @Produce json
// @Param planId path string true "Plan ID"
// @Success 200 {object} dto.PlanDeleteResponseDTO
// @Failure 409 {object} dto.ErrorResponseDTO "The Freemium plan cannot be deleted"
// @Router /admin/plans/{planId} [delete]
func (h *AdminPlanHandler) deletePlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planId")
	removed, err := h.plans.DeletePlan(r.Context(), planID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.PlanDeleteResponseDTO{ID: planID, Removed: removed})
}

// getUserPlan godoc
// @Summary Get a user's plan
// @Description Returns the stored assignment together with the plan that is in effect.
// @Tags admin
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} dto.PlanAssignmentResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO "User has no explicit assignment"
// @Router /admin/users/{userId}/plan [get]
func (h *AdminPlanHandler) getUserPlan(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	a, err := h.plans.GetAssignment(r.Context(), userID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	active, err := h.plans.GetActivePlan(r.Context(), userID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	plan := toPlanDTO(active)
	writeJSON(w, http.StatusOK, dto.PlanAssignmentResponseDTO{
		UserID:     a.UserID,
		PlanID:     a.PlanID,
		AssignedAt: a.AssignedAt,
		AssignedBy: a.AssignedBy,
		Plan:       &plan,
	})
}

// assignUserPlan godoc
// @Summary Assign a plan to a user
// @Description Replaces any previous assignment.
// @Tags admin
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param body body dto.AssignPlanDTO true "Plan"
// @Success 200 {object} dto.PlanAssignmentResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO "Plan not found"
// @Failure 409 {object} dto.ErrorResponseDTO "Plan is inactive"
// @Router /admin/users/{userId}/plan [put]
func (h *AdminPlanHandler) assignUserPlan(w http.ResponseWriter, r *http.Request) {
	var req dto.AssignPlanDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	var assignedBy *string
	if actor := middleware.UserID(r.Context()); actor != "" {
		assignedBy = &actor
	}
	a, err := h.plans.Assign(r.Context(), chi.URLParam(r, "userId"), req.PlanID, assignedBy)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.PlanAssignmentResponseDTO{
		UserID:     a.UserID,
		PlanID:     a.PlanID,
		AssignedAt: a.AssignedAt,
		AssignedBy: a.AssignedBy,
	})
}

// unassignUserPlan godoc
// @Summary Remove a user's plan assignment
// @Description The user falls back to the Freemium plan.
// @Tags admin
// @Param userId path string true "User ID"
// @Success 204
// @Router /admin/users/{userId}/plan [delete]
func (h *AdminPlanHandler) unassignUserPlan(w http.ResponseWriter, r *http.Request) {
	if err := h.plans.Unassign(r.Context(), chi.URLParam(r, "userId")); err != nil {
		writeError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
