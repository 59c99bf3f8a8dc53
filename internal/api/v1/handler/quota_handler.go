package handler

import (
	"net/http"

	"learngate/internal/api/v1/dto"
	"learngate/internal/clock"
	"learngate/internal/middleware"
	"learngate/internal/model"
	"learngate/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// QuotaHandler exposes the caller's daily quotas
type QuotaHandler struct {
	quota  service.QuotaService
	clock  clock.Clock
	logger zerolog.Logger
}

// NewQuotaHandler creates a new QuotaHandler
func NewQuotaHandler(quota service.QuotaService, clk clock.Clock, logger zerolog.Logger) *QuotaHandler {
	return &QuotaHandler{quota: quota, clock: clk, logger: logger.With().Str("handler", "QuotaHandler").Logger()}
}

// RegisterRoutes mounts quota routes
func (h *QuotaHandler) RegisterRoutes(r chi.Router) {
	r.Get("/quota", h.getSummary)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireModule("quiz"))
		r.Get("/quota/quiz", h.getQuiz)
		r.Post("/quota/quiz/increment", h.incrementQuiz)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireModule("topic"))
		r.Get("/quota/topic", h.getTopic)
		r.Post("/quota/topic/increment", h.incrementTopic)
		r.Post("/topics/{topicId}/access", h.accessTopic)
	})
}

// getSummary godoc
// @Summary Get today's quotas
// @Description Returns quiz and topic quota state for the authenticated user for the current day.
// @Tags quota
// @Produce json
// @Success 200 {object} dto.QuotaSummaryResponseDTO
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {object} dto.ErrorResponseDTO
// @Router /quota [get]
func (h *QuotaHandler) getSummary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	sum, err := h.quota.Summary(r.Context(), userID, h.clock.Today())
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dto.QuotaSummaryResponseDTO{
		Day:   sum.Day,
		Quiz:  toQuotaStatusDTO(&sum.Quiz),
		Topic: toQuotaStatusDTO(&sum.Topic),
	})
}

func (h *QuotaHandler) check(w http.ResponseWriter, r *http.Request, kind model.QuotaKind) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	checkFn := h.quota.CheckQuiz
	if kind == model.QuotaTopic {
		checkFn = h.quota.CheckTopic
	}
	st, err := checkFn(r.Context(), userID, h.clock.Today())
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, toQuotaStatusDTO(st))
}

// getQuiz godoc
// @Summary Check the quiz quota
// @Tags quota
// @Produce json
// @Success 200 {object} dto.QuotaStatusResponseDTO
// @Failure 403 {string} string "No access to the quiz module"
// @Router /quota/quiz [get]
func (h *QuotaHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, model.QuotaQuiz)
}

// getTopic godoc
// @Summary Check the topic quota
// @Tags quota
// @Produce json
// @Success 200 {object} dto.QuotaStatusResponseDTO
// @Failure 403 {string} string "No access to the topic module"
// @Router /quota/topic [get]
func (h *QuotaHandler) getTopic(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, model.QuotaTopic)
}

func (h *QuotaHandler) increment(w http.ResponseWriter, r *http.Request, kind model.QuotaKind) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	recordFn := h.quota.RecordQuiz
	if kind == model.QuotaTopic {
		recordFn = h.quota.RecordTopic
	}
	writeJSON(w, http.StatusOK, toRecordedQuotaDTO(recordFn(r.Context(), userID, h.clock.Today())))
}

// incrementQuiz godoc
// @Summary Record one quiz use
// @Description Increments today's quiz counter. Recording is best effort; check the recorded flag.
// @Tags quota
// @Produce json
// @Success 200 {object} dto.QuotaStatusResponseDTO
// @Router /quota/quiz/increment [post]
func (h *QuotaHandler) incrementQuiz(w http.ResponseWriter, r *http.Request) {
	h.increment(w, r, model.QuotaQuiz)
}

// incrementTopic godoc
// @Summary Record one topic view
// @Tags quota
// @Produce json
// @Success 200 {object} dto.QuotaStatusResponseDTO
// @Router /quota/topic/increment [post]
func (h *QuotaHandler) incrementTopic(w http.ResponseWriter, r *http.Request) {
	h.increment(w, r, model.QuotaTopic)
}

// accessTopic godoc
// @Summary Open a topic
// @Description Checks the topic quota and, when allowed, records the view.
// @Tags quota
// @Produce json
// @Param topicId path string true "Topic ID"
// @Success 200 {object} dto.TopicAccessResponseDTO
// @Failure 429 {object} dto.LimitExceededResponseDTO
// @Router /topics/{topicId}/access [post]
func (h *QuotaHandler) accessTopic(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized: User ID not found in context")
		return
	}
	topicID := chi.URLParam(r, "topicId")
	day := h.clock.Today()
	if _, err := h.quota.RequireTopic(r.Context(), userID, day); err != nil {
		writeError(w, err, h.logger)
		return
	}
	st := h.quota.RecordTopic(r.Context(), userID, day)
	h.logger.Debug().Str("user_id", userID).Str("topic_id", topicID).Int("remaining", st.Remaining).Msg("Topic access granted")
	writeJSON(w, http.StatusOK, dto.TopicAccessResponseDTO{TopicID: topicID, Quota: toRecordedQuotaDTO(st)})
}
