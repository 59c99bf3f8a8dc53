package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"learngate/internal/api/v1/dto"
	"learngate/internal/model"
	"learngate/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// DLQHandler receives dead-lettered completion events pushed by Pub/Sub
type DLQHandler struct {
	service  service.DLQService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewDLQHandler creates a new DLQHandler
func NewDLQHandler(s service.DLQService, validate *validator.Validate, logger zerolog.Logger) *DLQHandler {
	return &DLQHandler{service: s, validate: validate, logger: logger.With().Str("handler", "DLQHandler").Logger()}
}

// RegisterRoutes mounts the push endpoint behind the Pub/Sub auth middleware
func (h *DLQHandler) RegisterRoutes(r chi.Router, pubsubAuthMw func(http.Handler) http.Handler) {
	r.With(pubsubAuthMw).Post("/dlq/record", h.recordDLQ)
}

// RegisterAdminRoutes mounts dead-letter inspection routes
func (h *DLQHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/dead-letters", h.listDeadLetters)
	r.Put("/dead-letters/{id}/status", h.setDeadLetterStatus)
}

// recordDLQ godoc
// @Summary Record a dead-lettered message
// @Description Stores a Pub/Sub push message from the dead-letter subscription.
// @Tags dlq
// @Accept json
// @Param body body dto.PubSubPushRequest true "Pub/Sub push envelope"
// @Success 204
// @Failure 400 {object} dto.ErrorResponseDTO "Invalid Pub/Sub message format"
// @Router /dlq/record [post]
func (h *DLQHandler) recordDLQ(w http.ResponseWriter, r *http.Request) {
	var req dto.PubSubPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid Pub/Sub message format: "+err.Error())
		return
	}
	if req.Message.MessageID == "" {
		writeMessage(w, http.StatusBadRequest, "Invalid Pub/Sub message format: missing message ID")
		return
	}

	h.logger.Info().
		Str("messageId", req.Message.MessageID).
		Str("subscription", req.Subscription).
		Msg("Processing dead-letter queue message")

	if err := h.service.ProcessAndSave(r.Context(), &req); err != nil {
		// Acknowledge anyway so Pub/Sub does not redeliver a message that is already dead-lettered.
		h.logger.Error().Err(err).Str("messageId", req.Message.MessageID).Msg("Failed to save DLQ message to database")
	}
	w.WriteHeader(http.StatusNoContent)
}

// listDeadLetters godoc
// @Summary List dead letters
// @Description Newest first. Filter by status (unprocessed, replayed, discarded).
// @Tags admin
// @Produce json
// @Param status query string false "Status filter"
// @Param limit query int false "Page size (max 200)"
// @Param offset query int false "Offset"
// @Success 200 {array} dto.DeadLetterResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Router /admin/dead-letters [get]
func (h *DLQHandler) listDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit, okLimit := queryInt(r, "limit")
	offset, okOffset := queryInt(r, "offset")
	if !okLimit || !okOffset {
		writeMessage(w, http.StatusBadRequest, "limit and offset must be non-negative integers")
		return
	}
	msgs, err := h.service.List(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	out := make([]dto.DeadLetterResponseDTO, 0, len(msgs))
	for i := range msgs {
		out = append(out, h.toDeadLetterDTO(&msgs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// setDeadLetterStatus godoc
// @Summary Mark a dead letter replayed or discarded
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Dead letter ID"
// @Param body body dto.DeadLetterStatusDTO true "Status"
// @Success 200 {object} dto.DeadLetterResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /admin/dead-letters/{id}/status [put]
func (h *DLQHandler) setDeadLetterStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid dead letter id")
		return
	}
	var req dto.DeadLetterStatusDTO
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	m, err := h.service.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, h.toDeadLetterDTO(m))
}

func (h *DLQHandler) toDeadLetterDTO(m *model.DeadLetterMessage) dto.DeadLetterResponseDTO {
	out := dto.DeadLetterResponseDTO{
		ID:        m.ID,
		Source:    m.Source,
		MessageID: m.MessageID,
		Payload:   m.Payload,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Attributes != nil {
		if err := json.Unmarshal([]byte(*m.Attributes), &out.Attributes); err != nil {
			h.logger.Warn().Err(err).Int64("id", m.ID).Msg("Stored dead letter attributes are not a JSON object")
		}
	}
	return out
}
