package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"learngate/internal/api/v1/dto"
	"learngate/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponseDTO{Error: msg})
}

// writeError maps the service error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var limit *service.LimitExceededError
	switch {
	case errors.As(err, &limit):
		writeJSON(w, http.StatusTooManyRequests, dto.LimitExceededResponseDTO{
			Error: limit.Error(),
			Quota: toQuotaStatusDTO(&limit.Status),
		})
	case errors.Is(err, service.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error().Err(err).Msg("Unhandled error")
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation. It writes
// the 400 response itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON payload: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}
