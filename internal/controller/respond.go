package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", zap.Error(err))
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		validation *appErrors.ValidationError
		noAccount  *appErrors.AccountNotFoundError
		noEmail    *appErrors.ScheduledEmailNotFoundError
	)
	switch {
	case errors.As(err, &validation), errors.Is(err, appErrors.ErrIndexOutOfRange):
		return http.StatusBadRequest
	case errors.As(err, &noAccount), errors.As(err, &noEmail):
		return http.StatusNotFound
	case errors.Is(err, appErrors.ErrAccountExists),
		errors.Is(err, appErrors.ErrScheduledEmailNotDeletable),
		errors.Is(err, appErrors.ErrPassInProgress):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("❌ request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeBody decodes JSON into v, answering 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return false
	}
	return true
}
