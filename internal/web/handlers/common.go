package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/registration"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

const errScreenNotFound = "screen not found"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// ValidationResponse is returned with 422 when a registration form is rejected.
type ValidationResponse struct {
	Error  string                   `json:"error"`
	Fields registration.FieldErrors `json:"fields"`
}

// respondControllerError maps an error returned by a screen controller to
// an HTTP status.
func respondControllerError(w http.ResponseWriter, err error) {
	var verr *registration.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, ValidationResponse{Error: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, recognition.ErrDeviceNotReady):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrClosed):
		respondError(w, http.StatusNotFound, errScreenNotFound)
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
