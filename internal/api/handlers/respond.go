package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskfolio/taskfolio-be/internal/services"
)

// respondJSON writes v as a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// respondError translates a service error into an HTTP status. Input errors
// surface their message; anything unexpected becomes a generic 500 so no
// internal detail leaks.
func respondError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrOwnership):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	default:
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
