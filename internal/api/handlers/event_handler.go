package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/taskfolio/taskfolio-be/internal/auth"
	"github.com/taskfolio/taskfolio-be/internal/models"
	"github.com/taskfolio/taskfolio-be/internal/services"
)

// EventHandler handles HTTP requests for the caller's activity log.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get the caller's recent activity.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	limitStr := r.URL.Query().Get("limit")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 20 // Default limit
	}

	events, err := h.service.GetRecentEventsForUser(claims.UserID, limit)
	if err != nil {
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to retrieve events")
		respondError(w, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}

	respondJSON(w, http.StatusOK, events)
}
