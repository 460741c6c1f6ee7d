package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/taskfolio/taskfolio-be/internal/auth"
	"github.com/taskfolio/taskfolio-be/internal/models"
	"github.com/taskfolio/taskfolio-be/internal/services"
)

// TaskHandler handles HTTP requests for task management. Every operation is
// scoped to the authenticated user from the request context.
type TaskHandler struct {
	service services.TaskServiceProvider
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// TaskPayload defines the structure for create and update requests.
type TaskPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"` // YYYY-MM-DD
}

// GetAll handles the request to list the caller's tasks.
func (h *TaskHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	tasks, err := h.service.ListForOwner(claims.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to list tasks")
		respondError(w, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	respondJSON(w, http.StatusOK, tasks)
}

// Create handles the request to create a new task owned by the caller.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	var payload TaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.service.Create(claims.UserID, payload.Name, payload.Description, payload.DueDate)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", claims.UserID).Msg("Failed to create task")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// Get handles the request to retrieve a single task.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, taskID, ok := h.taskRequest(w, r)
	if !ok {
		return
	}

	task, err := h.service.Get(taskID, claims.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// Update handles the request to overwrite a task's mutable fields.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, taskID, ok := h.taskRequest(w, r)
	if !ok {
		return
	}

	var payload TaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.service.Update(taskID, claims.UserID, payload.Name, payload.Description, payload.DueDate)
	if err != nil {
		log.Warn().Err(err).Int64("task_id", taskID).Int64("user_id", claims.UserID).Msg("Failed to update task")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// Delete handles the request to remove a task permanently.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, taskID, ok := h.taskRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(taskID, claims.UserID); err != nil {
		log.Warn().Err(err).Int64("task_id", taskID).Int64("user_id", claims.UserID).Msg("Failed to delete task")
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// taskRequest extracts the authenticated claims and the task id URL
// parameter, writing the error response itself when either is missing.
func (h *TaskHandler) taskRequest(w http.ResponseWriter, r *http.Request) (*auth.Claims, int64, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return nil, 0, false
	}

	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid task id", http.StatusBadRequest)
		return nil, 0, false
	}
	return claims, taskID, true
}
