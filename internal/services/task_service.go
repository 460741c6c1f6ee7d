package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskfolio/taskfolio-be/internal/models"
	"github.com/taskfolio/taskfolio-be/internal/websocket"
)

// TaskServiceProvider defines the interface for task services. All operations
// are scoped to the owner performing them; acting on another user's task
// yields ErrOwnership.
type TaskServiceProvider interface {
	Create(ownerID int64, name, description, dueDate string) (models.Task, error)
	ListForOwner(ownerID int64) ([]models.Task, error)
	Get(taskID, ownerID int64) (models.Task, error)
	Update(taskID, ownerID int64, name, description, dueDate string) (models.Task, error)
	Delete(taskID, ownerID int64) error
	ListDueOnOrBefore(date string) ([]models.Task, error)
}

// TaskService provides business logic for task management.
type TaskService struct {
	db       *sql.DB
	eventSvc EventServiceProvider
	hub      *websocket.Hub
}

// NewTaskService creates a new TaskService.
func NewTaskService(db *sql.DB, eventSvc EventServiceProvider, hub *websocket.Hub) *TaskService {
	return &TaskService{db: db, eventSvc: eventSvc, hub: hub}
}

// validateTaskFields checks name, description and due date, returning the
// due date normalized to YYYY-MM-DD.
func validateTaskFields(name, description, dueDate string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: task name is required", ErrValidation)
	}
	if len(name) > models.TaskNameMaxLen {
		return "", fmt.Errorf("%w: task name exceeds %d characters", ErrValidation, models.TaskNameMaxLen)
	}
	if strings.TrimSpace(description) == "" {
		return "", fmt.Errorf("%w: task description is required", ErrValidation)
	}
	if len(description) > models.TaskDescriptionMaxLen {
		return "", fmt.Errorf("%w: task description exceeds %d characters", ErrValidation, models.TaskDescriptionMaxLen)
	}
	parsed, err := time.Parse(models.DueDateLayout, dueDate)
	if err != nil {
		return "", fmt.Errorf("%w: invalid date format, use YYYY-MM-DD", ErrValidation)
	}
	return parsed.Format(models.DueDateLayout), nil
}

// Create validates the fields and persists a new task for the given owner.
func (s *TaskService) Create(ownerID int64, name, description, dueDate string) (models.Task, error) {
	normalized, err := validateTaskFields(name, description, dueDate)
	if err != nil {
		return models.Task{}, err
	}

	stmt, err := s.db.Prepare("INSERT INTO tasks (name, description, due_date, user_id) VALUES (?, ?, ?, ?)")
	if err != nil {
		return models.Task{}, err
	}
	defer stmt.Close()

	res, err := stmt.Exec(name, description, normalized, ownerID)
	if err != nil {
		return models.Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, err
	}

	task, err := s.getByID(id)
	if err != nil {
		return models.Task{}, err
	}

	s.eventSvc.CreateEvent("task.create", "info", fmt.Sprintf("Task '%s' created.", task.Name), &ownerID)
	s.notify("task_created", task)
	return task, nil
}

// ListForOwner retrieves all tasks belonging to the given owner.
func (s *TaskService) ListForOwner(ownerID int64) ([]models.Task, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, due_date, user_id, created_at
		FROM tasks WHERE user_id = ? ORDER BY due_date, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Get retrieves a single task, verifying it belongs to the given owner.
func (s *TaskService) Get(taskID, ownerID int64) (models.Task, error) {
	task, err := s.getByID(taskID)
	if err != nil {
		return models.Task{}, err
	}
	if task.OwnerID != ownerID {
		return models.Task{}, fmt.Errorf("%w: task %d", ErrOwnership, taskID)
	}
	return task, nil
}

// Update overwrites the mutable fields of a task. The owner reference is
// never touched; concurrent updates resolve as last writer wins.
func (s *TaskService) Update(taskID, ownerID int64, name, description, dueDate string) (models.Task, error) {
	normalized, err := validateTaskFields(name, description, dueDate)
	if err != nil {
		return models.Task{}, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.Task{}, err
	}
	defer tx.Rollback()

	if err := s.checkOwner(tx, taskID, ownerID); err != nil {
		return models.Task{}, err
	}

	if _, err := tx.Exec("UPDATE tasks SET name = ?, description = ?, due_date = ? WHERE id = ?",
		name, description, normalized, taskID); err != nil {
		return models.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Task{}, err
	}

	task, err := s.getByID(taskID)
	if err != nil {
		return models.Task{}, err
	}

	s.eventSvc.CreateEvent("task.update", "info", fmt.Sprintf("Task '%s' updated.", task.Name), &ownerID)
	s.notify("task_updated", task)
	return task, nil
}

// Delete removes a task permanently after verifying ownership.
func (s *TaskService) Delete(taskID, ownerID int64) error {
	task, err := s.getByID(taskID)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.checkOwner(tx, taskID, ownerID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM tasks WHERE id = ?", taskID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.eventSvc.CreateEvent("task.delete", "warn", fmt.Sprintf("Task '%s' was deleted.", task.Name), &ownerID)
	s.notify("task_deleted", task)
	return nil
}

// ListDueOnOrBefore retrieves tasks of every user whose due date is on or
// before the given ISO date. Used by the reminder sweep.
func (s *TaskService) ListDueOnOrBefore(date string) ([]models.Task, error) {
	if _, err := time.Parse(models.DueDateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: invalid date format, use YYYY-MM-DD", ErrValidation)
	}

	rows, err := s.db.Query(`
		SELECT id, name, description, due_date, user_id, created_at
		FROM tasks WHERE due_date <= ? ORDER BY due_date, id`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// checkOwner verifies inside the transaction that the task exists and belongs
// to ownerID.
func (s *TaskService) checkOwner(tx *sql.Tx, taskID, ownerID int64) error {
	var owner int64
	err := tx.QueryRow("SELECT user_id FROM tasks WHERE id = ?", taskID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: task %d", ErrNotFound, taskID)
		}
		return err
	}
	if owner != ownerID {
		return fmt.Errorf("%w: task %d", ErrOwnership, taskID)
	}
	return nil
}

func (s *TaskService) getByID(taskID int64) (models.Task, error) {
	row := s.db.QueryRow(`
		SELECT id, name, description, due_date, user_id, created_at
		FROM tasks WHERE id = ?`, taskID)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, fmt.Errorf("%w: task %d", ErrNotFound, taskID)
		}
		return models.Task{}, err
	}
	return task, nil
}

// notify pushes a task change to the owner's connected websocket clients.
func (s *TaskService) notify(action string, task models.Task) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToUser(task.OwnerID, websocket.NewTaskMessage(action, task))
}

func scanTask(scanner interface{ Scan(...interface{}) error }) (models.Task, error) {
	var task models.Task
	err := scanner.Scan(&task.ID, &task.Name, &task.Description, &task.DueDate, &task.OwnerID, &task.CreatedAt)
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}
