package models

import "time"

// DueDateLayout is the calendar-date format tasks use on the wire and in the
// database (ISO 8601, date only).
const DueDateLayout = "2006-01-02"

// Limits carried over from the original schema.
const (
	TaskNameMaxLen        = 150
	TaskDescriptionMaxLen = 500
)

// Task is a dated to-do item owned by exactly one user.
type Task struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DueDate     string    `json:"dueDate"` // YYYY-MM-DD
	OwnerID     int64     `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
}
