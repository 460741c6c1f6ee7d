package models

import "time"

// Event represents a loggable action in the system, scoped to the user it
// concerns. UserID is nil for system-wide events.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g. "task.create", "user.login"
	Level     string    `json:"level"` // "info", "warn", "error"
	Message   string    `json:"message"`
	UserID    *int64    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
