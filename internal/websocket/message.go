package websocket

import (
	"encoding/json"

	"github.com/taskfolio/taskfolio-be/internal/models"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewTaskMessage encodes a task change notification.
func NewTaskMessage(action string, task models.Task) []byte {
	return marshal(Message{Action: action, Payload: task})
}

// NewEventMessage encodes an activity event notification.
func NewEventMessage(event models.Event) []byte {
	return marshal(Message{Action: "event", Payload: event})
}

// NewErrorMessage encodes an error notification.
func NewErrorMessage(msg string) []byte {
	return marshal(Message{Action: "error", Payload: msg})
}

func marshal(m Message) []byte {
	b, _ := json.Marshal(m)
	return b
}
