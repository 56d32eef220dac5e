package events

import (
	"time"

	"github.com/spec-kit/task-slot-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskSubmitted     EventType = "task_submitted"
	EventTaskStatusChanged EventType = "task_status_changed"
	EventTaskDeleted       EventType = "task_deleted"
	EventSlotsAdjusted     EventType = "slots_adjusted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role   domain.Role `json:"role"`
	UserID string      `json:"user_id"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TaskID    string      `json:"task_id,omitempty"`
	Region    int         `json:"region"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TaskSubmittedPayload payload.
type TaskSubmittedPayload struct {
	TaskName  string `json:"task_name"`
	SlotsLeft int    `json:"slots_left"`
}

// TaskStatusChangedPayload payload.
type TaskStatusChangedPayload struct {
	OldStatus domain.TaskStatus `json:"old_status"`
	NewStatus domain.TaskStatus `json:"new_status"`
	SlotsLeft int               `json:"slots_left"`
}

// TaskDeletedPayload payload.
type TaskDeletedPayload struct {
	LastStatus domain.TaskStatus `json:"last_status"`
	SlotsLeft  int               `json:"slots_left"`
}

// SlotsAdjustedPayload payload.
type SlotsAdjustedPayload struct {
	Delta     int `json:"delta"`
	SlotsLeft int `json:"slots_left"`
}
