package domain

import "time"

// TaskStatus enumerates task lifecycle states.
type TaskStatus string

const (
	TaskStatusActive    TaskStatus = "active"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusRejected  TaskStatus = "rejected"
)

// Valid reports whether the status is one of the three lifecycle states.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusActive, TaskStatusCompleted, TaskStatusRejected:
		return true
	default:
		return false
	}
}

// Task is owned by exactly one requester and acted on by certifiers.
//
// Invariant: TimeCompleted is non-nil iff Status is completed, TimeRejected
// is non-nil iff Status is rejected, and both are nil while active.
type Task struct {
	ID            string
	Name          string
	Description   string
	ProjectNumber string
	Notes         string
	RequesterID   string
	CertifierID   *string
	Status        TaskStatus
	TimeSubmitted time.Time
	TimeCompleted *time.Time
	TimeRejected  *time.Time
}

// Active reports whether the task currently occupies a slot.
func (t *Task) Active() bool {
	return t.Status == TaskStatusActive
}
