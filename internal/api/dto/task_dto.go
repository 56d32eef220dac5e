package dto

import (
	"time"

	"github.com/spec-kit/task-slot-service/internal/domain"
)

// SubmitTaskRequest payload.
type SubmitTaskRequest struct {
	TaskName      string `json:"task_name"`
	Description   string `json:"description"`
	ProjectNumber string `json:"project_number"`
	Notes         string `json:"notes"`
}

// UpdateTaskRequest payload.
type UpdateTaskRequest struct {
	TaskName      string `json:"task_name"`
	Description   string `json:"description"`
	ProjectNumber string `json:"project_number"`
	Notes         string `json:"notes"`
}

// TaskResponse describes a task.
type TaskResponse struct {
	ID            string            `json:"id"`
	TaskName      string            `json:"task_name"`
	Description   string            `json:"description"`
	ProjectNumber string            `json:"project_number,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	RequesterID   string            `json:"requester_id"`
	CertifierID   *string           `json:"certifier_id,omitempty"`
	Status        domain.TaskStatus `json:"status"`
	TimeSubmitted time.Time         `json:"time_submitted"`
	TimeCompleted *time.Time        `json:"time_completed,omitempty"`
	TimeRejected  *time.Time        `json:"time_rejected,omitempty"`
}

// TaskTransitionResponse couples a task with the resulting slot count.
type TaskTransitionResponse struct {
	Task      TaskResponse `json:"task"`
	SlotsLeft int          `json:"slots_left"`
}
