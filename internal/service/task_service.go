package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-slot-service/internal/config"
	"github.com/spec-kit/task-slot-service/internal/domain"
	"github.com/spec-kit/task-slot-service/internal/events"
	"github.com/spec-kit/task-slot-service/internal/repository"
	apperrors "github.com/spec-kit/task-slot-service/pkg/util"
)

// TaskService is the task lifecycle controller. Every transition writes the
// task row and applies the correlated slot delta inside one unit of work, so
// the ledger and the task store can never drift apart.
type TaskService struct {
	store                   repository.Store
	dispatcher              events.Dispatcher
	reviveCompletedConsumes bool
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
}

// TaskSubmitInput describes task submission payload.
type TaskSubmitInput struct {
	Name          string
	Description   string
	ProjectNumber string
	Notes         string
}

// TaskUpdateInput describes editable task fields.
type TaskUpdateInput struct {
	Name          string
	Description   string
	ProjectNumber string
	Notes         string
}

// NewTaskService constructs the service.
func NewTaskService(cfg config.SlotsConfig, deps TaskDependencies) *TaskService {
	return &TaskService{
		store:                   deps.Store,
		dispatcher:              deps.Dispatcher,
		reviveCompletedConsumes: cfg.ReviveCompletedConsumes,
	}
}

// Submit creates an active task for the requester and consumes one slot from
// the requester's region. Fails with SLOT_EXHAUSTED when the region is empty;
// in that case no task record is created.
func (s *TaskService) Submit(ctx context.Context, requester *domain.Requester, input TaskSubmitInput) (*domain.Task, int, error) {
	if requester == nil {
		return nil, 0, apperrors.NewUnauthorized("requester required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, 0, apperrors.NewValidationError("task name is required", nil)
	}
	if !requester.Region.Valid() {
		return nil, 0, apperrors.NewNotFound("region", map[string]any{"region": int(requester.Region)})
	}

	task := &domain.Task{
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		ProjectNumber: input.ProjectNumber,
		Notes:         input.Notes,
		RequesterID:   requester.ID,
		Status:        domain.TaskStatusActive,
	}

	var slotsLeft int
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		left, err := tx.Slots().Adjust(ctx, requester.Region, -1)
		if err != nil {
			return mapSlotError(err, requester.Region)
		}
		slotsLeft = left
		return tx.Tasks().Create(ctx, task)
	})
	if err != nil {
		return nil, 0, err
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventTaskSubmitted,
		TaskID: task.ID,
		Region: int(requester.Region),
		Actor:  requesterActor(requester),
		Payload: events.TaskSubmittedPayload{
			TaskName:  task.Name,
			SlotsLeft: slotsLeft,
		},
	})
	return task, slotsLeft, nil
}

// Approve moves an active task to completed. The slot stays consumed, but the
// ledger timestamp is refreshed by a zero-delta adjustment.
func (s *TaskService) Approve(ctx context.Context, certifier *domain.Certifier, taskID string) (*domain.Task, int, error) {
	return s.transition(ctx, certifier, taskID, domain.TaskStatusCompleted)
}

// Reject moves an active task to rejected and releases its slot.
func (s *TaskService) Reject(ctx context.Context, certifier *domain.Certifier, taskID string) (*domain.Task, int, error) {
	return s.transition(ctx, certifier, taskID, domain.TaskStatusRejected)
}

// Revive returns a rejected or completed task to active. Reviving a rejected
// task always re-consumes a slot; for completed tasks the policy flag decides.
func (s *TaskService) Revive(ctx context.Context, certifier *domain.Certifier, taskID string) (*domain.Task, int, error) {
	return s.transition(ctx, certifier, taskID, domain.TaskStatusActive)
}

func (s *TaskService) transition(ctx context.Context, certifier *domain.Certifier, taskID string, newStatus domain.TaskStatus) (*domain.Task, int, error) {
	if certifier == nil {
		return nil, 0, apperrors.NewUnauthorized("certifier required")
	}

	var (
		task      *domain.Task
		region    domain.Region
		oldStatus domain.TaskStatus
		slotsLeft int
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		task, region, err = s.loadTaskWithRegion(ctx, tx, taskID)
		if err != nil {
			return err
		}
		oldStatus = task.Status

		delta, err := s.slotDelta(task.Status, newStatus)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.Tasks().UpdateStatus(ctx, task.ID, newStatus, &certifier.ID, now); err != nil {
			return err
		}
		left, err := tx.Slots().Adjust(ctx, region, delta)
		if err != nil {
			return mapSlotError(err, region)
		}
		slotsLeft = left

		task.Status = newStatus
		task.CertifierID = &certifier.ID
		task.TimeCompleted = nil
		task.TimeRejected = nil
		switch newStatus {
		case domain.TaskStatusCompleted:
			task.TimeCompleted = &now
		case domain.TaskStatusRejected:
			task.TimeRejected = &now
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.publishStatusChange(ctx, task, region, oldStatus, newStatus, slotsLeft, certifierActor(certifier))
	return task, slotsLeft, nil
}

// slotDelta validates the transition precondition and returns the correlated
// slot delta for the task's region.
func (s *TaskService) slotDelta(current, next domain.TaskStatus) (int, error) {
	switch {
	case current == domain.TaskStatusActive && next == domain.TaskStatusCompleted:
		return 0, nil
	case current == domain.TaskStatusActive && next == domain.TaskStatusRejected:
		return +1, nil
	case current == domain.TaskStatusRejected && next == domain.TaskStatusActive:
		return -1, nil
	case current == domain.TaskStatusCompleted && next == domain.TaskStatusActive:
		if s.reviveCompletedConsumes {
			return -1, nil
		}
		return 0, nil
	default:
		return 0, apperrors.NewInvalidTransition("invalid status transition", map[string]any{
			"from": current,
			"to":   next,
		})
	}
}

// UpdateTask edits task details for its owner. Updating a rejected task
// revives it, re-consuming a slot in the requester's region.
func (s *TaskService) UpdateTask(ctx context.Context, requester *domain.Requester, taskID string, input TaskUpdateInput) (*domain.Task, error) {
	if requester == nil {
		return nil, apperrors.NewUnauthorized("requester required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("task name is required", nil)
	}

	var (
		task      *domain.Task
		revived   bool
		slotsLeft int
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		task, err = s.loadOwnedTask(ctx, tx, requester, taskID)
		if err != nil {
			return err
		}

		task.Name = strings.TrimSpace(input.Name)
		task.Description = input.Description
		task.ProjectNumber = input.ProjectNumber
		task.Notes = input.Notes
		if err := tx.Tasks().UpdateDetails(ctx, task); err != nil {
			return err
		}

		if task.Status != domain.TaskStatusRejected {
			return nil
		}

		now := time.Now().UTC()
		if err := tx.Tasks().UpdateStatus(ctx, task.ID, domain.TaskStatusActive, nil, now); err != nil {
			return err
		}
		slotsLeft, err = tx.Slots().Adjust(ctx, requester.Region, -1)
		if err != nil {
			return mapSlotError(err, requester.Region)
		}
		revived = true
		task.Status = domain.TaskStatusActive
		task.TimeRejected = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	if revived {
		s.publishStatusChange(ctx, task, requester.Region, domain.TaskStatusRejected, task.Status, slotsLeft, requesterActor(requester))
	}
	return task, nil
}

// DeleteForRequester removes the requester's own task, releasing its slot if
// it was active.
func (s *TaskService) DeleteForRequester(ctx context.Context, requester *domain.Requester, taskID string) error {
	if requester == nil {
		return apperrors.NewUnauthorized("requester required")
	}
	return s.delete(ctx, taskID, requesterActor(requester), func(tx repository.Store) (*domain.Task, domain.Region, error) {
		task, err := s.loadOwnedTask(ctx, tx, requester, taskID)
		if err != nil {
			return nil, 0, err
		}
		return task, requester.Region, nil
	})
}

// DeleteForCertifier removes any task, releasing its slot if it was active.
func (s *TaskService) DeleteForCertifier(ctx context.Context, certifier *domain.Certifier, taskID string) error {
	if certifier == nil {
		return apperrors.NewUnauthorized("certifier required")
	}
	return s.delete(ctx, taskID, certifierActor(certifier), func(tx repository.Store) (*domain.Task, domain.Region, error) {
		return s.loadTaskWithRegion(ctx, tx, taskID)
	})
}

func (s *TaskService) delete(ctx context.Context, taskID string, actor events.Actor, load func(repository.Store) (*domain.Task, domain.Region, error)) error {
	var (
		task      *domain.Task
		region    domain.Region
		slotsLeft int
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		task, region, err = load(tx)
		if err != nil {
			return err
		}

		if err := tx.Tasks().Delete(ctx, task.ID); err != nil {
			return err
		}

		delta := 0
		if task.Active() {
			delta = +1
		}
		slotsLeft, err = tx.Slots().Adjust(ctx, region, delta)
		if err != nil {
			return mapSlotError(err, region)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventTaskDeleted,
		TaskID: task.ID,
		Region: int(region),
		Actor:  actor,
		Payload: events.TaskDeletedPayload{
			LastStatus: task.Status,
			SlotsLeft:  slotsLeft,
		},
	})
	return nil
}

// GetTaskForRequester fetches a task ensuring ownership.
func (s *TaskService) GetTaskForRequester(ctx context.Context, requester *domain.Requester, taskID string) (*domain.Task, error) {
	if requester == nil {
		return nil, apperrors.NewUnauthorized("requester required")
	}
	return s.loadOwnedTask(ctx, s.store, requester, taskID)
}

// GetTaskForCertifier fetches any task.
func (s *TaskService) GetTaskForCertifier(ctx context.Context, certifier *domain.Certifier, taskID string) (*domain.Task, error) {
	if certifier == nil {
		return nil, apperrors.NewUnauthorized("certifier required")
	}
	task, _, err := s.loadTaskWithRegion(ctx, s.store, taskID)
	return task, err
}

// ListRequesterTasks returns the requester's own tasks ordered by submission
// time.
func (s *TaskService) ListRequesterTasks(ctx context.Context, requester *domain.Requester, statuses []domain.TaskStatus) ([]domain.Task, error) {
	if requester == nil {
		return nil, apperrors.NewUnauthorized("requester required")
	}
	return s.store.Tasks().List(ctx, repository.TaskFilter{
		RequesterID: &requester.ID,
		Statuses:    statuses,
	})
}

// ListAllTasks returns every task; certifiers see the full board.
func (s *TaskService) ListAllTasks(ctx context.Context, certifier *domain.Certifier, statuses []domain.TaskStatus) ([]domain.Task, error) {
	if certifier == nil {
		return nil, apperrors.NewUnauthorized("certifier required")
	}
	return s.store.Tasks().List(ctx, repository.TaskFilter{Statuses: statuses})
}

func (s *TaskService) loadOwnedTask(ctx context.Context, tx repository.Store, requester *domain.Requester, taskID string) (*domain.Task, error) {
	task, err := tx.Tasks().GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", map[string]any{"task_id": taskID})
		}
		return nil, err
	}
	if task.RequesterID != requester.ID {
		return nil, apperrors.NewForbidden("task belongs to another requester")
	}
	return task, nil
}

func (s *TaskService) loadTaskWithRegion(ctx context.Context, tx repository.Store, taskID string) (*domain.Task, domain.Region, error) {
	task, err := tx.Tasks().GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, apperrors.NewNotFound("task", map[string]any{"task_id": taskID})
		}
		return nil, 0, err
	}
	requester, err := tx.Requesters().GetByID(ctx, task.RequesterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, apperrors.NewNotFound("requester", map[string]any{"requester_id": task.RequesterID})
		}
		return nil, 0, err
	}
	return task, requester.Region, nil
}

func (s *TaskService) publishStatusChange(ctx context.Context, task *domain.Task, region domain.Region, oldStatus, newStatus domain.TaskStatus, slotsLeft int, actor events.Actor) {
	s.publishEvent(ctx, events.Event{
		Type:   events.EventTaskStatusChanged,
		TaskID: task.ID,
		Region: int(region),
		Actor:  actor,
		Payload: events.TaskStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			SlotsLeft: slotsLeft,
		},
	})
}

func (s *TaskService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func requesterActor(requester *domain.Requester) events.Actor {
	return events.Actor{Role: domain.RoleRequester, UserID: requester.UserID}
}

func certifierActor(certifier *domain.Certifier) events.Actor {
	return events.Actor{Role: domain.RoleCertifier, UserID: certifier.UserID}
}

// mapSlotError converts a missing ledger row into NOT_FOUND; exhaustion and
// overflow already arrive as domain errors from the repository.
func mapSlotError(err error, region domain.Region) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("region", map[string]any{"region": int(region)})
	}
	return err
}
