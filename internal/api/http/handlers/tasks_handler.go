package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-slot-service/internal/api/dto"
	"github.com/spec-kit/task-slot-service/internal/auth"
	"github.com/spec-kit/task-slot-service/internal/domain"
	"github.com/spec-kit/task-slot-service/internal/service"
	apperrors "github.com/spec-kit/task-slot-service/pkg/util"
)

// TasksHandler manages requester task endpoints.
type TasksHandler struct {
	service *service.TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService) *TasksHandler {
	return &TasksHandler{service: taskService}
}

// Submit POST /tasks.
func (h *TasksHandler) Submit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Requester == nil {
		return apperrors.NewUnauthorized("requester required")
	}
	var req dto.SubmitTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	task, slotsLeft, err := h.service.Submit(c.Context(), principal.Requester, service.TaskSubmitInput{
		Name:          req.TaskName,
		Description:   req.Description,
		ProjectNumber: req.ProjectNumber,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.TaskTransitionResponse{
		Task:      taskResponse(task),
		SlotsLeft: slotsLeft,
	}})
}

// List GET /tasks. Requesters see their own tasks, certifiers the full board.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	statuses := parseStatusQuery(c)

	var (
		tasks []domain.Task
		err   error
	)
	switch {
	case principal.Certifier != nil:
		tasks, err = h.service.ListAllTasks(c.Context(), principal.Certifier, statuses)
	case principal.Requester != nil:
		tasks, err = h.service.ListRequesterTasks(c.Context(), principal.Requester, statuses)
	default:
		return apperrors.NewUnauthorized("unknown role")
	}
	if err != nil {
		return err
	}

	items := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, taskResponse(&tasks[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tasks/:id.
func (h *TasksHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var (
		task *domain.Task
		err  error
	)
	switch {
	case principal.Certifier != nil:
		task, err = h.service.GetTaskForCertifier(c.Context(), principal.Certifier, c.Params("id"))
	case principal.Requester != nil:
		task, err = h.service.GetTaskForRequester(c.Context(), principal.Requester, c.Params("id"))
	default:
		return apperrors.NewUnauthorized("unknown role")
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponse(task)})
}

// Update PATCH /tasks/:id. Editing a rejected task revives it.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Requester == nil {
		return apperrors.NewUnauthorized("requester required")
	}
	var req dto.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	task, err := h.service.UpdateTask(c.Context(), principal.Requester, c.Params("id"), service.TaskUpdateInput{
		Name:          req.TaskName,
		Description:   req.Description,
		ProjectNumber: req.ProjectNumber,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponse(task)})
}

// Delete DELETE /tasks/:id.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var err error
	switch {
	case principal.Certifier != nil:
		err = h.service.DeleteForCertifier(c.Context(), principal.Certifier, c.Params("id"))
	case principal.Requester != nil:
		err = h.service.DeleteForRequester(c.Context(), principal.Requester, c.Params("id"))
	default:
		return apperrors.NewUnauthorized("unknown role")
	}
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseStatusQuery(c *fiber.Ctx) []domain.TaskStatus {
	raw := c.Query("status")
	if raw == "" {
		return nil
	}
	var statuses []domain.TaskStatus
	for _, part := range strings.Split(raw, ",") {
		status := domain.TaskStatus(strings.TrimSpace(part))
		if status.Valid() {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

func taskResponse(task *domain.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:            task.ID,
		TaskName:      task.Name,
		Description:   task.Description,
		ProjectNumber: task.ProjectNumber,
		Notes:         task.Notes,
		RequesterID:   task.RequesterID,
		CertifierID:   task.CertifierID,
		Status:        task.Status,
		TimeSubmitted: task.TimeSubmitted,
		TimeCompleted: task.TimeCompleted,
		TimeRejected:  task.TimeRejected,
	}
}
