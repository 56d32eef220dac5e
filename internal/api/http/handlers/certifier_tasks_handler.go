package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-slot-service/internal/api/dto"
	"github.com/spec-kit/task-slot-service/internal/auth"
	"github.com/spec-kit/task-slot-service/internal/domain"
	"github.com/spec-kit/task-slot-service/internal/service"
	apperrors "github.com/spec-kit/task-slot-service/pkg/util"
)

// CertifierTasksHandler manages certifier transition endpoints.
type CertifierTasksHandler struct {
	service *service.TaskService
}

// NewCertifierTasksHandler constructs handler.
func NewCertifierTasksHandler(taskService *service.TaskService) *CertifierTasksHandler {
	return &CertifierTasksHandler{service: taskService}
}

// Approve POST /tasks/:id/approve.
func (h *CertifierTasksHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, h.service.Approve)
}

// Reject POST /tasks/:id/reject.
func (h *CertifierTasksHandler) Reject(c *fiber.Ctx) error {
	return h.transition(c, h.service.Reject)
}

// Revive POST /tasks/:id/revive.
func (h *CertifierTasksHandler) Revive(c *fiber.Ctx) error {
	return h.transition(c, h.service.Revive)
}

func (h *CertifierTasksHandler) transition(c *fiber.Ctx, apply func(ctx context.Context, certifier *domain.Certifier, taskID string) (*domain.Task, int, error)) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Certifier == nil {
		return apperrors.NewUnauthorized("certifier required")
	}

	task, slotsLeft, err := apply(c.Context(), principal.Certifier, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TaskTransitionResponse{
		Task:      taskResponse(task),
		SlotsLeft: slotsLeft,
	}})
}
