package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-slot-service/internal/api/dto"
	"github.com/spec-kit/task-slot-service/internal/domain"
	"github.com/spec-kit/task-slot-service/internal/service"
	apperrors "github.com/spec-kit/task-slot-service/pkg/util"
)

// UsersHandler manages registration and login endpoints.
type UsersHandler struct {
	authService *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{authService: authService}
}

// Register POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, requester, err := h.authService.RegisterRequester(
		c.Context(), req.Name, req.Password, domain.Region(req.Region), req.Location)
	if err != nil {
		return err
	}

	region := int(requester.Region)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Role:      domain.RoleRequester,
		Region:    &region,
		Location:  requester.Location,
		CreatedAt: user.CreatedAt,
	}})
}

// Login POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" || req.Password == "" {
		return apperrors.NewValidationError("name and password required", nil)
	}

	user, role, token, err := h.authService.Login(c.Context(), req.Name, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		User: dto.UserResponse{
			ID:        user.ID,
			Name:      user.Name,
			Role:      role,
			CreatedAt: user.CreatedAt,
		},
		Token: token,
	}})
}
