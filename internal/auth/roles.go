package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-slot-service/internal/domain"
)

// RequireRequester ensures a requester is authenticated.
func RequireRequester() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Role != domain.RoleRequester || principal.Requester == nil {
			return fiber.NewError(http.StatusForbidden, "requester required")
		}
		return c.Next()
	}
}

// RequireCertifier ensures the caller holds certifier privileges.
func RequireCertifier() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Role != domain.RoleCertifier || principal.Certifier == nil {
			return fiber.NewError(http.StatusForbidden, "certifier required")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures the caller is authenticated with either role.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}
