package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-slot-service/internal/api/http/handlers"
	"github.com/spec-kit/task-slot-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tasks          *handlers.TasksHandler
	CertifierTasks *handlers.CertifierTasksHandler
	Slots          *handlers.SlotsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	slots := app.Group("/slots", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	slots.Get("/:region/get", cfg.Slots.Get)
	slots.Get("/:region", cfg.Slots.Describe)
	slots.Post("/:region/:action", auth.RequireCertifier(), cfg.Slots.Adjust)

	tasks := app.Group("/tasks", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	tasks.Post("/", auth.RequireRequester(), cfg.Tasks.Submit)
	tasks.Get("/", cfg.Tasks.List)
	tasks.Get("/:id", cfg.Tasks.Get)
	tasks.Patch("/:id", auth.RequireRequester(), cfg.Tasks.Update)
	tasks.Delete("/:id", cfg.Tasks.Delete)

	tasks.Post("/:id/approve", auth.RequireCertifier(), cfg.CertifierTasks.Approve)
	tasks.Post("/:id/reject", auth.RequireCertifier(), cfg.CertifierTasks.Reject)
	tasks.Post("/:id/revive", auth.RequireCertifier(), cfg.CertifierTasks.Revive)
}
