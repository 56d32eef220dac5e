package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-slot-service/internal/api/dto"
	"github.com/spec-kit/task-slot-service/internal/auth"
	"github.com/spec-kit/task-slot-service/internal/domain"
	"github.com/spec-kit/task-slot-service/internal/service"
	apperrors "github.com/spec-kit/task-slot-service/pkg/util"
)

// SlotsHandler exposes the slot ledger over HTTP.
type SlotsHandler struct {
	service *service.SlotService
}

// NewSlotsHandler constructs handler.
func NewSlotsHandler(slotService *service.SlotService) *SlotsHandler {
	return &SlotsHandler{service: slotService}
}

// Get GET /slots/:region/get. Read-only, safe to poll.
func (h *SlotsHandler) Get(c *fiber.Ctx) error {
	region, err := parseRegion(c)
	if err != nil {
		return err
	}
	slotsLeft, err := h.service.Query(c.Context(), region)
	if err != nil {
		return err
	}
	return c.JSON(dto.SlotsResponse{SlotsLeft: slotsLeft})
}

// Describe GET /slots/:region. Full ledger row including last_updated.
func (h *SlotsHandler) Describe(c *fiber.Ctx) error {
	region, err := parseRegion(c)
	if err != nil {
		return err
	}
	record, err := h.service.Describe(c.Context(), region)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SlotRecordResponse{
		Region:      int(record.Region),
		SlotsLeft:   record.SlotsLeft,
		Capacity:    record.Capacity,
		LastUpdated: record.LastUpdated,
	}})
}

// Adjust POST /slots/:region/:action where action is increment or decrement.
// Certifier only; task transitions adjust the ledger through their own path.
func (h *SlotsHandler) Adjust(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Certifier == nil {
		return apperrors.NewUnauthorized("certifier required")
	}
	region, err := parseRegion(c)
	if err != nil {
		return err
	}

	var delta int
	switch c.Params("action") {
	case "increment":
		delta = +1
	case "decrement":
		delta = -1
	default:
		return apperrors.NewValidationError("action must be increment or decrement", map[string]any{
			"action": c.Params("action"),
		})
	}

	slotsLeft, err := h.service.Adjust(c.Context(), principal.Certifier, region, delta)
	if err != nil {
		return err
	}
	return c.JSON(dto.SlotsResponse{SlotsLeft: slotsLeft})
}

func parseRegion(c *fiber.Ctx) (domain.Region, error) {
	raw := c.Params("region")
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError("region must be an integer", map[string]any{"region": raw})
	}
	region := domain.Region(parsed)
	if !region.Valid() {
		return 0, apperrors.NewNotFound("region", map[string]any{"region": parsed})
	}
	return region, nil
}
