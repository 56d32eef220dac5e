package worker

import (
	"github.com/spec-kit/task-slot-service/internal/service"
)

// StartEventWorkers registers event handlers for notifications and slot
// cache maintenance.
func StartEventWorkers(notificationService *service.NotificationService, slotService *service.SlotService) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if slotService != nil {
		slotService.RegisterHandlers()
	}
}
