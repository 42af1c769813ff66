package automation

import (
	"wacrm/internal/config_handler"
	"wacrm/internal/logger"
	"wacrm/pkg/models"
)

type ConfigHandler = config_handler.Handler

// NewConfigHandler reloads the service's segments on every segment config
// event.
func NewConfigHandler(service *Service, log logger.Logger) *ConfigHandler {
	return config_handler.NewHandler(models.EventTypeSegmentUpdated, service, log)
}
