package worker

import (
	"go.uber.org/zap"

	"github.com/maputo/user-service/internal/config"
	"github.com/maputo/user-service/internal/events"
	"github.com/maputo/user-service/internal/service"
)

// StartNotificationWorker wires the mailer onto the dispatcher. A nil
// dispatcher disables notifications.
func StartNotificationWorker(dispatcher events.Dispatcher, cfg config.NotificationConfig, logger *zap.Logger) *service.NotificationService {
	if dispatcher == nil {
		return nil
	}
	notifications := service.NewNotificationService(dispatcher, logger.Named("notifications"), cfg)
	notifications.RegisterHandlers()
	logger.Info("notification worker started", zap.String("from", cfg.EmailFrom))
	return notifications
}
