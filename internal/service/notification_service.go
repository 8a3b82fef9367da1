package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/maputo/user-service/internal/config"
	"github.com/maputo/user-service/internal/events"
)

const newPasswordSubject = "Maputo, LLC - New Password"

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleCredentialsIssued)
	n.dispatcher.Subscribe(events.EventUserAdded, n.handleCredentialsIssued)
	n.dispatcher.Subscribe(events.EventPasswordReset, n.handleCredentialsIssued)
	n.dispatcher.Subscribe(events.EventUserDeleted, n.handleUserDeleted)
}

func (n *NotificationService) handleCredentialsIssued(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CredentialsPayload)
	if !ok {
		n.logger.Warn("unexpected payload", zap.String("event_type", string(event.Type)))
		return nil
	}
	n.logger.Info(string(event.Type), zap.String("username", event.Username), zap.String("actor", event.Actor.Username))
	n.sendEmailNotificationStub(ctx, event, payload)
	return nil
}

func (n *NotificationService) handleUserDeleted(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.Any("payload", event.Payload), zap.String("actor", event.Actor.Username))
	return nil
}

// The password is part of the mail body only; it is never logged.
func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event, payload events.CredentialsPayload) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || strings.TrimSpace(payload.Email) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", payload.Email),
		zap.String("subject", newPasswordSubject),
		zap.String("event_id", event.ID),
		zap.Int("body_length", len(newPasswordBody(payload))))
}

func newPasswordBody(p events.CredentialsPayload) string {
	return "Hello " + p.FirstName + ", \n\nYour new account password is: " + p.Password + "\n\nThe Support Team"
}
