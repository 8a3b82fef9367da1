package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/maputo/user-service/internal/config"
	"github.com/maputo/user-service/internal/events"
)

func TestNotificationService_MailsCredentialsWithoutLoggingThem(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	n := NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{EmailFrom: "support@maputo.example"})
	n.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.NewEvent(events.EventPasswordReset, "rick", events.Actor{}, events.CredentialsPayload{
		FirstName: "Rick",
		Email:     "rick@citadel.io",
		Password:  "S3cretPass",
	}))
	require.NoError(t, err)

	mails := logs.FilterMessage("sendEmailNotificationStub").All()
	require.Len(t, mails, 1)
	fields := mails[0].ContextMap()
	assert.Equal(t, "rick@citadel.io", fields["to"])
	assert.Equal(t, newPasswordSubject, fields["subject"])

	for _, entry := range logs.All() {
		for _, v := range entry.ContextMap() {
			assert.NotContains(t, fmt.Sprint(v), "S3cretPass")
		}
	}
}

func TestNotificationService_SkipsWithoutSender(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{}).RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventUserRegistered, "morty", events.Actor{}, events.CredentialsPayload{Email: "morty@citadel.io"})))
	assert.Zero(t, logs.FilterMessage("sendEmailNotificationStub").Len())
	assert.Equal(t, 1, logs.FilterMessage(string(events.EventUserRegistered)).Len())
}

func TestNewPasswordBody(t *testing.T) {
	body := newPasswordBody(events.CredentialsPayload{FirstName: "Rick", Password: "abc"})
	assert.Contains(t, body, "Hello Rick")
	assert.Contains(t, body, "Your new account password is: abc")
}
