package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserAdded      EventType = "user_added"
	EventPasswordReset  EventType = "password_reset"
	EventUserDeleted    EventType = "user_deleted"
)

// Actor is the authenticated caller behind an event, empty for self-service flows.
type Actor struct {
	Username string `json:"username,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Username  string      `json:"username"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps a fresh event with a random id.
func NewEvent(eventType EventType, username string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Username:  username,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// CredentialsPayload carries a freshly generated password to the mailer.
// It must never be logged.
type CredentialsPayload struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Password  string `json:"-"`
}

// UserDeletedPayload payload.
type UserDeletedPayload struct {
	ID int64 `json:"id"`
}
