package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered      EventType = "user_registered"
	EventLoginSucceeded      EventType = "login_succeeded"
	EventLoginFailed         EventType = "login_failed"
	EventAccountLocked       EventType = "account_locked"
	EventLoginRejectedLocked EventType = "login_rejected_locked"
)

// AllEventTypes lists every auth event, for subscribers interested in all of them.
var AllEventTypes = []EventType{
	EventUserRegistered,
	EventLoginSucceeded,
	EventLoginFailed,
	EventAccountLocked,
	EventLoginRejectedLocked,
}

// Event represents an authentication event emitted by the auth service.
// Payloads never carry passwords or password hashes.
type Event struct {
	ID          string     `json:"id"`
	Type        EventType  `json:"type"`
	Email       string     `json:"email"`
	UserID      string     `json:"user_id,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	Attempts    int        `json:"attempts,omitempty"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, email, userID string, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Email:     email,
		UserID:    userID,
		Timestamp: at,
	}
}
