package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	UserSignedUp          = "USER_SIGNED_UP"
	UserLoggedIn          = "USER_LOGGED_IN"
	UserLoggedOut         = "USER_LOGGED_OUT"
	EmailVerified         = "EMAIL_VERIFIED"
	ProfileUpdated        = "PROFILE_UPDATED"
	PasswordChanged       = "PASSWORD_CHANGED"
	ProfilePictureUpdated = "PROFILE_PICTURE_UPDATED"
	ChatCreated           = "CHAT_CREATED"
	ChatRenamed           = "CHAT_RENAMED"
	ChatDeleted           = "CHAT_DELETED"
)

// Event defines the contract for all domain events.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// ForUser builds an event about uid. The user id travels in the payload
// under "user_id".
func ForUser(eventType string, uid uuid.UUID, at time.Time, data map[string]interface{}) BaseEvent {
	payload := map[string]interface{}{"user_id": uid.String()}
	for k, v := range data {
		payload[k] = v
	}
	return BaseEvent{Type: eventType, Data: payload, OccurredAt: at}
}

// UserID reads the user id back out of an event payload.
func UserID(e Event) (uuid.UUID, bool) {
	raw, ok := e.Payload()["user_id"].(string)
	if !ok {
		return uuid.Nil, false
	}
	uid, err := uuid.Parse(raw)
	return uid, err == nil
}

// Envelope is the wire form of an event.
type Envelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func ToEnvelope(e Event) Envelope {
	return Envelope{Type: e.EventType(), Data: e.Payload(), OccurredAt: e.Timestamp()}
}

func (e Envelope) Event() BaseEvent {
	return BaseEvent{Type: e.Type, Data: e.Data, OccurredAt: e.OccurredAt}
}

// Subject is the bus subject an event type is published on.
func Subject(eventType string) string {
	return "events." + eventType
}

type Handler func(ctx context.Context, event Event) error

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Subscriber interface {
	// Subscribe delivers events matching subject to handler until ctx ends.
	// A handler error asks for redelivery where the bus supports it.
	Subscribe(ctx context.Context, subject, durableName string, handler Handler) error
}
