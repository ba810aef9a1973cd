package queue

import (
	"time"

	"github.com/benvon/email-reminders/internal/services/badge"
	"github.com/benvon/email-reminders/internal/services/notify"
	"github.com/google/uuid"
)

// EventType is also the routing key the event is published with
type EventType string

const (
	// EventNotificationCreate asks a desktop agent to show a notification
	EventNotificationCreate EventType = "notification.create"
	// EventNotificationClear asks a desktop agent to remove a notification
	EventNotificationClear EventType = "notification.clear"
	// EventBadgeText sets the badge text
	EventBadgeText EventType = "badge.text"
	// EventBadgeColor sets the badge background colour
	EventBadgeColor EventType = "badge.color"

	// EventNotificationClicked is published by an agent when the user clicks a notification
	EventNotificationClicked EventType = "notification.clicked"
	// EventNotificationClosed is published by an agent when a notification is closed unanswered
	EventNotificationClosed EventType = "notification.closed"
	// EventNotificationAction is published by an agent for a notification button press
	EventNotificationAction EventType = "notification.action"
)

// notificationTTL bounds how long an undelivered notification stays meaningful
const notificationTTL = 24 * time.Hour

// Event is the JSON message exchanged with desktop agents
type Event struct {
	ID           uuid.UUID            `json:"id"`
	Type         EventType            `json:"type"`
	ReminderID   string               `json:"reminder_id,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
	Badge        *badge.Badge         `json:"badge,omitempty"`
	Action       *notify.Action       `json:"action,omitempty"`
	NotAfter     *time.Time           `json:"not_after,omitempty"` // nil = no expiration
	CreatedAt    time.Time            `json:"created_at"`
}

// NewEvent creates an event for reminderID
func NewEvent(eventType EventType, reminderID string) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		ReminderID: reminderID,
		CreatedAt:  time.Now(),
	}
}

// NewNotificationEvent creates a notification.create event that expires after a day
func NewNotificationEvent(reminderID string, n notify.Notification) *Event {
	e := NewEvent(EventNotificationCreate, reminderID)
	e.Notification = &n
	notAfter := e.CreatedAt.Add(notificationTTL)
	e.NotAfter = &notAfter
	return e
}

// IsExpired reports whether the event is past its NotAfter time
func (e *Event) IsExpired(now time.Time) bool {
	return e.NotAfter != nil && now.After(*e.NotAfter)
}

// ToAction converts an inbound agent event into a notification action.
// Events that name no reminder yield the zero Action and false.
func (e *Event) ToAction() (notify.Action, bool) {
	var a notify.Action
	switch e.Type {
	case EventNotificationClicked:
		a = notify.Action{Kind: notify.ActionOpen, ReminderID: e.ReminderID}
	case EventNotificationClosed:
		a = notify.Action{Kind: notify.ActionClosed, ReminderID: e.ReminderID}
	case EventNotificationAction:
		if e.Action == nil {
			return notify.Action{}, false
		}
		a = *e.Action
		if a.ReminderID == "" {
			a.ReminderID = e.ReminderID
		}
	default:
		return notify.Action{}, false
	}
	if a.ReminderID == "" {
		return notify.Action{}, false
	}
	return a, true
}
