package queue

import (
	"context"

	"github.com/benvon/email-reminders/internal/services/badge"
	"github.com/benvon/email-reminders/internal/services/notify"
)

// NotificationPublisher is a notify.Notifier that hands notifications to
// desktop agents over the event exchange
type NotificationPublisher struct {
	publisher EventPublisher
}

// NewNotificationPublisher creates a notifier publishing through p
func NewNotificationPublisher(p EventPublisher) *NotificationPublisher {
	return &NotificationPublisher{publisher: p}
}

func (n *NotificationPublisher) Create(ctx context.Context, key string, notification notify.Notification) error {
	return n.publisher.Publish(ctx, NewNotificationEvent(key, notification))
}

func (n *NotificationPublisher) Clear(ctx context.Context, key string) error {
	return n.publisher.Publish(ctx, NewEvent(EventNotificationClear, key))
}

// BadgePublisher is a badge.Renderer that publishes badge changes
type BadgePublisher struct {
	publisher EventPublisher
}

// NewBadgePublisher creates a renderer publishing through p
func NewBadgePublisher(p EventPublisher) *BadgePublisher {
	return &BadgePublisher{publisher: p}
}

func (b *BadgePublisher) SetText(ctx context.Context, text string) error {
	e := NewEvent(EventBadgeText, "")
	e.Badge = &badge.Badge{Text: text}
	return b.publisher.Publish(ctx, e)
}

func (b *BadgePublisher) SetColor(ctx context.Context, color string) error {
	e := NewEvent(EventBadgeColor, "")
	e.Badge = &badge.Badge{Color: color}
	return b.publisher.Publish(ctx, e)
}

var (
	_ notify.Notifier = (*NotificationPublisher)(nil)
	_ badge.Renderer  = (*BadgePublisher)(nil)
)
