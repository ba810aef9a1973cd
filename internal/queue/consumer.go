package queue

import (
	"context"
	"fmt"

	logpkg "github.com/benvon/email-reminders/internal/logger"
	"github.com/benvon/email-reminders/internal/services/notify"
	"go.uber.org/zap"
)

// Consumer is the receiving side of an EventQueue
type Consumer interface {
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)
}

// ConsumeActions routes inbound agent events to handle until ctx is done or
// the delivery channel closes. Handled events are acked; events that cannot be
// turned into an action, or whose handler fails, are dead-lettered.
func ConsumeActions(ctx context.Context, c Consumer, handle notify.ActionHandler, logger *zap.Logger) error {
	msgs, errs, err := c.Consume(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to start consuming actions: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if ok && err != nil {
				return err
			}
			errs = nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			processMessage(ctx, msg, handle, logger)
		}
	}
}

func processMessage(ctx context.Context, msg MessageInterface, handle notify.ActionHandler, logger *zap.Logger) {
	event := msg.GetEvent()
	action, ok := event.ToAction()
	if !ok {
		logger.Warn("event_not_an_action",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", string(event.Type)),
		)
		_ = msg.Nack(false)
		return
	}

	if err := handle(ctx, action); err != nil {
		logger.Warn("event_action_failed",
			zap.String("reminder_id", logpkg.SanitizeID(action.ReminderID)),
			zap.String("action", string(action.Kind)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		_ = msg.Nack(false)
		return
	}

	if err := msg.Ack(); err != nil {
		logger.Warn("event_ack_failed", zap.String("error", logpkg.SanitizeError(err)))
	}
}
