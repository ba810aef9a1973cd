// Package notify shows one notification per due reminder, keyed by reminder id.
package notify

import (
	"context"
	"fmt"

	logpkg "github.com/benvon/email-reminders/internal/logger"
	"github.com/benvon/email-reminders/internal/models"
	"go.uber.org/zap"
)

// Title is used for every reminder notification
const Title = "Email Reminder"

const (
	maxSubjectRunes  = 50
	keptSubjectRunes = 47
)

// Notification is the content shown to the user
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Notifier displays and removes notifications. Creating a notification under
// an existing key replaces it.
type Notifier interface {
	Create(ctx context.Context, key string, n Notification) error
	Clear(ctx context.Context, key string) error
}

// TruncateSubject shortens subjects longer than 50 characters to 47 plus "..."
func TruncateSubject(subject string) string {
	runes := []rune(subject)
	if len(runes) <= maxSubjectRunes {
		return subject
	}
	return string(runes[:keptSubjectRunes]) + "..."
}

// Build renders the notification for a reminder
func Build(r *models.Reminder) Notification {
	return Notification{
		Title:   Title,
		Message: fmt.Sprintf("%s\nFrom: %s", TruncateSubject(r.Subject), r.Sender),
	}
}

// Dispatcher fires and clears reminder notifications
type Dispatcher struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher over notifier
func NewDispatcher(notifier Notifier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, logger: logger}
}

// Fire shows the notification for r. The error is returned so the caller can
// leave the reminder unfired and retry on the next check.
func (d *Dispatcher) Fire(ctx context.Context, r *models.Reminder) error {
	if err := d.notifier.Create(ctx, r.ID, Build(r)); err != nil {
		return fmt.Errorf("failed to create notification for %s: %w", r.ID, err)
	}
	d.logger.Info("notification_fired",
		zap.String("reminder_id", logpkg.SanitizeID(r.ID)),
		zap.String("subject", logpkg.SanitizeSubject(r.Subject)),
	)
	return nil
}

// Clear removes the notification for a reminder. Failures are logged.
func (d *Dispatcher) Clear(ctx context.Context, reminderID string) {
	if err := d.notifier.Clear(ctx, reminderID); err != nil {
		d.logger.Warn("notification_clear_failed",
			zap.String("reminder_id", logpkg.SanitizeID(reminderID)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}
}

// LogNotifier writes notifications to the log instead of displaying them
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Create(_ context.Context, key string, notification Notification) error {
	n.logger.Info("notification",
		zap.String("key", logpkg.SanitizeID(key)),
		zap.String("title", notification.Title),
		zap.String("message", logpkg.SanitizeSubject(notification.Message)),
	)
	return nil
}

func (n *LogNotifier) Clear(_ context.Context, key string) error {
	n.logger.Debug("notification_cleared", zap.String("key", logpkg.SanitizeID(key)))
	return nil
}
