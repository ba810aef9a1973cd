package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	logpkg "github.com/benvon/email-reminders/internal/logger"
	"github.com/benvon/email-reminders/internal/models"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DueRepository is the subset of the reminder repository the checker needs
type DueRepository interface {
	List(ctx context.Context) ([]*models.Reminder, error)
	Apply(ctx context.Context, id string, fn func(*models.Reminder) error) (*models.Reminder, error)
}

// Firer shows and clears reminder notifications
type Firer interface {
	Fire(ctx context.Context, r *models.Reminder) error
	Clear(ctx context.Context, reminderID string)
}

// BadgeRefresher recomputes the badge
type BadgeRefresher interface {
	Refresh(ctx context.Context)
}

// DueChecker fires notifications for reminders whose due date has passed and
// marks them notified
type DueChecker struct {
	repo   DueRepository
	firer  Firer
	badge  BadgeRefresher
	now    func() time.Time
	logger *zap.Logger
}

// NewDueChecker creates a due checker. A nil now uses time.Now.
func NewDueChecker(repo DueRepository, firer Firer, badge BadgeRefresher, now func() time.Time, logger *zap.Logger) *DueChecker {
	if now == nil {
		now = time.Now
	}
	return &DueChecker{
		repo:   repo,
		firer:  firer,
		badge:  badge,
		now:    now,
		logger: logger,
	}
}

// CheckDue runs one pass and returns how many reminders moved to notified.
//
// A reminder is only marked notified after its notification was shown; if
// showing fails it stays due and is retried on the next pass. The transition is
// re-checked against the stored record, so a reminder the user snoozed or
// archived during the pass is left alone and its notification is cleared.
func (c *DueChecker) CheckDue(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("email-reminders/workers").Start(ctx, "DueChecker.CheckDue")
	defer span.End()

	reminders, err := c.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return 0, fmt.Errorf("failed to list reminders: %w", err)
	}

	now := c.now()
	fired := 0
	for _, r := range reminders {
		if !r.IsDue(now) {
			continue
		}

		if err := c.firer.Fire(ctx, r); err != nil {
			c.logger.Warn("notification_fire_failed",
				zap.String("reminder_id", logpkg.SanitizeID(r.ID)),
				zap.String("error", logpkg.SanitizeError(err)),
			)
			continue
		}

		_, err := c.repo.Apply(ctx, r.ID, func(stored *models.Reminder) error {
			return stored.MarkNotified(now)
		})
		switch {
		case err == nil:
			fired++
		case errors.Is(err, models.ErrInvalidTransition):
			// Changed by the user since the list was read.
			c.logger.Info("due_reminder_changed_during_check", zap.String("reminder_id", logpkg.SanitizeID(r.ID)))
			c.firer.Clear(ctx, r.ID)
		default:
			c.logger.Warn("mark_notified_failed",
				zap.String("reminder_id", logpkg.SanitizeID(r.ID)),
				zap.String("error", logpkg.SanitizeError(err)),
			)
		}
	}

	span.SetAttributes(
		attribute.Int("reminders.scanned", len(reminders)),
		attribute.Int("reminders.fired", fired),
	)

	if fired > 0 {
		c.logger.Info("due_reminders_fired", zap.Int("count", fired))
		c.badge.Refresh(ctx)
	}
	return fired, nil
}

func (c *DueChecker) runOnce(ctx context.Context) {
	if _, err := c.CheckDue(ctx); err != nil {
		c.logger.Error("due_check_failed", zap.String("error", logpkg.SanitizeError(err)))
	}
}

// Start checks immediately and then every interval until ctx is done
func (c *DueChecker) Start(ctx context.Context, interval time.Duration, loc *time.Location) error {
	if interval < time.Minute {
		return fmt.Errorf("check interval must be at least 1m, got %s", interval)
	}
	if loc == nil {
		loc = time.Local
	}

	c.runOnce(ctx)

	scheduler := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{c.logger.Sugar()})),
	)
	if _, err := scheduler.AddFunc("@every "+interval.String(), func() { c.runOnce(ctx) }); err != nil {
		return fmt.Errorf("add due check: %w", err)
	}

	scheduler.Start()
	c.logger.Info("due_checker_started", zap.Duration("interval", interval))

	<-ctx.Done()
	<-scheduler.Stop().Done()
	c.logger.Info("due_checker_stopped")
	return nil
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron_"+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron_"+msg, append(keysAndValues, "error", logpkg.SanitizeError(err))...)
}

var _ cron.Logger = cronLogger{}
