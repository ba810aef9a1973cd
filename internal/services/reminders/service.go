// Package reminders applies reminder operations and their side effects:
// mail store tags, the badge and notifications.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/email-reminders/internal/config"
	"github.com/benvon/email-reminders/internal/database"
	logpkg "github.com/benvon/email-reminders/internal/logger"
	"github.com/benvon/email-reminders/internal/models"
	"github.com/benvon/email-reminders/internal/services/badge"
	"github.com/benvon/email-reminders/internal/services/mailstore"
	"github.com/benvon/email-reminders/internal/services/notify"
	"github.com/benvon/email-reminders/internal/services/tags"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no reminder has the requested id
var ErrNotFound = errors.New("reminder not found")

// Dependencies wires a Service
type Dependencies struct {
	Reminders     database.ReminderRepositoryInterface
	Pending       database.PendingMessageRepositoryInterface
	Settings      database.SettingsRepositoryInterface
	MailStore     mailstore.Store
	Tags          *tags.Synchronizer
	Badge         *badge.Aggregator
	Notifications *notify.Dispatcher
	Location      *time.Location
	Now           func() time.Time
	Logger        *zap.Logger
}

// Service is the reminder lifecycle manager. Persistence errors are returned;
// tag, badge and notification failures are logged by their components and
// never fail an operation.
type Service struct {
	repo          database.ReminderRepositoryInterface
	pending       database.PendingMessageRepositoryInterface
	settings      database.SettingsRepositoryInterface
	mail          mailstore.Store
	tags          *tags.Synchronizer
	badge         *badge.Aggregator
	notifications *notify.Dispatcher
	loc           *time.Location
	now           func() time.Time
	logger        *zap.Logger
}

// NewService creates a reminder service
func NewService(d Dependencies) *Service {
	s := &Service{
		repo:          d.Reminders,
		pending:       d.Pending,
		settings:      d.Settings,
		mail:          d.MailStore,
		tags:          d.Tags,
		badge:         d.Badge,
		notifications: d.Notifications,
		loc:           d.Location,
		now:           d.Now,
		logger:        d.Logger,
	}
	if s.mail == nil {
		s.mail = mailstore.Disabled{}
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func mapNotFound(err error) error {
	if errors.Is(err, database.ErrReminderNotFound) {
		return ErrNotFound
	}
	return err
}

// Startup tags every message with an active reminder and renders the badge.
// Tags are only added here, never removed.
func (s *Service) Startup(ctx context.Context) {
	s.tags.SyncAll(ctx)
	s.badge.Refresh(ctx)
}

// Create stores a new pending reminder and tags its message
func (s *Service) Create(ctx context.Context, in models.NewReminderInput) (*models.Reminder, error) {
	r := models.NewReminder(in, s.now())
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	s.logger.Info("reminder_created",
		zap.String("reminder_id", logpkg.SanitizeID(r.ID)),
		zap.String("message_id", logpkg.SanitizeID(r.MessageID)),
		zap.Time("due_date", r.DueDate),
	)

	s.tags.AddTag(ctx, r.MessageID)
	s.badge.Refresh(ctx)
	return r, nil
}

// GetByID returns the reminder or ErrNotFound
func (s *Service) GetByID(ctx context.Context, id string) (*models.Reminder, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return r, nil
}

// List returns reminders matching filter in due order
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Reminder, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	if filter == "" || filter == models.FilterAll {
		return all, nil
	}

	filtered := make([]*models.Reminder, 0, len(all))
	for _, r := range all {
		if filter.Matches(r.Status) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Counts tallies reminders by status
func (s *Service) Counts(ctx context.Context) (models.Counts, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return models.Counts{}, fmt.Errorf("failed to list reminders: %w", err)
	}
	return models.ComputeCounts(all), nil
}

// Update merges patch into the reminder. It has no tag, badge or notification
// side effects.
func (s *Service) Update(ctx context.Context, id string, patch models.ReminderPatch) (*models.Reminder, error) {
	now := s.now()
	r, err := s.repo.Apply(ctx, id, func(r *models.Reminder) error {
		return patch.Apply(r, now)
	})
	if err != nil {
		return nil, mapNotFound(err)
	}
	s.logger.Debug("reminder_updated", zap.String("reminder_id", logpkg.SanitizeID(id)))
	return r, nil
}

// SetStatus is Update with only a status
func (s *Service) SetStatus(ctx context.Context, id string, status models.Status) (*models.Reminder, error) {
	return s.Update(ctx, id, models.ReminderPatch{Status: &status})
}

// Snooze moves the due date to now plus minutes. Non-positive values are
// accepted and leave the reminder due on the next check.
func (s *Service) Snooze(ctx context.Context, id string, minutes int) (*models.Reminder, error) {
	if minutes <= 0 {
		s.logger.Warn("snooze_non_positive_minutes",
			zap.String("reminder_id", logpkg.SanitizeID(id)),
			zap.Int("minutes", minutes),
		)
	}

	now := s.now()
	r, err := s.repo.Apply(ctx, id, func(r *models.Reminder) error {
		return r.Snooze(now, time.Duration(minutes)*time.Minute)
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	s.logger.Info("reminder_snoozed",
		zap.String("reminder_id", logpkg.SanitizeID(id)),
		zap.Int("minutes", minutes),
		zap.Int("snooze_count", r.SnoozeCount),
	)

	s.notifications.Clear(ctx, id)
	s.badge.Refresh(ctx)
	return r, nil
}

// Complete archives the reminder as done
func (s *Service) Complete(ctx context.Context, id string) (*models.Reminder, error) {
	return s.archive(ctx, id, "reminder_completed", (*models.Reminder).Complete)
}

// Dismiss archives the reminder without completing it
func (s *Service) Dismiss(ctx context.Context, id string) (*models.Reminder, error) {
	return s.archive(ctx, id, "reminder_dismissed", (*models.Reminder).Dismiss)
}

func (s *Service) archive(ctx context.Context, id, event string, transition func(*models.Reminder, time.Time) error) (*models.Reminder, error) {
	now := s.now()
	r, err := s.repo.Apply(ctx, id, func(r *models.Reminder) error {
		return transition(r, now)
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	s.logger.Info(event, zap.String("reminder_id", logpkg.SanitizeID(id)))

	s.notifications.Clear(ctx, id)
	s.tags.RemoveTagIfUnreferenced(ctx, r.MessageID, id)
	s.badge.Refresh(ctx)
	return r, nil
}

// Delete removes the reminder permanently
func (s *Service) Delete(ctx context.Context, id string) error {
	r, err := s.repo.Delete(ctx, id)
	if err != nil {
		return mapNotFound(err)
	}

	s.logger.Info("reminder_deleted", zap.String("reminder_id", logpkg.SanitizeID(id)))

	s.notifications.Clear(ctx, id)
	if r.Status.IsActive() {
		s.tags.RemoveTagIfUnreferenced(ctx, r.MessageID, id)
	}
	s.badge.Refresh(ctx)
	return nil
}

// Reactivate returns an archived reminder to pending. A nil due defaults to
// tomorrow at the configured default time.
func (s *Service) Reactivate(ctx context.Context, id string, due *time.Time) (*models.Reminder, error) {
	now := s.now()
	var dueDate time.Time
	if due != nil {
		dueDate = *due
	} else {
		d, err := s.tomorrowAtDefault(ctx, now)
		if err != nil {
			return nil, err
		}
		dueDate = d
	}

	r, err := s.repo.Apply(ctx, id, func(r *models.Reminder) error {
		return r.Reactivate(now, dueDate)
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	s.logger.Info("reminder_reactivated",
		zap.String("reminder_id", logpkg.SanitizeID(id)),
		zap.Time("due_date", r.DueDate),
	)

	s.tags.AddTag(ctx, r.MessageID)
	s.badge.Refresh(ctx)
	return r, nil
}

func (s *Service) tomorrowAtDefault(ctx context.Context, now time.Time) (time.Time, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load settings: %w", err)
	}
	hour, minute, err := config.ParseClock(settings.DefaultTime)
	if err != nil {
		hour, minute, _ = config.ParseClock(models.DefaultSettings().DefaultTime)
	}
	local := now.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, s.loc), nil
}

// OpenEmail opens the reminder's message in the viewer. Only a repository
// failure is returned; a missing reminder or message is logged.
func (s *Service) OpenEmail(ctx context.Context, id string) error {
	r, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, database.ErrReminderNotFound) {
		s.logger.Warn("open_email_reminder_missing", zap.String("reminder_id", logpkg.SanitizeID(id)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load reminder: %w", err)
	}
	s.openMessage(ctx, r)
	return nil
}

// openMessage tries the stored message id, then the stable header id
func (s *Service) openMessage(ctx context.Context, r *models.Reminder) bool {
	msg, err := s.mail.GetByID(ctx, r.MessageID)
	if err != nil {
		s.logger.Debug("message_id_stale",
			zap.String("reminder_id", logpkg.SanitizeID(r.ID)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		msg = nil
	}

	if msg == nil && r.MessageHeaderID != "" {
		msg, err = s.mail.FindByStableID(ctx, r.MessageHeaderID)
		if err != nil {
			msg = nil
		}
	}

	if msg == nil {
		s.logger.Warn("message_not_found", zap.String("reminder_id", logpkg.SanitizeID(r.ID)))
		return false
	}

	if err := s.mail.OpenInViewer(ctx, msg.ID); err != nil {
		s.logger.Warn("open_email_failed",
			zap.String("reminder_id", logpkg.SanitizeID(r.ID)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		return false
	}
	s.logger.Info("email_opened", zap.String("reminder_id", logpkg.SanitizeID(r.ID)))
	return true
}

// HandleNotificationClicked opens the message behind the notification and clears it
func (s *Service) HandleNotificationClicked(ctx context.Context, id string) {
	r, err := s.repo.GetByID(ctx, id)
	switch {
	case err == nil:
		s.openMessage(ctx, r)
	case errors.Is(err, database.ErrReminderNotFound):
		s.logger.Debug("notification_reminder_missing", zap.String("reminder_id", logpkg.SanitizeID(id)))
	default:
		s.logger.Warn("notification_click_failed",
			zap.String("reminder_id", logpkg.SanitizeID(id)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}
	s.notifications.Clear(ctx, id)
}

// HandleNotificationClosed leaves the reminder notified. The user can still
// act on it from a list.
func (s *Service) HandleNotificationClosed(_ context.Context, id string) {
	s.logger.Debug("notification_closed", zap.String("reminder_id", logpkg.SanitizeID(id)))
}

// HandleAction routes a notification button press
func (s *Service) HandleAction(ctx context.Context, action notify.Action) error {
	switch action.Kind {
	case notify.ActionOpen:
		s.HandleNotificationClicked(ctx, action.ReminderID)
		return nil
	case notify.ActionClosed:
		s.HandleNotificationClosed(ctx, action.ReminderID)
		return nil
	case notify.ActionSnooze:
		_, err := s.Snooze(ctx, action.ReminderID, action.Minutes)
		return err
	case notify.ActionComplete:
		_, err := s.Complete(ctx, action.ReminderID)
		return err
	case notify.ActionDismiss:
		_, err := s.Dismiss(ctx, action.ReminderID)
		return err
	default:
		return fmt.Errorf("unknown notification action %q", action.Kind)
	}
}

// SetPendingMessage records the message for the next reminder dialog
func (s *Service) SetPendingMessage(ctx context.Context, msg *models.PendingMessage) error {
	if err := s.pending.Put(ctx, msg); err != nil {
		return err
	}
	s.logger.Debug("pending_message_set", zap.String("message_id", logpkg.SanitizeID(msg.ID)))
	return nil
}

// TakePendingMessage returns the pending message once. It returns nil when none is set.
func (s *Service) TakePendingMessage(ctx context.Context) (*models.PendingMessage, error) {
	return s.pending.Take(ctx)
}

// Settings returns the stored preferences
func (s *Service) Settings(ctx context.Context) (models.Settings, error) {
	return s.settings.Get(ctx)
}

// SaveSettings stores preferences. A changed check interval applies on the next start.
func (s *Service) SaveSettings(ctx context.Context, settings models.Settings) error {
	if err := s.settings.Save(ctx, settings); err != nil {
		return err
	}
	s.logger.Info("settings_saved",
		zap.String("check_interval", settings.CheckInterval),
		zap.String("default_time", settings.DefaultTime),
	)
	return nil
}

// Export snapshots all reminders
func (s *Service) Export(ctx context.Context) (*models.ExportFile, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return &models.ExportFile{
		Version:    models.ExportVersion,
		ExportDate: s.now(),
		Reminders:  all,
	}, nil
}

// Import merges reminders into the store. Reminders whose id already exists are skipped.
func (s *Service) Import(ctx context.Context, reminders []*models.Reminder) (models.ImportResult, error) {
	added, result, err := s.repo.Merge(ctx, reminders)
	if err != nil {
		return models.ImportResult{}, fmt.Errorf("failed to import reminders: %w", err)
	}

	s.logger.Info("reminders_imported",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
	)

	for _, r := range added {
		if r.Status.IsActive() {
			s.tags.AddTag(ctx, r.MessageID)
		}
	}
	s.badge.Refresh(ctx)
	return result, nil
}

// ClearArchived deletes completed and dismissed reminders
func (s *Service) ClearArchived(ctx context.Context) (int, error) {
	return s.clear(ctx, func(r *models.Reminder) bool { return r.Status.IsArchived() })
}

// ClearAll deletes every reminder
func (s *Service) ClearAll(ctx context.Context) (int, error) {
	return s.clear(ctx, func(*models.Reminder) bool { return true })
}

func (s *Service) clear(ctx context.Context, pred func(*models.Reminder) bool) (int, error) {
	removed, err := s.repo.DeleteWhere(ctx, pred)
	if err != nil {
		return 0, fmt.Errorf("failed to clear reminders: %w", err)
	}

	checked := make(map[string]bool)
	for _, r := range removed {
		s.notifications.Clear(ctx, r.ID)
		if r.Status.IsActive() && !checked[r.MessageID] {
			checked[r.MessageID] = true
			s.tags.RemoveTagIfUnreferenced(ctx, r.MessageID, r.ID)
		}
	}

	s.logger.Info("reminders_cleared", zap.Int("count", len(removed)))
	s.badge.Refresh(ctx)
	return len(removed), nil
}
