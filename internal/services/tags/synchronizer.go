// Package tags keeps a "has an active reminder" tag on source messages.
package tags

import (
	"context"
	"slices"
	"sync"

	logpkg "github.com/benvon/email-reminders/internal/logger"
	"github.com/benvon/email-reminders/internal/models"
	"github.com/benvon/email-reminders/internal/services/mailstore"
	"go.uber.org/zap"
)

// ReminderLister supplies the current reminders for reference counting
type ReminderLister interface {
	List(ctx context.Context) ([]*models.Reminder, error)
}

// Synchronizer adds the reminder tag to a message while at least one active
// reminder references it and removes it when none does. Reference counts are
// recomputed from the full reminder list on every removal.
//
// Tag writes are serialised. A reminder is persisted before AddTag runs, so an
// add racing a removal either shows up in the removal's rescan or re-adds the
// tag after it.
//
// Every method is best effort: mail store failures are logged and never
// returned, so tag problems cannot fail a reminder operation.
type Synchronizer struct {
	mu     sync.Mutex
	store  mailstore.Store
	lister ReminderLister
	tag    mailstore.TagDefinition
	logger *zap.Logger
}

// NewSynchronizer creates a tag synchronizer for tag
func NewSynchronizer(store mailstore.Store, lister ReminderLister, tag mailstore.TagDefinition, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{
		store:  store,
		lister: lister,
		tag:    tag,
		logger: logger,
	}
}

// EnsureTag creates the tag definition in the store if it does not exist yet
func (s *Synchronizer) EnsureTag(ctx context.Context) {
	defs, err := s.store.ListAvailableTags(ctx)
	if err != nil {
		s.logger.Warn("tag_list_failed", zap.String("error", logpkg.SanitizeError(err)))
		return
	}
	for _, d := range defs {
		if d.Key == s.tag.Key {
			return
		}
	}
	if err := s.store.CreateTag(ctx, s.tag); err != nil {
		s.logger.Warn("tag_create_failed",
			zap.String("tag", logpkg.SanitizeID(s.tag.Key)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		return
	}
	s.logger.Info("tag_created", zap.String("tag", logpkg.SanitizeID(s.tag.Key)))
}

// AddTag puts the tag on a message. It is a no-op if the tag is already there.
func (s *Synchronizer) AddTag(ctx context.Context, messageID string) {
	if messageID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.GetTags(ctx, messageID)
	if err != nil {
		s.logFailure("tag_add_failed", messageID, err)
		return
	}
	if slices.Contains(current, s.tag.Key) {
		return
	}
	if err := s.store.SetTags(ctx, messageID, append(slices.Clone(current), s.tag.Key)); err != nil {
		s.logFailure("tag_add_failed", messageID, err)
		return
	}
	s.logger.Debug("tag_added", zap.String("message_id", logpkg.SanitizeID(messageID)))
}

// RemoveTagIfUnreferenced removes the tag from a message unless some active
// reminder other than excludingID still references it.
func (s *Synchronizer) RemoveTagIfUnreferenced(ctx context.Context, messageID, excludingID string) {
	if messageID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := s.lister.List(ctx)
	if err != nil {
		s.logFailure("tag_refcount_failed", messageID, err)
		return
	}
	for _, r := range reminders {
		if r.ID != excludingID && r.MessageID == messageID && r.Status.IsActive() {
			s.logger.Debug("tag_still_referenced",
				zap.String("message_id", logpkg.SanitizeID(messageID)),
				zap.String("reminder_id", logpkg.SanitizeID(r.ID)),
			)
			return
		}
	}

	current, err := s.store.GetTags(ctx, messageID)
	if err != nil {
		s.logFailure("tag_remove_failed", messageID, err)
		return
	}
	if !slices.Contains(current, s.tag.Key) {
		return
	}
	remaining := slices.DeleteFunc(slices.Clone(current), func(t string) bool { return t == s.tag.Key })
	if err := s.store.SetTags(ctx, messageID, remaining); err != nil {
		s.logFailure("tag_remove_failed", messageID, err)
		return
	}
	s.logger.Debug("tag_removed", zap.String("message_id", logpkg.SanitizeID(messageID)))
}

// SyncAll tags every message referenced by an active reminder. It only adds:
// stale tags on messages with no active reminder are left alone.
func (s *Synchronizer) SyncAll(ctx context.Context) {
	s.EnsureTag(ctx)

	reminders, err := s.lister.List(ctx)
	if err != nil {
		s.logger.Warn("tag_sync_failed", zap.String("error", logpkg.SanitizeError(err)))
		return
	}

	seen := make(map[string]bool)
	for _, r := range reminders {
		if !r.Status.IsActive() || r.MessageID == "" || seen[r.MessageID] {
			continue
		}
		seen[r.MessageID] = true
		s.AddTag(ctx, r.MessageID)
	}
	s.logger.Info("tag_sync_complete", zap.Int("messages", len(seen)))
}

func (s *Synchronizer) logFailure(event, messageID string, err error) {
	s.logger.Warn(event,
		zap.String("message_id", logpkg.SanitizeID(messageID)),
		zap.String("tag", logpkg.SanitizeID(s.tag.Key)),
		zap.String("error", logpkg.SanitizeError(err)),
	)
}
