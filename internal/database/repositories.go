package database

import (
	"context"

	"github.com/benvon/email-reminders/internal/models"
)

// ReminderRepositoryInterface defines the reminder persistence operations.
// This interface enables better testability by allowing mock implementations.
type ReminderRepositoryInterface interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	GetByID(ctx context.Context, id string) (*models.Reminder, error)
	List(ctx context.Context) ([]*models.Reminder, error)
	Apply(ctx context.Context, id string, fn func(*models.Reminder) error) (*models.Reminder, error)
	Delete(ctx context.Context, id string) (*models.Reminder, error)
	DeleteWhere(ctx context.Context, pred func(*models.Reminder) bool) ([]*models.Reminder, error)
	Merge(ctx context.Context, incoming []*models.Reminder) ([]*models.Reminder, models.ImportResult, error)
}

// PendingMessageRepositoryInterface defines the read-once pending message handoff
type PendingMessageRepositoryInterface interface {
	Put(ctx context.Context, msg *models.PendingMessage) error
	Take(ctx context.Context) (*models.PendingMessage, error)
}

// SettingsRepositoryInterface defines settings persistence
type SettingsRepositoryInterface interface {
	Get(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, settings models.Settings) error
}

// Ensure concrete types implement the interfaces
var (
	_ ReminderRepositoryInterface       = (*ReminderRepository)(nil)
	_ PendingMessageRepositoryInterface = (*PendingMessageRepository)(nil)
	_ SettingsRepositoryInterface       = (*SettingsRepository)(nil)

	_ Store = (*BoltStore)(nil)
	_ Store = (*SQLStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
