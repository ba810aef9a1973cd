// Package commands is the request/response surface shared by the HTTP API,
// the MCP server and the CLI.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/benvon/email-reminders/internal/models"
	"github.com/benvon/email-reminders/internal/services/reminders"
)

// Action names
const (
	ActionCreateReminder     = "createReminder"
	ActionUpdateReminder     = "updateReminder"
	ActionSnoozeReminder     = "snoozeReminder"
	ActionDismissReminder    = "dismissReminder"
	ActionCompleteReminder   = "completeReminder"
	ActionDeleteReminder     = "deleteReminder"
	ActionGetReminders       = "getReminders"
	ActionGetReminderCounts  = "getReminderCounts"
	ActionGetReminderByID    = "getReminderById"
	ActionGetPendingMessage  = "getPendingMessage"
	ActionOpenEmail          = "openEmail"
	ActionSetPendingMessage  = "setPendingMessage"
	ActionReactivateReminder = "reactivateReminder"
	ActionGetSettings        = "getSettings"
	ActionSaveSettings       = "saveSettings"
	ActionExportReminders    = "exportReminders"
	ActionImportReminders    = "importReminders"
	ActionClearCompleted     = "clearCompleted"
	ActionClearAll           = "clearAll"
)

// Error messages returned to callers
const (
	MsgUnknownAction     = "Unknown action"
	MsgReminderNotFound  = "Reminder not found"
	MsgInvalidTransition = "Reminder cannot change to that status"
	MsgInvalidImport     = "Invalid import file format"
	MsgInternal          = "Internal error"
)

// Request is one inbound command
type Request struct {
	Action  string          `json:"action"`
	ID      string          `json:"id,omitempty"`
	Minutes *int            `json:"minutes,omitempty"`
	Filter  string          `json:"filter,omitempty"`
	DueDate string          `json:"dueDate,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Response is either a success with action-specific fields or an error.
// Empty fields are omitted, so a missing "reminders" means none matched.
type Response struct {
	Success   bool                   `json:"success,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Reminder  *models.Reminder       `json:"reminder,omitempty"`
	Reminders []*models.Reminder     `json:"reminders,omitempty"`
	Counts    *models.Counts         `json:"counts,omitempty"`
	Message   *models.PendingMessage `json:"message,omitempty"`
	Settings  *models.Settings       `json:"settings,omitempty"`
	Export    *models.ExportFile     `json:"export,omitempty"`
	Imported  *int                   `json:"imported,omitempty"`
	Skipped   *int                   `json:"skipped,omitempty"`
	Cleared   *int                   `json:"cleared,omitempty"`
}

// ValidationError is a payload rejected before reaching the service
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalid(msg string) error {
	return &ValidationError{Msg: msg}
}

// Service is the reminder manager the dispatcher drives
type Service interface {
	Create(ctx context.Context, in models.NewReminderInput) (*models.Reminder, error)
	GetByID(ctx context.Context, id string) (*models.Reminder, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Reminder, error)
	Counts(ctx context.Context) (models.Counts, error)
	Update(ctx context.Context, id string, patch models.ReminderPatch) (*models.Reminder, error)
	Snooze(ctx context.Context, id string, minutes int) (*models.Reminder, error)
	Complete(ctx context.Context, id string) (*models.Reminder, error)
	Dismiss(ctx context.Context, id string) (*models.Reminder, error)
	Delete(ctx context.Context, id string) error
	Reactivate(ctx context.Context, id string, due *time.Time) (*models.Reminder, error)
	OpenEmail(ctx context.Context, id string) error
	SetPendingMessage(ctx context.Context, msg *models.PendingMessage) error
	TakePendingMessage(ctx context.Context) (*models.PendingMessage, error)
	Settings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
	Export(ctx context.Context) (*models.ExportFile, error)
	Import(ctx context.Context, reminders []*models.Reminder) (models.ImportResult, error)
	ClearArchived(ctx context.Context) (int, error)
	ClearAll(ctx context.Context) (int, error)
}

var _ Service = (*reminders.Service)(nil)

func isNotFound(err error) bool {
	return errors.Is(err, reminders.ErrNotFound)
}

func intPtr(n int) *int {
	return &n
}
