package models

import "time"

// PendingMessage is the message a user picked before opening the reminder dialog.
// It is handed over once and then discarded.
type PendingMessage struct {
	ID              string `json:"id" validate:"required,max=512"`
	HeaderMessageID string `json:"headerMessageId" validate:"max=998"`
	Subject         string `json:"subject" validate:"max=2000"`
	Author          string `json:"author" validate:"max=1000"`
	Folder          string `json:"folder,omitempty" validate:"max=1000"`
}

// Settings are the user-adjustable preferences
type Settings struct {
	CheckInterval string `json:"checkInterval" yaml:"checkInterval" validate:"required,numeric"`
	DefaultTime   string `json:"defaultTime" yaml:"defaultTime" validate:"required,clock"`
}

// DefaultSettings mirrors the out-of-the-box preferences
func DefaultSettings() Settings {
	return Settings{CheckInterval: "1", DefaultTime: "09:00"}
}

// ExportVersion is the only export file version written and accepted
const ExportVersion = "1.0"

// ExportFile is the on-disk backup format
type ExportFile struct {
	Version    string      `json:"version" yaml:"version"`
	ExportDate time.Time   `json:"exportDate" yaml:"exportDate"`
	Reminders  []*Reminder `json:"reminders" yaml:"reminders"`
}

// ImportResult reports how an import merged into existing data
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
