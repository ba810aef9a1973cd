package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benvon/email-reminders/internal/models"
)

// SettingsKey holds the user's preferences
const SettingsKey = "settings"

// SettingsRepository persists models.Settings
type SettingsRepository struct {
	store Store
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(store Store) *SettingsRepository {
	return &SettingsRepository{store: store}
}

// Get returns the stored settings, filling unset fields with defaults
func (r *SettingsRepository) Get(ctx context.Context) (models.Settings, error) {
	settings := models.DefaultSettings()

	data, err := r.store.Get(ctx, SettingsKey)
	if errors.Is(err, ErrKeyNotFound) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("failed to load settings: %w", err)
	}

	var stored models.Settings
	if err := json.Unmarshal(data, &stored); err != nil {
		return settings, fmt.Errorf("failed to decode settings: %w", err)
	}
	if stored.CheckInterval != "" {
		settings.CheckInterval = stored.CheckInterval
	}
	if stored.DefaultTime != "" {
		settings.DefaultTime = stored.DefaultTime
	}
	return settings, nil
}

// Save stores settings
func (r *SettingsRepository) Save(ctx context.Context, settings models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := r.store.Set(ctx, SettingsKey, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
