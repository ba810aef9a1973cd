package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/benvon/email-reminders/internal/models"
)

// PendingMessageKey holds the message selected for the next reminder dialog
const PendingMessageKey = "pendingReminderMessage"

// PendingMessageRepository hands a selected message from one caller to the next, once
type PendingMessageRepository struct {
	store Store
	mu    sync.Mutex
}

// NewPendingMessageRepository creates a new pending message repository
func NewPendingMessageRepository(store Store) *PendingMessageRepository {
	return &PendingMessageRepository{store: store}
}

// Put replaces any pending message with msg
func (r *PendingMessageRepository) Put(ctx context.Context, msg *models.PendingMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode pending message: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Set(ctx, PendingMessageKey, data); err != nil {
		return fmt.Errorf("failed to save pending message: %w", err)
	}
	return nil
}

// Take returns the pending message and removes it. It returns nil, nil when there is none.
func (r *PendingMessageRepository) Take(ctx context.Context) (*models.PendingMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.store.Get(ctx, PendingMessageKey)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending message: %w", err)
	}
	if err := r.store.Remove(ctx, PendingMessageKey); err != nil {
		return nil, fmt.Errorf("failed to clear pending message: %w", err)
	}

	var msg models.PendingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode pending message: %w", err)
	}
	return &msg, nil
}
