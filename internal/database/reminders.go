package database

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/benvon/email-reminders/internal/models"
)

// RemindersKey is the record holding every reminder, keyed by id
const RemindersKey = "reminders"

// Repository errors
var (
	ErrReminderNotFound = errors.New("reminder not found")
	ErrDuplicateID      = errors.New("reminder id already exists")
)

// ReminderRepository stores all reminders as one JSON object under RemindersKey.
// Every mutation reads the whole map, changes it and writes it back while holding
// mu, so concurrent callers (the due checker and user commands) never interleave
// a read-modify-write.
type ReminderRepository struct {
	store Store
	mu    sync.Mutex
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(store Store) *ReminderRepository {
	return &ReminderRepository{store: store}
}

func (r *ReminderRepository) load(ctx context.Context) (map[string]*models.Reminder, error) {
	data, err := r.store.Get(ctx, RemindersKey)
	if errors.Is(err, ErrKeyNotFound) {
		return make(map[string]*models.Reminder), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reminders: %w", err)
	}

	reminders := make(map[string]*models.Reminder)
	if err := json.Unmarshal(data, &reminders); err != nil {
		return nil, fmt.Errorf("failed to decode reminders: %w", err)
	}
	return reminders, nil
}

func (r *ReminderRepository) save(ctx context.Context, reminders map[string]*models.Reminder) error {
	data, err := json.Marshal(reminders)
	if err != nil {
		return fmt.Errorf("failed to encode reminders: %w", err)
	}
	if err := r.store.Set(ctx, RemindersKey, data); err != nil {
		return fmt.Errorf("failed to save reminders: %w", err)
	}
	return nil
}

// Create stores a new reminder. The id must not already exist.
func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reminders, err := r.load(ctx)
	if err != nil {
		return err
	}
	if _, exists := reminders[reminder.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, reminder.ID)
	}
	reminders[reminder.ID] = reminder.Clone()
	return r.save(ctx, reminders)
}

// GetByID retrieves a reminder by id
func (r *ReminderRepository) GetByID(ctx context.Context, id string) (*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reminders, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	reminder, ok := reminders[id]
	if !ok {
		return nil, ErrReminderNotFound
	}
	return reminder, nil
}

// List returns every reminder ordered by due date, then creation date, then id
func (r *ReminderRepository) List(ctx context.Context) ([]*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reminders, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return sortedReminders(reminders), nil
}

func sortedReminders(reminders map[string]*models.Reminder) []*models.Reminder {
	list := make([]*models.Reminder, 0, len(reminders))
	for _, reminder := range reminders {
		list = append(list, reminder)
	}
	slices.SortFunc(list, func(a, b *models.Reminder) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		if c := a.CreatedDate.Compare(b.CreatedDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return list
}

// Apply runs fn against the freshly loaded reminder and persists the result.
// If fn returns an error nothing is written and the error is returned as is,
// which lets callers express transition preconditions inside fn.
func (r *ReminderRepository) Apply(ctx context.Context, id string, fn func(*models.Reminder) error) (*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reminders, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	current, ok := reminders[id]
	if !ok {
		return nil, ErrReminderNotFound
	}

	updated := current.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	updated.ID = id
	reminders[id] = updated

	if err := r.save(ctx, reminders); err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// Delete removes a reminder and returns what was removed
func (r *ReminderRepository) Delete(ctx context.Context, id string) (*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reminders, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	removed, ok := reminders[id]
	if !ok {
		return nil, ErrReminderNotFound
	}
	delete(reminders, id)

	if err := r.save(ctx, reminders); err != nil {
		return nil, err
	}
	return removed, nil
}

// DeleteWhere removes every reminder matching pred and returns the removed ones in list order
func (r *ReminderRepository) DeleteWhere(ctx context.Context, pred func(*models.Reminder) bool) ([]*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reminders, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	var removed []*models.Reminder
	for _, reminder := range sortedReminders(reminders) {
		if pred(reminder) {
			removed = append(removed, reminder)
			delete(reminders, reminder.ID)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}

	if err := r.save(ctx, reminders); err != nil {
		return nil, err
	}
	return removed, nil
}

// Merge adds incoming reminders whose ids are not already stored. Existing
// reminders always win. Entries without an id or with an unknown status are skipped.
// It returns the reminders that were added.
func (r *ReminderRepository) Merge(ctx context.Context, incoming []*models.Reminder) ([]*models.Reminder, models.ImportResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result models.ImportResult
	reminders, err := r.load(ctx)
	if err != nil {
		return nil, result, err
	}

	var added []*models.Reminder
	for _, reminder := range incoming {
		if reminder == nil || reminder.ID == "" || !reminder.Status.Valid() {
			result.Skipped++
			continue
		}
		if _, exists := reminders[reminder.ID]; exists {
			result.Skipped++
			continue
		}
		reminders[reminder.ID] = reminder.Clone()
		added = append(added, reminder.Clone())
		result.Imported++
	}

	if result.Imported == 0 {
		return nil, result, nil
	}
	if err := r.save(ctx, reminders); err != nil {
		return nil, models.ImportResult{}, err
	}
	return added, result, nil
}
