package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when a status change is not allowed from the current status
var ErrInvalidTransition = errors.New("invalid status transition")

// Status represents where a reminder is in its lifecycle
type Status string

const (
	StatusPending   Status = "pending"
	StatusSnoozed   Status = "snoozed"
	StatusNotified  Status = "notified"
	StatusCompleted Status = "completed"
	StatusDismissed Status = "dismissed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSnoozed, StatusNotified, StatusCompleted, StatusDismissed:
		return true
	}
	return false
}

// IsActive reports whether a reminder in this status still needs attention.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusSnoozed || s == StatusNotified
}

// IsArchived reports whether the status is terminal (completed or dismissed).
func (s Status) IsArchived() bool {
	return s == StatusCompleted || s == StatusDismissed
}

// CanTransition reports whether a reminder may move from one status to another.
// Staying in the same status is always allowed. Active statuses may move freely
// among themselves and into either archived status. Archived reminders may only
// go back to pending.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if from.IsActive() {
		return true
	}
	return to == StatusPending
}

// Reminder is a time-based reminder attached to an email message.
// JSON field names match the export file format.
type Reminder struct {
	ID              string     `json:"id" yaml:"id"`
	MessageID       string     `json:"messageId" yaml:"messageId"`
	MessageHeaderID string     `json:"messageHeaderId,omitempty" yaml:"messageHeaderId,omitempty"`
	Subject         string     `json:"subject" yaml:"subject"`
	Sender          string     `json:"sender" yaml:"sender"`
	FolderID        string     `json:"folderId,omitempty" yaml:"folderId,omitempty"`
	DueDate         time.Time  `json:"dueDate" yaml:"dueDate"`
	Notes           string     `json:"notes" yaml:"notes"`
	CreatedDate     time.Time  `json:"createdDate" yaml:"createdDate"`
	ModifiedDate    *time.Time `json:"modifiedDate,omitempty" yaml:"modifiedDate,omitempty"`
	CompletedDate   *time.Time `json:"completedDate,omitempty" yaml:"completedDate,omitempty"`
	Status          Status     `json:"status" yaml:"status"`
	SnoozeCount     int        `json:"snoozeCount" yaml:"snoozeCount"`
}

// NewReminderInput holds the caller-supplied fields of a new reminder
type NewReminderInput struct {
	MessageID       string    `json:"messageId" validate:"required,max=512"`
	MessageHeaderID string    `json:"messageHeaderId" validate:"max=998"`
	Subject         string    `json:"subject" validate:"max=2000"`
	Sender          string    `json:"sender" validate:"max=1000"`
	FolderID        string    `json:"folderId" validate:"max=1000"`
	DueDate         time.Time `json:"dueDate"`
	Notes           string    `json:"notes" validate:"max=10000"`
}

// NewReminder builds a pending reminder with a fresh id.
func NewReminder(in NewReminderInput, now time.Time) *Reminder {
	return &Reminder{
		ID:              NewReminderID(now),
		MessageID:       in.MessageID,
		MessageHeaderID: in.MessageHeaderID,
		Subject:         in.Subject,
		Sender:          in.Sender,
		FolderID:        in.FolderID,
		DueDate:         in.DueDate,
		Notes:           in.Notes,
		CreatedDate:     now,
		Status:          StatusPending,
		SnoozeCount:     0,
	}
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewReminderID returns an id of the form rem_<base36 unix millis>_<9 random base36 chars>.
func NewReminderID(now time.Time) string {
	random := uuid.New()
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = base36Alphabet[int(random[i])%len(base36Alphabet)]
	}
	return "rem_" + strconv.FormatInt(now.UnixMilli(), 36) + "_" + string(suffix)
}

// Clone returns a deep copy so callers can't mutate stored state.
func (r *Reminder) Clone() *Reminder {
	if r == nil {
		return nil
	}
	c := *r
	if r.ModifiedDate != nil {
		t := *r.ModifiedDate
		c.ModifiedDate = &t
	}
	if r.CompletedDate != nil {
		t := *r.CompletedDate
		c.CompletedDate = &t
	}
	return &c
}

// IsDue reports whether the reminder should fire at now.
func (r *Reminder) IsDue(now time.Time) bool {
	return (r.Status == StatusPending || r.Status == StatusSnoozed) && !r.DueDate.After(now)
}

func (r *Reminder) touch(now time.Time) {
	t := now
	r.ModifiedDate = &t
}

func (r *Reminder) invalid(to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
}

// MarkNotified records that the notification for the current due occurrence fired.
// It only succeeds for a pending or snoozed reminder that is due, which keeps a
// reminder from firing twice for the same occurrence.
func (r *Reminder) MarkNotified(now time.Time) error {
	if !r.IsDue(now) {
		return r.invalid(StatusNotified)
	}
	r.Status = StatusNotified
	r.touch(now)
	return nil
}

// Snooze pushes the due date to now+d and counts the snooze.
// A non-positive d is accepted and leaves the due date at or before now.
func (r *Reminder) Snooze(now time.Time, d time.Duration) error {
	if !r.Status.IsActive() {
		return r.invalid(StatusSnoozed)
	}
	r.DueDate = now.Add(d)
	r.Status = StatusSnoozed
	r.SnoozeCount++
	r.touch(now)
	return nil
}

// Complete archives the reminder as done. Completing twice is a no-op.
func (r *Reminder) Complete(now time.Time) error {
	switch {
	case r.Status == StatusCompleted:
		return nil
	case !r.Status.IsActive():
		return r.invalid(StatusCompleted)
	}
	r.Status = StatusCompleted
	t := now
	r.CompletedDate = &t
	r.touch(now)
	return nil
}

// Dismiss archives the reminder without completing it. Dismissing twice is a no-op.
func (r *Reminder) Dismiss(now time.Time) error {
	switch {
	case r.Status == StatusDismissed:
		return nil
	case !r.Status.IsActive():
		return r.invalid(StatusDismissed)
	}
	r.Status = StatusDismissed
	r.touch(now)
	return nil
}

// Reactivate brings an archived reminder back to pending with a new due date.
func (r *Reminder) Reactivate(now, due time.Time) error {
	if !r.Status.IsArchived() {
		return r.invalid(StatusPending)
	}
	r.Status = StatusPending
	r.DueDate = due
	r.CompletedDate = nil
	r.touch(now)
	return nil
}

// ReminderPatch is a shallow update. Nil fields are left unchanged.
type ReminderPatch struct {
	MessageID *string    `json:"messageId,omitempty" validate:"omitempty,max=512"`
	Subject   *string    `json:"subject,omitempty" validate:"omitempty,max=2000"`
	Sender    *string    `json:"sender,omitempty" validate:"omitempty,max=1000"`
	FolderID  *string    `json:"folderId,omitempty" validate:"omitempty,max=1000"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Notes     *string    `json:"notes,omitempty" validate:"omitempty,max=10000"`
	Status    *Status    `json:"status,omitempty" validate:"omitnil,reminder_status"`
}

// Apply merges the patch into r. A status change is checked with CanTransition.
func (p ReminderPatch) Apply(r *Reminder, now time.Time) error {
	if p.Status != nil && !CanTransition(r.Status, *p.Status) {
		return r.invalid(*p.Status)
	}
	if p.MessageID != nil {
		r.MessageID = *p.MessageID
	}
	if p.Subject != nil {
		r.Subject = *p.Subject
	}
	if p.Sender != nil {
		r.Sender = *p.Sender
	}
	if p.FolderID != nil {
		r.FolderID = *p.FolderID
	}
	if p.DueDate != nil {
		r.DueDate = *p.DueDate
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.Status != nil {
		if *p.Status == StatusCompleted && r.Status != StatusCompleted {
			t := now
			r.CompletedDate = &t
		}
		r.Status = *p.Status
	}
	r.touch(now)
	return nil
}

// ListFilter selects reminders by status group
type ListFilter string

const (
	FilterAll       ListFilter = "all"
	FilterActive    ListFilter = "active"
	FilterPending   ListFilter = "pending"
	FilterCompleted ListFilter = "completed"
	FilterDismissed ListFilter = "dismissed"
)

// Matches reports whether a reminder with status s belongs in the filtered view.
// "pending" covers snoozed reminders too. An empty filter means all.
func (f ListFilter) Matches(s Status) bool {
	switch f {
	case FilterActive:
		return s.IsActive()
	case FilterPending:
		return s == StatusPending || s == StatusSnoozed
	case FilterCompleted:
		return s == StatusCompleted
	case FilterDismissed:
		return s == StatusDismissed
	case FilterAll, "":
		return true
	}
	return false
}

// Valid reports whether f is a known filter.
func (f ListFilter) Valid() bool {
	switch f {
	case FilterAll, FilterActive, FilterPending, FilterCompleted, FilterDismissed, "":
		return true
	}
	return false
}
