// Package mailstore abstracts the mail client's message store and tag subsystem.
package mailstore

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a message reference no longer resolves
	ErrNotFound = errors.New("message not found")
	// ErrUnsupported is returned by stores that cannot perform an operation
	ErrUnsupported = errors.New("operation not supported by mail store")
)

// Message is a snapshot of a message as seen by the store
type Message struct {
	ID              string
	HeaderMessageID string
	Subject         string
	Author          string
	Folder          string
	Tags            []string
}

// TagDefinition describes a tag the store knows about
type TagDefinition struct {
	Key   string
	Label string
	Color string
}

// Store is the set of message store capabilities reminders depend on
type Store interface {
	GetByID(ctx context.Context, id string) (*Message, error)
	FindByStableID(ctx context.Context, headerMessageID string) (*Message, error)
	OpenInViewer(ctx context.Context, id string) error
	GetTags(ctx context.Context, id string) ([]string, error)
	SetTags(ctx context.Context, id string, tags []string) error
	ListAvailableTags(ctx context.Context) ([]TagDefinition, error)
	CreateTag(ctx context.Context, def TagDefinition) error
}

// NormalizeHeaderID strips surrounding angle brackets and whitespace from an RFC 822 Message-ID
func NormalizeHeaderID(id string) string {
	return strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(id), "<"), ">")
}

// Disabled is used when no mail store is configured. Lookups fail with ErrNotFound
// and tag operations succeed without doing anything.
type Disabled struct{}

func (Disabled) GetByID(context.Context, string) (*Message, error)        { return nil, ErrNotFound }
func (Disabled) FindByStableID(context.Context, string) (*Message, error) { return nil, ErrNotFound }
func (Disabled) OpenInViewer(context.Context, string) error               { return ErrUnsupported }
func (Disabled) GetTags(context.Context, string) ([]string, error)        { return nil, nil }
func (Disabled) SetTags(context.Context, string, []string) error          { return nil }
func (Disabled) ListAvailableTags(context.Context) ([]TagDefinition, error) {
	return nil, nil
}
func (Disabled) CreateTag(context.Context, TagDefinition) error { return nil }

var (
	_ Store = Disabled{}
	_ Store = (*Notmuch)(nil)
	_ Store = (*Memory)(nil)
)
