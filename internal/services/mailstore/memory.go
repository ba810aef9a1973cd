package mailstore

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process Store for tests in this and dependent packages.
type Memory struct {
	mu       sync.Mutex
	messages map[string]*Message
	tags     map[string]TagDefinition
	opened   []string
}

// NewMemory creates a Memory store holding msgs
func NewMemory(msgs ...*Message) *Memory {
	m := &Memory{
		messages: make(map[string]*Message),
		tags:     make(map[string]TagDefinition),
	}
	for _, msg := range msgs {
		m.Add(msg)
	}
	return m
}

// Add inserts or replaces a message
func (m *Memory) Add(msg *Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *msg
	c.Tags = slices.Clone(msg.Tags)
	m.messages[msg.ID] = &c
}

// Move changes a message's id, as happens when a mail client moves it between folders
func (m *Memory) Move(oldID, newID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[oldID]; ok {
		delete(m.messages, oldID)
		msg.ID = newID
		m.messages[newID] = msg
	}
}

// Opened returns the ids passed to OpenInViewer, in order
func (m *Memory) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.opened)
}

func (m *Memory) GetByID(_ context.Context, id string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *msg
	c.Tags = slices.Clone(msg.Tags)
	return &c, nil
}

func (m *Memory) FindByStableID(_ context.Context, headerMessageID string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := NormalizeHeaderID(headerMessageID)
	for _, msg := range m.messages {
		if want != "" && NormalizeHeaderID(msg.HeaderMessageID) == want {
			c := *msg
			c.Tags = slices.Clone(msg.Tags)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) OpenInViewer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[id]; !ok {
		return ErrNotFound
	}
	m.opened = append(m.opened, id)
	return nil
}

func (m *Memory) GetTags(_ context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(msg.Tags), nil
}

func (m *Memory) SetTags(_ context.Context, id string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return ErrNotFound
	}
	msg.Tags = slices.Clone(tags)
	return nil
}

func (m *Memory) ListAvailableTags(context.Context) ([]TagDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defs := make([]TagDefinition, 0, len(m.tags))
	for _, d := range m.tags {
		defs = append(defs, d)
	}
	return defs, nil
}

func (m *Memory) CreateTag(_ context.Context, def TagDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[def.Key] = def
	return nil
}
