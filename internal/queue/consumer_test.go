package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/benvon/email-reminders/internal/services/notify"
	"go.uber.org/zap"
)

// mockPublisher records published events
type mockPublisher struct {
	mu        sync.Mutex
	events    []*Event
	publishFn func(ctx context.Context, event *Event) error
}

func (m *mockPublisher) Publish(ctx context.Context, event *Event) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, event); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

var _ EventPublisher = (*mockPublisher)(nil)

// mockAcknowledger records acks and nacks by delivery tag
type mockAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (m *mockAcknowledger) Ack(tag uint64, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, tag)
	return nil
}

func (m *mockAcknowledger) Nack(tag uint64, _ bool, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nacked = append(m.nacked, tag)
	return nil
}

func (m *mockAcknowledger) Reject(tag uint64, _ bool) error {
	return m.Nack(tag, false, false)
}

// channelConsumer delivers a fixed set of messages then closes
type channelConsumer struct {
	msgs []*Message
	err  error
}

func (c *channelConsumer) Consume(context.Context, int) (<-chan *Message, <-chan error, error) {
	if c.err != nil {
		return nil, nil, c.err
	}
	msgs := make(chan *Message, len(c.msgs))
	for _, m := range c.msgs {
		msgs <- m
	}
	close(msgs)
	errs := make(chan error)
	close(errs)
	return msgs, errs, nil
}

var _ Consumer = (*channelConsumer)(nil)

func TestNotificationPublisher(t *testing.T) {
	t.Parallel()

	pub := &mockPublisher{}
	n := NewNotificationPublisher(pub)
	ctx := context.Background()

	if err := n.Create(ctx, "rem_1", notify.Notification{Title: notify.Title, Message: "hi"}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if err := n.Clear(ctx, "rem_1"); err != nil {
		t.Fatalf("Clear() unexpected error: %v", err)
	}

	if len(pub.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(pub.events))
	}
	if pub.events[0].Type != EventNotificationCreate || pub.events[0].Notification.Message != "hi" {
		t.Errorf("Unexpected create event %+v", pub.events[0])
	}
	if pub.events[1].Type != EventNotificationClear || pub.events[1].ReminderID != "rem_1" {
		t.Errorf("Unexpected clear event %+v", pub.events[1])
	}
}

func TestNotificationPublisher_Error(t *testing.T) {
	t.Parallel()

	want := errors.New("channel closed")
	n := NewNotificationPublisher(&mockPublisher{publishFn: func(context.Context, *Event) error { return want }})
	if err := n.Create(context.Background(), "rem_1", notify.Notification{}); !errors.Is(err, want) {
		t.Errorf("Create() error = %v, want %v", err, want)
	}
}

func TestBadgePublisher(t *testing.T) {
	t.Parallel()

	pub := &mockPublisher{}
	b := NewBadgePublisher(pub)
	ctx := context.Background()

	_ = b.SetText(ctx, "2|1")
	_ = b.SetColor(ctx, "#ff9800")

	if len(pub.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(pub.events))
	}
	if pub.events[0].Type != EventBadgeText || pub.events[0].Badge.Text != "2|1" {
		t.Errorf("Unexpected text event %+v", pub.events[0])
	}
	if pub.events[1].Type != EventBadgeColor || pub.events[1].Badge.Color != "#ff9800" {
		t.Errorf("Unexpected color event %+v", pub.events[1])
	}
}

func TestConsumeActions(t *testing.T) {
	t.Parallel()

	ack := &mockAcknowledger{}
	msgs := []*Message{
		{Event: &Event{Type: EventNotificationClicked, ReminderID: "rem_ok"}, DeliveryTag: 1, Channel: ack},
		{Event: &Event{Type: EventBadgeText}, DeliveryTag: 2, Channel: ack},
		{Event: &Event{Type: EventNotificationAction, ReminderID: "rem_fail", Action: &notify.Action{Kind: notify.ActionComplete}}, DeliveryTag: 3, Channel: ack},
	}

	var handled []notify.Action
	handler := func(_ context.Context, a notify.Action) error {
		handled = append(handled, a)
		if a.ReminderID == "rem_fail" {
			return errors.New("reminder not found")
		}
		return nil
	}

	err := ConsumeActions(context.Background(), &channelConsumer{msgs: msgs}, handler, zap.NewNop())
	if err != nil {
		t.Fatalf("ConsumeActions() unexpected error: %v", err)
	}

	if len(handled) != 2 {
		t.Errorf("Expected 2 handled actions, got %d", len(handled))
	}
	if len(ack.acked) != 1 || ack.acked[0] != 1 {
		t.Errorf("Expected only delivery 1 acked, got %v", ack.acked)
	}
	if len(ack.nacked) != 2 || ack.nacked[0] != 2 || ack.nacked[1] != 3 {
		t.Errorf("Expected deliveries 2 and 3 dead-lettered, got %v", ack.nacked)
	}
}

func TestConsumeActions_ConsumeError(t *testing.T) {
	t.Parallel()

	err := ConsumeActions(context.Background(), &channelConsumer{err: errors.New("no channel")}, nil, zap.NewNop())
	if err == nil {
		t.Error("Expected error when consuming cannot start")
	}
}
