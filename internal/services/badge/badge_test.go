package badge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benvon/email-reminders/internal/models"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		counts models.Counts
		want   Badge
	}{
		{name: "nothing active", counts: models.Counts{Completed: 4, Dismissed: 1}, want: Badge{}},
		{name: "pending only", counts: models.Counts{Pending: 2}, want: Badge{Text: "2|0", Color: ColorNeutral}},
		{name: "pending and snoozed", counts: models.Counts{Pending: 2, Snoozed: 1}, want: Badge{Text: "3|0", Color: ColorNeutral}},
		{name: "notified only", counts: models.Counts{Notified: 1}, want: Badge{Text: "0|1", Color: ColorUrgent}},
		{name: "mixed", counts: models.Counts{Pending: 1, Snoozed: 1, Notified: 2}, want: Badge{Text: "2|2", Color: ColorUrgent}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, Format(tt.counts)); diff != "" {
				t.Errorf("Format() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type listerFunc func(ctx context.Context) ([]*models.Reminder, error)

func (f listerFunc) List(ctx context.Context) ([]*models.Reminder, error) { return f(ctx) }

// mockRenderer records what it was asked to show
type mockRenderer struct {
	mu      sync.Mutex
	texts   []string
	colors  []string
	textErr error
}

func (m *mockRenderer) SetText(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return m.textErr
}

func (m *mockRenderer) SetColor(_ context.Context, color string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.colors = append(m.colors, color)
	return nil
}

var _ Renderer = (*mockRenderer)(nil)

func TestAggregator_Refresh(t *testing.T) {
	t.Parallel()

	reminders := []*models.Reminder{
		{ID: "a", Status: models.StatusPending},
		{ID: "b", Status: models.StatusSnoozed},
		{ID: "c", Status: models.StatusNotified},
		{ID: "d", Status: models.StatusCompleted},
	}
	renderer := &mockRenderer{}
	agg := NewAggregator(listerFunc(func(context.Context) ([]*models.Reminder, error) { return reminders, nil }), renderer, zap.NewNop())

	agg.Refresh(context.Background())

	if diff := cmp.Diff([]string{"2|1"}, renderer.texts); diff != "" {
		t.Errorf("SetText calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{ColorUrgent}, renderer.colors); diff != "" {
		t.Errorf("SetColor calls mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregator_Refresh_ConcurrentRefreshesRenderLatest(t *testing.T) {
	t.Parallel()

	var calls, inFlight, maxInFlight atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	lister := listerFunc(func(context.Context) ([]*models.Reminder, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return []*models.Reminder{{ID: "a", Status: models.StatusPending}}, nil
		}
		return []*models.Reminder{{ID: "a", Status: models.StatusNotified}}, nil
	})
	renderer := &mockRenderer{}
	agg := NewAggregator(lister, renderer, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		agg.Refresh(context.Background())
	}()
	<-entered
	go func() {
		defer wg.Done()
		agg.Refresh(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if maxInFlight.Load() != 1 {
		t.Errorf("Expected refreshes to list one at a time, saw %d concurrent", maxInFlight.Load())
	}
	if diff := cmp.Diff([]string{"1|0", "0|1"}, renderer.texts); diff != "" {
		t.Errorf("SetText calls mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregator_Refresh_EmptyClearsTextOnly(t *testing.T) {
	t.Parallel()

	renderer := &mockRenderer{}
	agg := NewAggregator(listerFunc(func(context.Context) ([]*models.Reminder, error) { return nil, nil }), renderer, zap.NewNop())

	agg.Refresh(context.Background())

	if diff := cmp.Diff([]string{""}, renderer.texts); diff != "" {
		t.Errorf("SetText calls mismatch (-want +got):\n%s", diff)
	}
	if len(renderer.colors) != 0 {
		t.Errorf("Expected no SetColor call for an empty badge, got %v", renderer.colors)
	}
}

func TestAggregator_Refresh_FailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	renderer := &mockRenderer{}
	failing := NewAggregator(listerFunc(func(context.Context) ([]*models.Reminder, error) {
		return nil, errors.New("store down")
	}), renderer, zap.NewNop())
	failing.Refresh(context.Background())
	if len(renderer.texts) != 0 {
		t.Errorf("Expected no render when listing fails, got %v", renderer.texts)
	}

	renderErr := &mockRenderer{textErr: errors.New("no display")}
	agg := NewAggregator(listerFunc(func(context.Context) ([]*models.Reminder, error) {
		return []*models.Reminder{{Status: models.StatusNotified}}, nil
	}), renderErr, zap.NewNop())
	agg.Refresh(context.Background())
	if len(renderErr.colors) != 0 {
		t.Errorf("Expected colour to be skipped after a text failure, got %v", renderErr.colors)
	}
}

func TestAggregator_Current(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(listerFunc(func(context.Context) ([]*models.Reminder, error) {
		return []*models.Reminder{{Status: models.StatusPending}, {Status: models.StatusDismissed}}, nil
	}), &mockRenderer{}, zap.NewNop())

	b, counts, err := agg.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() unexpected error: %v", err)
	}
	if b.Text != "1|0" {
		t.Errorf("Expected text 1|0, got %q", b.Text)
	}
	if counts.Total != 2 || counts.Archived != 1 {
		t.Errorf("Unexpected counts %+v", counts)
	}
}
