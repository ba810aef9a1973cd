package app

import (
	"context"
	"testing"
	"time"

	"github.com/benvon/email-reminders/internal/commands"
	"github.com/benvon/email-reminders/internal/config"
	"github.com/benvon/email-reminders/internal/models"
	"go.uber.org/zap"
)

func memoryConfig() *config.Config {
	return &config.Config{
		StoreDriver:          config.StoreDriverMemory,
		CheckIntervalMinutes: 3,
		DefaultReminderTime:  "09:00",
		Timezone:             "UTC",
		Notifier:             config.DriverLog,
		BadgeRenderer:        config.DriverLog,
		MailStore:            config.MailStoreNone,
		TagKey:               "reminder",
		TagLabel:             "Reminder",
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(context.Background(), memoryConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_MemoryStore(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)
	if a.Queue != nil || a.Telegram != nil || a.Redis != nil {
		t.Error("Expected no optional transports for the log drivers")
	}

	checks := a.HealthChecks()
	if len(checks) != 1 {
		t.Fatalf("Expected only the store check, got %d", len(checks))
	}
	if err := checks["store"](context.Background()); err != nil {
		t.Errorf("Expected memory store to be healthy, got %v", err)
	}
}

func TestNew_EndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a := newTestApp(t)

	resp := a.Dispatcher.Handle(ctx, commands.Request{
		Action: commands.ActionCreateReminder,
		Data:   []byte(`{"messageId":"m1","subject":"Invoice","dueDate":"` + time.Now().Add(time.Hour).UTC().Format(time.RFC3339) + `"}`),
	})
	if !resp.Success {
		t.Fatalf("Expected create to succeed, got %q", resp.Error)
	}

	fired, err := a.DueChecker.CheckDue(ctx)
	if err != nil {
		t.Fatalf("CheckDue() unexpected error: %v", err)
	}
	if fired != 0 {
		t.Errorf("Expected nothing due yet, got %d", fired)
	}
}

func TestCheckInterval(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a := newTestApp(t)

	if got := a.CheckInterval(ctx); got != time.Minute {
		t.Errorf("Expected default settings interval of 1m, got %v", got)
	}

	if err := a.Service.SaveSettings(ctx, models.Settings{CheckInterval: "5", DefaultTime: "09:00"}); err != nil {
		t.Fatalf("SaveSettings() unexpected error: %v", err)
	}
	if got := a.CheckInterval(ctx); got != 5*time.Minute {
		t.Errorf("Expected saved interval of 5m, got %v", got)
	}

	if err := a.Service.SaveSettings(ctx, models.Settings{CheckInterval: "0", DefaultTime: "09:00"}); err != nil {
		t.Fatalf("SaveSettings() unexpected error: %v", err)
	}
	if got := a.CheckInterval(ctx); got != 3*time.Minute {
		t.Errorf("Expected configured fallback of 3m, got %v", got)
	}
}

func TestRunBackground_StopsOnCancel(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunBackground(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunBackground did not stop after cancel")
	}
}
