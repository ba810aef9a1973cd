package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/benvon/email-reminders/internal/commands"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

type mockRunner struct {
	mu       sync.Mutex
	requests []commands.Request
	respond  func(commands.Request) commands.Response
}

func (m *mockRunner) Handle(_ context.Context, req commands.Request) commands.Response {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.respond != nil {
		return m.respond(req)
	}
	return commands.Response{Success: true}
}

var _ CommandRunner = (*mockRunner)(nil)

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestHandleCreate(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{respond: func(commands.Request) commands.Response {
		return commands.Response{Success: true, ID: "rem_1"}
	}}
	s := NewServer(runner, zap.NewNop())

	result, err := s.handleCreate(context.Background(), callRequest("create_reminder", map[string]any{
		"message_id": "m1",
		"due_date":   "2026-03-11T09:00:00Z",
		"subject":    "Invoice",
	}))
	if err != nil {
		t.Fatalf("handleCreate() unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected success, got %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), `"id": "rem_1"`) {
		t.Errorf("Expected id in output, got %s", resultText(t, result))
	}

	if len(runner.requests) != 1 {
		t.Fatalf("Expected 1 command, got %d", len(runner.requests))
	}
	got := runner.requests[0]
	if got.Action != commands.ActionCreateReminder {
		t.Errorf("Expected %s, got %s", commands.ActionCreateReminder, got.Action)
	}
	var data map[string]string
	if err := json.Unmarshal(got.Data, &data); err != nil {
		t.Fatalf("Failed to decode command data: %v", err)
	}
	if data["messageId"] != "m1" || data["dueDate"] != "2026-03-11T09:00:00Z" || data["subject"] != "Invoice" {
		t.Errorf("Unexpected command data %v", data)
	}
}

func TestHandleSnooze(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	s := NewServer(runner, zap.NewNop())

	result, err := s.handleSnooze(context.Background(), callRequest("snooze_reminder", map[string]any{
		"id":      "rem_1",
		"minutes": float64(30),
	}))
	if err != nil || result.IsError {
		t.Fatalf("Expected success, got err=%v result=%v", err, result)
	}
	got := runner.requests[0]
	if got.ID != "rem_1" || got.Minutes == nil || *got.Minutes != 30 {
		t.Errorf("Unexpected snooze request %+v", got)
	}

	result, _ = s.handleSnooze(context.Background(), callRequest("snooze_reminder", map[string]any{"id": "rem_1"}))
	if !result.IsError {
		t.Error("Expected missing minutes to be an error")
	}
}

func TestSimpleTools(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tool   string
		action string
	}{
		{tool: "complete_reminder", action: commands.ActionCompleteReminder},
		{tool: "dismiss_reminder", action: commands.ActionDismissReminder},
		{tool: "delete_reminder", action: commands.ActionDeleteReminder},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			t.Parallel()

			runner := &mockRunner{}
			s := NewServer(runner, zap.NewNop())

			result, err := s.simple(tt.action)(context.Background(), callRequest(tt.tool, map[string]any{"id": "rem_7"}))
			if err != nil || result.IsError {
				t.Fatalf("Expected success, got err=%v result=%v", err, result)
			}
			if got := runner.requests[0]; got.Action != tt.action || got.ID != "rem_7" {
				t.Errorf("Unexpected request %+v", got)
			}

			result, _ = s.simple(tt.action)(context.Background(), callRequest(tt.tool, map[string]any{}))
			if !result.IsError {
				t.Error("Expected missing id to be an error")
			}
		})
	}
}

func TestCommandErrorBecomesToolError(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{respond: func(commands.Request) commands.Response {
		return commands.Response{Error: commands.MsgReminderNotFound}
	}}
	s := NewServer(runner, zap.NewNop())

	result, err := s.handleReactivate(context.Background(), callRequest("reactivate_reminder", map[string]any{"id": "rem_missing"}))
	if err != nil {
		t.Fatalf("Expected tool error, not Go error: %v", err)
	}
	if !result.IsError || resultText(t, result) != commands.MsgReminderNotFound {
		t.Errorf("Expected %q tool error, got %v", commands.MsgReminderNotFound, result)
	}
}

func TestListAndCounts(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	s := NewServer(runner, zap.NewNop())
	ctx := context.Background()

	if _, err := s.handleList(ctx, callRequest("list_reminders", map[string]any{"filter": "active"})); err != nil {
		t.Fatalf("handleList() unexpected error: %v", err)
	}
	if _, err := s.handleCounts(ctx, callRequest("get_reminder_counts", nil)); err != nil {
		t.Fatalf("handleCounts() unexpected error: %v", err)
	}

	if runner.requests[0].Action != commands.ActionGetReminders || runner.requests[0].Filter != "active" {
		t.Errorf("Unexpected list request %+v", runner.requests[0])
	}
	if runner.requests[1].Action != commands.ActionGetReminderCounts {
		t.Errorf("Unexpected counts request %+v", runner.requests[1])
	}
}

func TestToolsList(t *testing.T) {
	t.Parallel()

	s := NewServer(&mockRunner{}, zap.NewNop())
	msg := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))

	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to encode response: %v", err)
	}
	for _, name := range []string{
		"create_reminder", "list_reminders", "get_reminder_counts", "snooze_reminder",
		"complete_reminder", "dismiss_reminder", "delete_reminder", "reactivate_reminder",
	} {
		if !strings.Contains(string(out), `"`+name+`"`) {
			t.Errorf("Expected tool %s to be listed", name)
		}
	}
}
