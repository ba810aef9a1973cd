// Package mcpserver exposes reminder commands as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/benvon/email-reminders/internal/commands"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	serverName    = "email-reminders"
	serverVersion = "1.0.0"
)

// CommandRunner executes inbound commands
type CommandRunner interface {
	Handle(ctx context.Context, req commands.Request) commands.Response
}

var _ CommandRunner = (*commands.Dispatcher)(nil)

// Server is the MCP server for email reminders
type Server struct {
	mcpServer *server.MCPServer
	runner    CommandRunner
	logger    *zap.Logger
}

// NewServer creates an MCP server whose tools run through runner
func NewServer(runner CommandRunner, logger *zap.Logger) *Server {
	s := &Server{runner: runner, logger: logger}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func idParam() mcp.ToolOption {
	return mcp.WithString("id", mcp.Required(), mcp.Description("Reminder id, e.g. rem_1741609800000_ab12cd34e"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("create_reminder",
			mcp.WithDescription("Create a reminder for an email message"),
			mcp.WithString("message_id", mcp.Required(), mcp.Description("Mail store id of the message")),
			mcp.WithString("due_date", mcp.Required(), mcp.Description("When to remind, RFC3339 (e.g. 2026-03-11T09:00:00Z); must be in the future")),
			mcp.WithString("message_header_id", mcp.Description("RFC 5322 Message-ID header, used if the message moves")),
			mcp.WithString("subject", mcp.Description("Message subject")),
			mcp.WithString("sender", mcp.Description("Message sender")),
			mcp.WithString("notes", mcp.Description("Free-form notes")),
		),
		s.handleCreate,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List reminders, newest due date last"),
			mcp.WithString("filter", mcp.Description("active, pending, completed, dismissed or all (default all)")),
		),
		s.handleList,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_reminder_counts",
			mcp.WithDescription("Count reminders by status"),
		),
		s.handleCounts,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("snooze_reminder",
			mcp.WithDescription("Push a reminder's due time forward from now"),
			idParam(),
			mcp.WithNumber("minutes", mcp.Required(), mcp.Description("Minutes from now")),
		),
		s.handleSnooze,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("complete_reminder",
			mcp.WithDescription("Mark a reminder as completed"),
			idParam(),
		),
		s.simple(commands.ActionCompleteReminder),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("dismiss_reminder",
			mcp.WithDescription("Dismiss a reminder without completing it"),
			idParam(),
		),
		s.simple(commands.ActionDismissReminder),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("delete_reminder",
			mcp.WithDescription("Delete a reminder permanently"),
			idParam(),
		),
		s.simple(commands.ActionDeleteReminder),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("reactivate_reminder",
			mcp.WithDescription("Bring a completed or dismissed reminder back to pending"),
			idParam(),
			mcp.WithString("due_date", mcp.Description("New due date, RFC3339; defaults to tomorrow at the configured time")),
		),
		s.handleReactivate,
	)
}

func (s *Server) run(ctx context.Context, tool string, req commands.Request) (*mcp.CallToolResult, error) {
	resp := s.runner.Handle(ctx, req)
	if !resp.Success {
		s.logger.Debug("mcp_tool_failed", zap.String("tool", tool), zap.String("error", resp.Error))
		return mcp.NewToolResultError(resp.Error), nil
	}

	output, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(map[string]string{
		"messageId":       req.GetString("message_id", ""),
		"messageHeaderId": req.GetString("message_header_id", ""),
		"subject":         req.GetString("subject", ""),
		"sender":          req.GetString("sender", ""),
		"dueDate":         req.GetString("due_date", ""),
		"notes":           req.GetString("notes", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode arguments: %v", err)), nil
	}
	return s.run(ctx, "create_reminder", commands.Request{Action: commands.ActionCreateReminder, Data: data})
}

func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "list_reminders", commands.Request{
		Action: commands.ActionGetReminders,
		Filter: req.GetString("filter", ""),
	})
}

func (s *Server) handleCounts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_reminder_counts", commands.Request{Action: commands.ActionGetReminderCounts})
}

func (s *Server) handleSnooze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	minutes, err := req.RequireInt("minutes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.run(ctx, "snooze_reminder", commands.Request{
		Action:  commands.ActionSnoozeReminder,
		ID:      id,
		Minutes: &minutes,
	})
}

func (s *Server) handleReactivate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.run(ctx, "reactivate_reminder", commands.Request{
		Action:  commands.ActionReactivateReminder,
		ID:      id,
		DueDate: req.GetString("due_date", ""),
	})
}

// simple handles tools that take only a reminder id
func (s *Server) simple(action string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return s.run(ctx, req.Params.Name, commands.Request{Action: action, ID: id})
	}
}
