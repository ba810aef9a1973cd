package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/benvon/email-reminders/internal/commands"
	"github.com/benvon/email-reminders/internal/export"
	logpkg "github.com/benvon/email-reminders/internal/logger"
	"github.com/benvon/email-reminders/internal/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CommandRunner executes inbound commands
type CommandRunner interface {
	Handle(ctx context.Context, req commands.Request) commands.Response
}

var _ CommandRunner = (*commands.Dispatcher)(nil)

// ReminderHandler exposes the command surface over HTTP
type ReminderHandler struct {
	runner CommandRunner
	logger *zap.Logger
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(runner CommandRunner, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{runner: runner, logger: logger}
}

// RegisterRoutes registers reminder routes on the given router.
// The router should already carry the /api/v1 prefix.
func (h *ReminderHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/commands", h.RunCommand).Methods("POST")
	r.HandleFunc("/reminders", h.ListReminders).Methods("GET")
	r.HandleFunc("/reminders/counts", h.GetCounts).Methods("GET")
	r.HandleFunc("/reminders/{id}", h.GetReminder).Methods("GET")
	r.HandleFunc("/export", h.Export).Methods("GET")
	r.HandleFunc("/import", h.Import).Methods("POST")
}

// RunCommand decodes a {"action": ...} body and runs it
func (h *ReminderHandler) RunCommand(w http.ResponseWriter, r *http.Request) {
	var req commands.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if req.Action == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "action is required")
		return
	}

	respondCommand(w, h.runner.Handle(r.Context(), req))
}

// respondQuery answers a REST read in the success envelope, with data picked
// from the command response.
func respondQuery(w http.ResponseWriter, resp commands.Response, data func(commands.Response) any) {
	if !resp.Success {
		status := commandStatus(resp)
		respondJSONError(w, status, http.StatusText(status), resp.Error)
		return
	}
	respondJSON(w, http.StatusOK, data(resp))
}

// ListReminders lists reminders, optionally narrowed by ?filter=
func (h *ReminderHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	resp := h.runner.Handle(r.Context(), commands.Request{
		Action: commands.ActionGetReminders,
		Filter: r.URL.Query().Get("filter"),
	})
	respondQuery(w, resp, func(resp commands.Response) any {
		if resp.Reminders == nil {
			return []*models.Reminder{}
		}
		return resp.Reminders
	})
}

// GetCounts returns per-status counts
func (h *ReminderHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	resp := h.runner.Handle(r.Context(), commands.Request{Action: commands.ActionGetReminderCounts})
	respondQuery(w, resp, func(resp commands.Response) any { return resp.Counts })
}

// GetReminder returns one reminder by id
func (h *ReminderHandler) GetReminder(w http.ResponseWriter, r *http.Request) {
	resp := h.runner.Handle(r.Context(), commands.Request{
		Action: commands.ActionGetReminderByID,
		ID:     mux.Vars(r)["id"],
	})
	respondQuery(w, resp, func(resp commands.Response) any { return resp.Reminder })
}

// Export streams every reminder as an attachment in the requested format
func (h *ReminderHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	resp := h.runner.Handle(r.Context(), commands.Request{Action: commands.ActionExportReminders})
	if !resp.Success {
		respondCommand(w, resp)
		return
	}

	var buf bytes.Buffer
	if err = export.Encode(&buf, resp.Export, format); err != nil {
		h.logger.Error("export_encode_failed",
			zap.String("format", string(format)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to encode export")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(resp.Export, format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Import merges an uploaded export file. ?format= selects json (default) or yaml.
func (h *ReminderHandler) Import(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	file, err := export.Decode(r.Body, format)
	if err != nil {
		msg := commands.MsgInvalidImport
		if errors.Is(err, export.ErrUnsupportedFormat) {
			msg = err.Error()
		}
		respondCommand(w, commands.Response{Error: msg})
		return
	}

	data, err := json.Marshal(file)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to read import file")
		return
	}

	respondCommand(w, h.runner.Handle(r.Context(), commands.Request{
		Action: commands.ActionImportReminders,
		Data:   data,
	}))
}
