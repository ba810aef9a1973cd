package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/benvon/email-reminders/internal/export"
	logpkg "github.com/benvon/email-reminders/internal/logger"
	"github.com/benvon/email-reminders/internal/models"
	"github.com/benvon/email-reminders/internal/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Dispatcher validates commands and runs them against the service
type Dispatcher struct {
	svc    Service
	now    func() time.Time
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. A nil now uses time.Now.
func NewDispatcher(svc Service, now func() time.Time, logger *zap.Logger) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{svc: svc, now: now, logger: logger}
}

type handlerFunc func(ctx context.Context, req Request) (Response, error)

func (d *Dispatcher) handler(action string) (handlerFunc, bool) {
	switch action {
	case ActionCreateReminder:
		return d.create, true
	case ActionUpdateReminder:
		return d.update, true
	case ActionSnoozeReminder:
		return d.snooze, true
	case ActionDismissReminder:
		return d.dismiss, true
	case ActionCompleteReminder:
		return d.complete, true
	case ActionDeleteReminder:
		return d.delete, true
	case ActionGetReminders:
		return d.list, true
	case ActionGetReminderCounts:
		return d.counts, true
	case ActionGetReminderByID:
		return d.get, true
	case ActionGetPendingMessage:
		return d.takePending, true
	case ActionOpenEmail:
		return d.openEmail, true
	case ActionSetPendingMessage:
		return d.setPending, true
	case ActionReactivateReminder:
		return d.reactivate, true
	case ActionGetSettings:
		return d.getSettings, true
	case ActionSaveSettings:
		return d.saveSettings, true
	case ActionExportReminders:
		return d.exportAll, true
	case ActionImportReminders:
		return d.importAll, true
	case ActionClearCompleted:
		return d.clearCompleted, true
	case ActionClearAll:
		return d.clearAll, true
	}
	return nil, false
}

// Handle runs one command. It never returns a Go error; failures are reported
// in Response.Error.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Response {
	ctx, span := otel.Tracer("email-reminders/commands").Start(ctx, "commands.Handle")
	defer span.End()
	span.SetAttributes(attribute.String("command.action", req.Action))

	h, ok := d.handler(req.Action)
	if !ok {
		d.logger.Debug("unknown_command", zap.String("action", logpkg.SanitizeString(req.Action, 64)))
		return Response{Error: MsgUnknownAction}
	}

	resp, err := h(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, req.Action)
		return d.errorResponse(req, err)
	}
	resp.Success = true
	return resp
}

func (d *Dispatcher) errorResponse(req Request, err error) Response {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return Response{Error: ve.Msg}
	case isNotFound(err):
		return Response{Error: MsgReminderNotFound}
	case errors.Is(err, models.ErrInvalidTransition):
		return Response{Error: MsgInvalidTransition}
	case errors.Is(err, export.ErrInvalidFile):
		return Response{Error: MsgInvalidImport}
	}

	d.logger.Error("command_failed",
		zap.String("action", req.Action),
		zap.String("reminder_id", logpkg.SanitizeID(req.ID)),
		zap.String("error", logpkg.SanitizeError(err)),
	)
	return Response{Error: MsgInternal}
}

func requireID(req Request) error {
	if req.ID == "" {
		return invalid("id is required")
	}
	return nil
}

func decodeData(req Request, v any) error {
	if len(req.Data) == 0 {
		return invalid("data is required")
	}
	if err := json.Unmarshal(req.Data, v); err != nil {
		return invalid("data is not valid JSON for " + req.Action)
	}
	return nil
}

// parseDueDate accepts RFC 3339 timestamps, with or without fractional seconds
func (d *Dispatcher) parseDueDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, invalid(validation.ErrDueDateRequired.Error())
	}
	due, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, invalid(validation.ErrDueDateRequired.Error())
	}
	if err := validation.ValidateDueDate(due, d.now()); err != nil {
		return time.Time{}, invalid(err.Error())
	}
	return due, nil
}

type createPayload struct {
	MessageID       string `json:"messageId"`
	MessageHeaderID string `json:"messageHeaderId"`
	Subject         string `json:"subject"`
	Sender          string `json:"sender"`
	FolderID        string `json:"folderId"`
	DueDate         string `json:"dueDate"`
	Notes           string `json:"notes"`
}

func (d *Dispatcher) create(ctx context.Context, req Request) (Response, error) {
	var p createPayload
	if err := decodeData(req, &p); err != nil {
		return Response{}, err
	}

	due, err := d.parseDueDate(p.DueDate)
	if err != nil {
		return Response{}, err
	}

	in := models.NewReminderInput{
		MessageID:       p.MessageID,
		MessageHeaderID: p.MessageHeaderID,
		Subject:         p.Subject,
		Sender:          p.Sender,
		FolderID:        p.FolderID,
		DueDate:         due,
		Notes:           validation.SanitizeText(p.Notes),
	}
	if err := validation.Validate.Struct(in); err != nil {
		return Response{}, invalid(validation.Describe(err))
	}

	r, err := d.svc.Create(ctx, in)
	if err != nil {
		return Response{}, err
	}
	return Response{ID: r.ID, Reminder: r}, nil
}

type updatePayload struct {
	MessageID *string `json:"messageId"`
	Subject   *string `json:"subject"`
	Sender    *string `json:"sender"`
	FolderID  *string `json:"folderId"`
	DueDate   *string `json:"dueDate"`
	Notes     *string `json:"notes"`
	Status    *string `json:"status"`
}

func (d *Dispatcher) update(ctx context.Context, req Request) (Response, error) {
	if err := requireID(req); err != nil {
		return Response{}, err
	}
	var p updatePayload
	if err := decodeData(req, &p); err != nil {
		return Response{}, err
	}

	patch := models.ReminderPatch{
		MessageID: p.MessageID,
		Subject:   p.Subject,
		Sender:    p.Sender,
		FolderID:  p.FolderID,
	}
	if p.Notes != nil {
		notes := validation.SanitizeText(*p.Notes)
		patch.Notes = &notes
	}
	if p.DueDate != nil {
		due, err := d.parseDueDate(*p.DueDate)
		if err != nil {
			return Response{}, err
		}
		patch.DueDate = &due
	}
	if p.Status != nil {
		status := models.Status(*p.Status)
		patch.Status = &status
	}
	if err := validation.Validate.Struct(patch); err != nil {
		return Response{}, invalid(validation.Describe(err))
	}

	r, err := d.svc.Update(ctx, req.ID, patch)
	if err != nil {
		return Response{}, err
	}
	return Response{Reminder: r}, nil
}

func (d *Dispatcher) snooze(ctx context.Context, req Request) (Response, error) {
	if err := requireID(req); err != nil {
		return Response{}, err
	}
	if req.Minutes == nil {
		return Response{}, invalid("minutes is required")
	}
	r, err := d.svc.Snooze(ctx, req.ID, *req.Minutes)
	if err != nil {
		return Response{}, err
	}
	return Response{Reminder: r}, nil
}

func (d *Dispatcher) dismiss(ctx context.Context, req Request) (Response, error) {
	if err := requireID(req); err != nil {
		return Response{}, err
	}
	r, err := d.svc.Dismiss(ctx, req.ID)
	if err != nil {
		return Response{}, err
	}
	return Response{Reminder: r}, nil
}

func (d *Dispatcher) complete(ctx context.Context, req Request) (Response, error) {
	if err := requireID(req); err != nil {
		return Response{}, err
	}
	r, err := d.svc.Complete(ctx, req.ID)
	if err != nil {
		return Response{}, err
	}
	return Response{Reminder: r}, nil
}

func (d *Dispatcher) delete(ctx context.Context, req Request) (Response, error) {
	if err := requireID(req); err != nil {
		return Response{}, err
	}
	return Response{}, d.svc.Delete(ctx, req.ID)
}

func (d *Dispatcher) reactivate(ctx context.Context, req Request) (Response, error) {
	if err := requireID(req); err != nil {
		return Response{}, err
	}
	var due *time.Time
	if req.DueDate != "" {
		parsed, err := d.parseDueDate(req.DueDate)
		if err != nil {
			return Response{}, err
		}
		due = &parsed
	}
	r, err := d.svc.Reactivate(ctx, req.ID, due)
	if err != nil {
		return Response{}, err
	}
	return Response{Reminder: r}, nil
}

func (d *Dispatcher) list(ctx context.Context, req Request) (Response, error) {
	if err := validation.ValidateListFilter(req.Filter); err != nil {
		return Response{}, invalid(err.Error())
	}
	all, err := d.svc.List(ctx, models.ListFilter(req.Filter))
	if err != nil {
		return Response{}, err
	}
	return Response{Reminders: all}, nil
}

func (d *Dispatcher) counts(ctx context.Context, _ Request) (Response, error) {
	c, err := d.svc.Counts(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Counts: &c}, nil
}

func (d *Dispatcher) get(ctx context.Context, req Request) (Response, error) {
	if err := requireID(req); err != nil {
		return Response{}, err
	}
	r, err := d.svc.GetByID(ctx, req.ID)
	if err != nil {
		return Response{}, err
	}
	return Response{Reminder: r}, nil
}

func (d *Dispatcher) takePending(ctx context.Context, _ Request) (Response, error) {
	msg, err := d.svc.TakePendingMessage(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Message: msg}, nil
}

func (d *Dispatcher) setPending(ctx context.Context, req Request) (Response, error) {
	var msg models.PendingMessage
	if err := decodeData(req, &msg); err != nil {
		return Response{}, err
	}
	if err := validation.Validate.Struct(msg); err != nil {
		return Response{}, invalid(validation.Describe(err))
	}
	return Response{}, d.svc.SetPendingMessage(ctx, &msg)
}

func (d *Dispatcher) openEmail(ctx context.Context, req Request) (Response, error) {
	if err := requireID(req); err != nil {
		return Response{}, err
	}
	return Response{}, d.svc.OpenEmail(ctx, req.ID)
}

func (d *Dispatcher) getSettings(ctx context.Context, _ Request) (Response, error) {
	s, err := d.svc.Settings(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Settings: &s}, nil
}

func (d *Dispatcher) saveSettings(ctx context.Context, req Request) (Response, error) {
	var s models.Settings
	if err := decodeData(req, &s); err != nil {
		return Response{}, err
	}
	if err := validation.Validate.Struct(s); err != nil {
		return Response{}, invalid(validation.Describe(err))
	}
	if err := d.svc.SaveSettings(ctx, s); err != nil {
		return Response{}, err
	}
	return Response{Settings: &s}, nil
}

func (d *Dispatcher) exportAll(ctx context.Context, _ Request) (Response, error) {
	file, err := d.svc.Export(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Export: file}, nil
}

func (d *Dispatcher) importAll(ctx context.Context, req Request) (Response, error) {
	if len(req.Data) == 0 {
		return Response{}, invalid("data is required")
	}
	file, err := export.Decode(bytes.NewReader(req.Data), export.FormatJSON)
	if err != nil {
		return Response{}, err
	}
	result, err := d.svc.Import(ctx, file.Reminders)
	if err != nil {
		return Response{}, err
	}
	return Response{Imported: intPtr(result.Imported), Skipped: intPtr(result.Skipped)}, nil
}

func (d *Dispatcher) clearCompleted(ctx context.Context, _ Request) (Response, error) {
	n, err := d.svc.ClearArchived(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Cleared: intPtr(n)}, nil
}

func (d *Dispatcher) clearAll(ctx context.Context, _ Request) (Response, error) {
	n, err := d.svc.ClearAll(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Cleared: intPtr(n)}, nil
}
