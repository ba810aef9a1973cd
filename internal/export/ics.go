package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/benvon/email-reminders/internal/models"
	"github.com/emersion/go-ical"
)

const (
	productID = "-//email-reminders//export//EN"
	// PropReminderStatus carries the exact reminder status, which VTODO STATUS cannot express
	PropReminderStatus = "X-EMAIL-REMINDER-STATUS"
	propMessageID      = "X-EMAIL-REMINDER-MESSAGE-ID"
)

func todoStatus(s models.Status) string {
	switch s {
	case models.StatusCompleted:
		return "COMPLETED"
	case models.StatusDismissed:
		return "CANCELLED"
	case models.StatusNotified:
		return "IN-PROCESS"
	default:
		return "NEEDS-ACTION"
	}
}

var textEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

// xText builds an extension property holding text. Props.SetText would add a
// VALUE=TEXT parameter, since extension properties have no default type.
func xText(name, value string) *ical.Prop {
	p := ical.NewProp(name)
	p.Value = textEscaper.Replace(value)
	return p
}

// Calendar builds a VCALENDAR with one VTODO per reminder. Active reminders
// get a display alarm at their due time.
func Calendar(file *models.ExportFile) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	stamp := file.ExportDate.UTC()
	for _, r := range file.Reminders {
		todo := ical.NewComponent(ical.CompToDo)
		todo.Props.SetText(ical.PropUID, r.ID+"@email-reminders")
		todo.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		todo.Props.SetDateTime(ical.PropCreated, r.CreatedDate.UTC())
		todo.Props.SetDateTime(ical.PropDue, r.DueDate.UTC())
		todo.Props.SetText(ical.PropSummary, r.Subject)
		todo.Props.SetText(ical.PropStatus, todoStatus(r.Status))
		todo.Props.Set(xText(PropReminderStatus, string(r.Status)))
		todo.Props.Set(xText(propMessageID, r.MessageID))

		description := "From: " + r.Sender
		if r.Notes != "" {
			description += "\n\n" + r.Notes
		}
		todo.Props.SetText(ical.PropDescription, description)

		if r.ModifiedDate != nil {
			todo.Props.SetDateTime(ical.PropLastModified, r.ModifiedDate.UTC())
		}
		if r.CompletedDate != nil {
			todo.Props.SetDateTime(ical.PropCompleted, r.CompletedDate.UTC())
		}

		if r.Status.IsActive() {
			alarm := ical.NewComponent(ical.CompAlarm)
			alarm.Props.SetText(ical.PropAction, "DISPLAY")
			alarm.Props.SetText(ical.PropDescription, r.Subject)
			trigger := ical.NewProp(ical.PropTrigger)
			trigger.Value = "PT0S"
			alarm.Props.Set(trigger)
			todo.Children = append(todo.Children, alarm)
		}

		cal.Children = append(cal.Children, todo)
	}
	return cal
}

// EncodeICS writes the backup as an iCalendar file
func EncodeICS(w io.Writer, file *models.ExportFile) error {
	if err := ical.NewEncoder(w).Encode(Calendar(file)); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}
