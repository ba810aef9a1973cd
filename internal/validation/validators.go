package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/benvon/email-reminders/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

// Due date validation failures
var (
	ErrDueDateRequired = errors.New("please select a date and time")
	ErrDueDateInPast   = errors.New("reminder time must be in the future")
)

func init() {
	Validate = validator.New()
	Validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	if err := Validate.RegisterValidation("reminder_status", validateReminderStatus); err != nil {
		panic(fmt.Sprintf("failed to register reminder_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("list_filter", validateListFilter); err != nil {
		panic(fmt.Sprintf("failed to register list_filter validator: %v", err))
	}
	if err := Validate.RegisterValidation("clock", validateClock); err != nil {
		panic(fmt.Sprintf("failed to register clock validator: %v", err))
	}
}

func validateReminderStatus(fl validator.FieldLevel) bool {
	return models.Status(fl.Field().String()).Valid()
}

func validateListFilter(fl validator.FieldLevel) bool {
	return models.ListFilter(fl.Field().String()).Valid()
}

// validateClock accepts an "HH:MM" wall-clock time
func validateClock(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", fl.Field().String())
	return err == nil
}

// Describe turns a validator error into a short message naming the first bad field
func Describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "clock":
		return fe.Field() + " must be a time like 09:00"
	case "numeric":
		return fe.Field() + " must be a number"
	case "reminder_status":
		return fe.Field() + " must be one of pending, snoozed, notified, completed, dismissed"
	case "list_filter":
		return fe.Field() + " must be one of active, pending, completed, dismissed, all"
	default:
		return fe.Field() + " is invalid"
	}
}

// SanitizeText trims whitespace and removes control characters except newline and tab
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateDueDate checks a user-entered due date: it must be set and strictly after now.
func ValidateDueDate(due, now time.Time) error {
	if due.IsZero() {
		return ErrDueDateRequired
	}
	if !due.After(now) {
		return ErrDueDateInPast
	}
	return nil
}

// ValidateStatus validates a status string value
func ValidateStatus(value string) error {
	if Validate.Var(value, "reminder_status") != nil {
		return fmt.Errorf("invalid status: %s (must be 'pending', 'snoozed', 'notified', 'completed', or 'dismissed')", value)
	}
	return nil
}

// ValidateListFilter validates a list filter value
func ValidateListFilter(value string) error {
	if Validate.Var(value, "list_filter") != nil {
		return fmt.Errorf("invalid filter: %s (must be 'active', 'pending', 'completed', 'dismissed', or 'all')", value)
	}
	return nil
}
