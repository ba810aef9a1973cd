package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/benvon/email-reminders/internal/commands"
)

const maxErrorMessageRunes = 200

// respondJSON sends a JSON response wrapped in the success envelope
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage caps the length of messages echoed back to clients
func sanitizeErrorMessage(message string) string {
	runes := []rune(message)
	if len(runes) > maxErrorMessageRunes {
		return string(runes[:maxErrorMessageRunes]) + "..."
	}
	return message
}

// respondJSONError sends an error JSON response
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// commandStatus maps a command outcome onto an HTTP status
func commandStatus(resp commands.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.Error {
	case commands.MsgReminderNotFound:
		return http.StatusNotFound
	case commands.MsgInvalidTransition:
		return http.StatusConflict
	case commands.MsgInternal:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// respondCommand writes a command response as-is; the body carries its own
// success flag.
func respondCommand(w http.ResponseWriter, resp commands.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(commandStatus(resp))

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
