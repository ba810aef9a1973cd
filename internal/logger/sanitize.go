package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxIDLength bounds reminder ids, message ids and tag keys in logs
	MaxIDLength = 128
	// MaxSubjectLength bounds email subjects and senders in logs
	MaxSubjectLength = 200
	// MaxPathLength is the maximum length for URL paths in logs
	MaxPathLength = 500
	// MaxErrorMessageLength is the maximum length for error messages in logs
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is the fallback when no limit is given
	MaxGeneralStringLength = 2000
)

// SanitizeString strips control characters, repairs UTF-8 and truncates to maxLength.
// Email subjects and senders come from arbitrary mail, so anything user-supplied
// goes through here before it reaches a log line.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' {
			builder.WriteRune(r)
		}
	}
	s = builder.String()
	if len(s) > maxLength {
		s = strings.ToValidUTF8(s[:maxLength], "") + "..."
	}
	return s
}

// SanitizePath sanitizes a URL path
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeID sanitizes an identifier
func SanitizeID(id string) string {
	return SanitizeString(id, MaxIDLength)
}

// SanitizeSubject sanitizes an email subject or sender
func SanitizeSubject(subject string) string {
	return SanitizeString(subject, MaxSubjectLength)
}

// SanitizeError sanitizes an error message
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}
