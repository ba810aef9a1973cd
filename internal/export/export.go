// Package export reads and writes reminder backups.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/benvon/email-reminders/internal/models"
	"gopkg.in/yaml.v3"
)

// Format is a backup encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatICS  Format = "ics"
)

var (
	// ErrInvalidFile is returned for backups without a reminders list or with an unknown version
	ErrInvalidFile = errors.New("invalid import file format")
	// ErrUnsupportedFormat is returned for unknown formats and for importing iCalendar
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// ParseFormat accepts a format name or file extension. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "ics", "ical", "icalendar":
		return FormatICS, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType is the MIME type for f
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatICS:
		return "text/calendar; charset=utf-8"
	default:
		return "application/json"
	}
}

// Filename is the suggested download name, dated like the export
func Filename(file *models.ExportFile, f Format) string {
	return fmt.Sprintf("email-reminders-export-%s.%s", file.ExportDate.Format("2006-01-02"), f)
}

// Encode writes file in format f
func Encode(w io.Writer, file *models.ExportFile, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(file)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(file); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatICS:
		return EncodeICS(w, file)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// Decode reads a backup in format f. Only JSON and YAML can be imported.
func Decode(r io.Reader, f Format) (*models.ExportFile, error) {
	var raw struct {
		Version    string              `json:"version" yaml:"version"`
		ExportDate time.Time           `json:"exportDate" yaml:"exportDate"`
		Reminders  *[]*models.Reminder `json:"reminders" yaml:"reminders"`
	}

	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
	default:
		return nil, fmt.Errorf("%w: cannot import %q", ErrUnsupportedFormat, f)
	}

	if raw.Reminders == nil {
		return nil, fmt.Errorf("%w: missing reminders list", ErrInvalidFile)
	}
	if raw.Version != "" && raw.Version != models.ExportVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidFile, raw.Version)
	}

	return &models.ExportFile{
		Version:    models.ExportVersion,
		ExportDate: raw.ExportDate,
		Reminders:  *raw.Reminders,
	}, nil
}
