package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benvon/email-reminders/internal/models"
	"github.com/google/go-cmp/cmp"
)

var exportTime = time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

func sampleFile() *models.ExportFile {
	completed := exportTime.Add(-time.Hour)
	return &models.ExportFile{
		Version:    models.ExportVersion,
		ExportDate: exportTime,
		Reminders: []*models.Reminder{
			{
				ID:          "rem_a",
				MessageID:   "m1",
				Subject:     "Quarterly report, draft",
				Sender:      "boss@example.com",
				DueDate:     exportTime.Add(24 * time.Hour),
				Notes:       "bring numbers",
				CreatedDate: exportTime.Add(-48 * time.Hour),
				Status:      models.StatusPending,
			},
			{
				ID:            "rem_b",
				MessageID:     "m2",
				Subject:       "Invoice",
				Sender:        "billing@example.com",
				DueDate:       exportTime.Add(-2 * time.Hour),
				CreatedDate:   exportTime.Add(-72 * time.Hour),
				CompletedDate: &completed,
				ModifiedDate:  &completed,
				Status:        models.StatusCompleted,
				SnoozeCount:   2,
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatJSON},
		{in: "JSON", want: FormatJSON},
		{in: ".yml", want: FormatYAML},
		{in: "yaml", want: FormatYAML},
		{in: "ics", want: FormatICS},
		{in: "csv", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("ParseFormat(%q) error = %v, want ErrUnsupportedFormat", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestFilename(t *testing.T) {
	t.Parallel()

	if got := Filename(sampleFile(), FormatJSON); got != "email-reminders-export-2026-04-02.json" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			t.Parallel()

			want := sampleFile()
			var buf bytes.Buffer
			if err := Encode(&buf, want, f); err != nil {
				t.Fatalf("Encode() unexpected error: %v", err)
			}
			got, err := Decode(&buf, f)
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Decode(Encode()) mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		format  Format
		wantErr error
	}{
		{name: "not json", input: "{", format: FormatJSON, wantErr: ErrInvalidFile},
		{name: "missing reminders", input: `{"version":"1.0"}`, format: FormatJSON, wantErr: ErrInvalidFile},
		{name: "reminders not a list", input: `{"reminders":{"a":1}}`, format: FormatJSON, wantErr: ErrInvalidFile},
		{name: "future version", input: `{"version":"2.0","reminders":[]}`, format: FormatJSON, wantErr: ErrInvalidFile},
		{name: "empty yaml", input: "", format: FormatYAML, wantErr: ErrInvalidFile},
		{name: "ics import", input: "BEGIN:VCALENDAR", format: FormatICS, wantErr: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(strings.NewReader(tt.input), tt.format)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecode_VersionOptional(t *testing.T) {
	t.Parallel()

	got, err := Decode(strings.NewReader(`{"reminders":[{"id":"rem_x","status":"pending"}]}`), FormatJSON)
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	if len(got.Reminders) != 1 || got.Reminders[0].ID != "rem_x" {
		t.Errorf("Unexpected reminders %+v", got.Reminders)
	}
}

func TestEncodeICS(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Encode(&buf, sampleFile(), FormatICS); err != nil {
		t.Fatalf("Encode(ics) unexpected error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"PRODID:" + productID,
		"UID:rem_a@email-reminders",
		"DUE:20260403T080000Z",
		"STATUS:NEEDS-ACTION",
		"STATUS:COMPLETED",
		"COMPLETED:20260402T070000Z",
		"X-EMAIL-REMINDER-STATUS:completed",
		"X-EMAIL-REMINDER-STATUS:pending",
		"X-EMAIL-REMINDER-MESSAGE-ID:m1",
		"SUMMARY:Quarterly report\\, draft",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected ICS output to contain %q", want)
		}
	}

	if strings.Contains(out, "VALUE=TEXT") {
		t.Error("Expected extension properties without a VALUE parameter")
	}

	if n := strings.Count(out, "BEGIN:VTODO"); n != 2 {
		t.Errorf("Expected 2 VTODO components, got %d", n)
	}
	// Only the active reminder gets an alarm.
	if n := strings.Count(out, "BEGIN:VALARM"); n != 1 {
		t.Errorf("Expected 1 VALARM, got %d", n)
	}
}

func TestXText_Escapes(t *testing.T) {
	t.Parallel()

	p := xText(propMessageID, "a,b;c\\d\ne")
	if want := `a\,b\;c\\d\ne`; p.Value != want {
		t.Errorf("xText value = %q, want %q", p.Value, want)
	}
	if len(p.Params) != 0 {
		t.Errorf("Expected no params, got %v", p.Params)
	}
}
