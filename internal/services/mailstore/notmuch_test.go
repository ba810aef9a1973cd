package mailstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeRunner records notmuch invocations and answers from canned output keyed by subcommand
type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	outputs map[string]string
	err     error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return nil, f.err
	}
	key := args[0]
	if len(args) > 2 && args[0] == "search" {
		key = "search " + args[2]
	}
	return []byte(f.outputs[key]), nil
}

func TestNotmuch_GetByID(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{outputs: map[string]string{
		"search --output=summary": `[{"thread":"0001","subject":"Quarterly report","authors":"Pat Doe","tags":["inbox","unread","flagged"]}]`,
		"search --output=tags":    `["inbox","unread"]`,
	}}
	n := NewNotmuch("notmuch", "").WithRunner(runner.run, nil)

	msg, err := n.GetByID(context.Background(), "<abc@example.com>")
	if err != nil {
		t.Fatalf("GetByID() unexpected error: %v", err)
	}

	want := &Message{
		ID:              "abc@example.com",
		HeaderMessageID: "abc@example.com",
		Subject:         "Quarterly report",
		Author:          "Pat Doe",
		Tags:            []string{"inbox", "unread"},
	}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Errorf("GetByID() mismatch (-want +got):\n%s", diff)
	}

	wantCalls := [][]string{
		{"notmuch", "search", "--format=json", "--output=summary", "--", `id:"abc@example.com"`},
		{"notmuch", "search", "--format=json", "--output=tags", "--", `id:"abc@example.com"`},
	}
	if diff := cmp.Diff(wantCalls, runner.calls); diff != "" {
		t.Errorf("notmuch args mismatch (-want +got):\n%s", diff)
	}
}

func TestNotmuch_GetByID_NotFound(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{outputs: map[string]string{"search --output=summary": `[]`}}
	n := NewNotmuch("", "").WithRunner(runner.run, nil)

	if _, err := n.GetByID(context.Background(), "gone@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if _, err := n.GetByID(context.Background(), "  "); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() on blank id error = %v, want ErrNotFound", err)
	}
}

func TestNotmuch_GetByID_CommandFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: errors.New("exit status 1")}
	n := NewNotmuch("notmuch", "").WithRunner(runner.run, nil)

	_, err := n.GetByID(context.Background(), "abc@example.com")
	if err == nil || !strings.Contains(err.Error(), "notmuch search") {
		t.Errorf("GetByID() error = %v, want wrapped notmuch failure", err)
	}
}

func TestNotmuch_SetTags(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{outputs: map[string]string{
		"search --output=summary": `[{"subject":"s","authors":"a"}]`,
		"search --output=tags":    `["inbox","old"]`,
	}}
	n := NewNotmuch("notmuch", "").WithRunner(runner.run, nil)

	if err := n.SetTags(context.Background(), "abc@example.com", []string{"inbox", "reminder"}); err != nil {
		t.Fatalf("SetTags() unexpected error: %v", err)
	}

	last := runner.calls[len(runner.calls)-1]
	want := []string{"notmuch", "tag", "+reminder", "-old", "--", `id:"abc@example.com"`}
	if diff := cmp.Diff(want, last); diff != "" {
		t.Errorf("notmuch tag args mismatch (-want +got):\n%s", diff)
	}
}

func TestNotmuch_SetTags_NoChange(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{outputs: map[string]string{
		"search --output=summary": `[{"subject":"s"}]`,
		"search --output=tags":    `["inbox","reminder"]`,
	}}
	n := NewNotmuch("notmuch", "").WithRunner(runner.run, nil)

	if err := n.SetTags(context.Background(), "abc@example.com", []string{"reminder", "inbox"}); err != nil {
		t.Fatalf("SetTags() unexpected error: %v", err)
	}
	for _, call := range runner.calls {
		if call[1] == "tag" {
			t.Errorf("Expected no tag call, got %v", call)
		}
	}
}

func TestNotmuch_SetTags_ThreadTagNotInherited(t *testing.T) {
	t.Parallel()

	// Another message in the thread carries the tag, so the thread summary lists it.
	runner := &fakeRunner{outputs: map[string]string{
		"search --output=summary": `[{"thread":"0002","subject":"Re: contract","tags":["inbox","reminder"]}]`,
		"search --output=tags":    `["inbox"]`,
	}}
	n := NewNotmuch("notmuch", "").WithRunner(runner.run, nil)

	tags, err := n.GetTags(context.Background(), "b@example.com")
	if err != nil {
		t.Fatalf("GetTags() unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"inbox"}, tags); diff != "" {
		t.Errorf("GetTags() mismatch (-want +got):\n%s", diff)
	}

	if err := n.SetTags(context.Background(), "b@example.com", []string{"inbox", "reminder"}); err != nil {
		t.Fatalf("SetTags() unexpected error: %v", err)
	}
	last := runner.calls[len(runner.calls)-1]
	want := []string{"notmuch", "tag", "+reminder", "--", `id:"b@example.com"`}
	if diff := cmp.Diff(want, last); diff != "" {
		t.Errorf("notmuch tag args mismatch (-want +got):\n%s", diff)
	}
}

func TestNotmuch_ListAvailableTags(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{outputs: map[string]string{"search --": "inbox\nreminder\n\n"}}
	n := NewNotmuch("notmuch", "").WithRunner(runner.run, nil)

	defs, err := n.ListAvailableTags(context.Background())
	if err != nil {
		t.Fatalf("ListAvailableTags() unexpected error: %v", err)
	}
	want := []TagDefinition{{Key: "inbox", Label: "inbox"}, {Key: "reminder", Label: "reminder"}}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("ListAvailableTags() mismatch (-want +got):\n%s", diff)
	}
}

func TestNotmuch_OpenInViewer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		viewer string
		want   []string
	}{
		{name: "placeholder", viewer: "alot search id:{id}", want: []string{"alot", "search", "id:abc@example.com"}},
		{name: "appended", viewer: "neomutt -f", want: []string{"neomutt", "-f", `id:"abc@example.com"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			starter := &fakeRunner{}
			n := NewNotmuch("notmuch", tt.viewer).WithRunner((&fakeRunner{}).run, starter.run)

			if err := n.OpenInViewer(context.Background(), "<abc@example.com>"); err != nil {
				t.Fatalf("OpenInViewer() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, starter.calls[0]); diff != "" {
				t.Errorf("viewer args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNotmuch_OpenInViewer_NotConfigured(t *testing.T) {
	t.Parallel()

	n := NewNotmuch("notmuch", "")
	if err := n.OpenInViewer(context.Background(), "abc@example.com"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("OpenInViewer() error = %v, want ErrUnsupported", err)
	}
}

func TestIDQuery_EscapesQuotes(t *testing.T) {
	t.Parallel()

	if got := idQuery(`<we"ird@example.com>`); got != `id:"we""ird@example.com"` {
		t.Errorf("idQuery() = %s", got)
	}
}
