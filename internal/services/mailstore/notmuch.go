package mailstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Runner executes a command and returns its standard output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Notmuch talks to a local notmuch database through the notmuch binary.
// Notmuch identifies messages by their RFC 822 Message-ID, so the mutable
// and stable references are the same value here.
type Notmuch struct {
	binary string
	viewer []string
	run    Runner
	start  Runner
}

// NewNotmuch creates a notmuch-backed store. viewerCmd is split on whitespace;
// a "{id}" argument is replaced by the message id, otherwise the id is appended.
func NewNotmuch(binary, viewerCmd string) *Notmuch {
	if binary == "" {
		binary = "notmuch"
	}
	return &Notmuch{
		binary: binary,
		viewer: strings.Fields(viewerCmd),
		run:    execRunner,
		start: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			// The viewer outlives the request, so it is not bound to ctx.
			return nil, exec.Command(name, args...).Start()
		},
	}
}

// WithRunner replaces the command runner, for tests
func (n *Notmuch) WithRunner(run, start Runner) *Notmuch {
	n.run = run
	if start != nil {
		n.start = start
	}
	return n
}

// idQuery builds a notmuch id: search term, quoting as notmuch requires
func idQuery(id string) string {
	return `id:"` + strings.ReplaceAll(NormalizeHeaderID(id), `"`, `""`) + `"`
}

// notmuchSummary is one thread from --output=summary. Its tags cover the whole
// thread, so message tags are read separately.
type notmuchSummary struct {
	Thread  string `json:"thread"`
	Subject string `json:"subject"`
	Authors string `json:"authors"`
}

// GetByID looks the message up by Message-ID. Tags are the message's own.
func (n *Notmuch) GetByID(ctx context.Context, id string) (*Message, error) {
	if NormalizeHeaderID(id) == "" {
		return nil, ErrNotFound
	}
	out, err := n.run(ctx, n.binary, "search", "--format=json", "--output=summary", "--", idQuery(id))
	if err != nil {
		return nil, errors.Wrapf(err, "notmuch search for %s failed", id)
	}

	var summaries []notmuchSummary
	if err := json.Unmarshal(out, &summaries); err != nil {
		return nil, errors.Wrap(err, "could not decode notmuch search output")
	}
	if len(summaries) == 0 {
		return nil, ErrNotFound
	}

	tags, err := n.messageTags(ctx, id)
	if err != nil {
		return nil, err
	}

	s := summaries[0]
	normalized := NormalizeHeaderID(id)
	return &Message{
		ID:              normalized,
		HeaderMessageID: normalized,
		Subject:         s.Subject,
		Author:          s.Authors,
		Tags:            tags,
	}, nil
}

func (n *Notmuch) messageTags(ctx context.Context, id string) ([]string, error) {
	out, err := n.run(ctx, n.binary, "search", "--format=json", "--output=tags", "--", idQuery(id))
	if err != nil {
		return nil, errors.Wrapf(err, "notmuch tag lookup for %s failed", id)
	}
	var tags []string
	if err := json.Unmarshal(out, &tags); err != nil {
		return nil, errors.Wrap(err, "could not decode notmuch tag output")
	}
	return tags, nil
}

// FindByStableID is GetByID for notmuch
func (n *Notmuch) FindByStableID(ctx context.Context, headerMessageID string) (*Message, error) {
	return n.GetByID(ctx, headerMessageID)
}

// OpenInViewer launches the configured mail viewer on the message
func (n *Notmuch) OpenInViewer(ctx context.Context, id string) error {
	if len(n.viewer) == 0 {
		return ErrUnsupported
	}
	args := make([]string, 0, len(n.viewer))
	replaced := false
	for _, a := range n.viewer[1:] {
		if strings.Contains(a, "{id}") {
			a = strings.ReplaceAll(a, "{id}", NormalizeHeaderID(id))
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, idQuery(id))
	}
	if _, err := n.start(ctx, n.viewer[0], args...); err != nil {
		return errors.Wrapf(err, "could not start viewer %s", n.viewer[0])
	}
	return nil
}

// GetTags returns the message's tags
func (n *Notmuch) GetTags(ctx context.Context, id string) ([]string, error) {
	msg, err := n.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return msg.Tags, nil
}

// SetTags makes the message's tags exactly tags, issuing a single notmuch tag call
func (n *Notmuch) SetTags(ctx context.Context, id string, tags []string) error {
	current, err := n.GetTags(ctx, id)
	if err != nil {
		return err
	}

	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	have := make(map[string]bool, len(current))
	for _, t := range current {
		have[t] = true
	}

	var ops []string
	for t := range want {
		if !have[t] {
			ops = append(ops, "+"+t)
		}
	}
	for t := range have {
		if !want[t] {
			ops = append(ops, "-"+t)
		}
	}
	if len(ops) == 0 {
		return nil
	}
	sort.Strings(ops)

	args := append([]string{"tag"}, ops...)
	args = append(args, "--", idQuery(id))
	if _, err := n.run(ctx, n.binary, args...); err != nil {
		return errors.Wrapf(err, "notmuch tag for %s failed", id)
	}
	return nil
}

// ListAvailableTags lists every tag in the database
func (n *Notmuch) ListAvailableTags(ctx context.Context) ([]TagDefinition, error) {
	out, err := n.run(ctx, n.binary, "search", "--output=tags", "--", "*")
	if err != nil {
		return nil, errors.Wrap(err, "notmuch tag listing failed")
	}
	var defs []TagDefinition
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if tag := strings.TrimSpace(scanner.Text()); tag != "" {
			defs = append(defs, TagDefinition{Key: tag, Label: tag})
		}
	}
	return defs, errors.Wrap(scanner.Err(), "could not read notmuch tag listing")
}

// CreateTag is a no-op: notmuch tags exist as soon as a message carries them
func (n *Notmuch) CreateTag(context.Context, TagDefinition) error {
	return nil
}
