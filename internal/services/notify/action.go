package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ActionKind is what the user did with a notification
type ActionKind string

const (
	ActionOpen     ActionKind = "open"
	ActionClosed   ActionKind = "closed"
	ActionSnooze   ActionKind = "snooze"
	ActionComplete ActionKind = "complete"
	ActionDismiss  ActionKind = "dismiss"
)

// Action is a user interaction with a reminder notification
type Action struct {
	Kind       ActionKind `json:"kind"`
	ReminderID string     `json:"reminderId"`
	Minutes    int        `json:"minutes,omitempty"`
}

// ActionHandler reacts to notification actions
type ActionHandler func(ctx context.Context, action Action) error

// EncodeAction packs an action into a compact "kind[:minutes]:id" string
func EncodeAction(a Action) string {
	if a.Kind == ActionSnooze {
		return fmt.Sprintf("%s:%d:%s", a.Kind, a.Minutes, a.ReminderID)
	}
	return string(a.Kind) + ":" + a.ReminderID
}

// DecodeAction parses a string produced by EncodeAction
func DecodeAction(data string) (Action, error) {
	kind, rest, ok := strings.Cut(data, ":")
	if !ok || rest == "" {
		return Action{}, fmt.Errorf("malformed action %q", data)
	}

	switch ActionKind(kind) {
	case ActionSnooze:
		minutes, id, ok := strings.Cut(rest, ":")
		if !ok || id == "" {
			return Action{}, fmt.Errorf("malformed snooze action %q", data)
		}
		m, err := strconv.Atoi(minutes)
		if err != nil {
			return Action{}, fmt.Errorf("invalid snooze minutes in %q: %w", data, err)
		}
		return Action{Kind: ActionSnooze, ReminderID: id, Minutes: m}, nil
	case ActionOpen, ActionClosed, ActionComplete, ActionDismiss:
		return Action{Kind: ActionKind(kind), ReminderID: rest}, nil
	default:
		return Action{}, fmt.Errorf("unknown action %q", kind)
	}
}
