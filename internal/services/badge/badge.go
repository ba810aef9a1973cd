// Package badge derives the "<pending+snoozed>|<notified>" badge from reminder counts.
package badge

import (
	"context"
	"strconv"
	"sync"

	logpkg "github.com/benvon/email-reminders/internal/logger"
	"github.com/benvon/email-reminders/internal/models"
	"go.uber.org/zap"
)

// Badge colours
const (
	ColorUrgent  = "#ff9800"
	ColorNeutral = "#1976d2"
)

// Badge is what a renderer shows. An empty Text hides the badge and leaves Color unset.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}

// Format renders counts: empty when nothing is active, otherwise
// "<pending+snoozed>|<notified>", urgent colour when anything is notified.
func Format(c models.Counts) Badge {
	waiting := c.Pending + c.Snoozed
	if waiting == 0 && c.Notified == 0 {
		return Badge{}
	}
	b := Badge{Text: strconv.Itoa(waiting) + "|" + strconv.Itoa(c.Notified)}
	if c.Notified > 0 {
		b.Color = ColorUrgent
	} else {
		b.Color = ColorNeutral
	}
	return b
}

// Renderer displays the badge somewhere
type Renderer interface {
	SetText(ctx context.Context, text string) error
	SetColor(ctx context.Context, color string) error
}

// ReminderLister supplies the reminders to count
type ReminderLister interface {
	List(ctx context.Context) ([]*models.Reminder, error)
}

// Aggregator rebuilds the badge from the reminder list. Refreshes are
// serialised so a slow list cannot render over a newer one.
type Aggregator struct {
	mu       sync.Mutex
	lister   ReminderLister
	renderer Renderer
	logger   *zap.Logger
}

// NewAggregator creates a badge aggregator
func NewAggregator(lister ReminderLister, renderer Renderer, logger *zap.Logger) *Aggregator {
	return &Aggregator{lister: lister, renderer: renderer, logger: logger}
}

// Current computes the badge without rendering it
func (a *Aggregator) Current(ctx context.Context) (Badge, models.Counts, error) {
	reminders, err := a.lister.List(ctx)
	if err != nil {
		return Badge{}, models.Counts{}, err
	}
	counts := models.ComputeCounts(reminders)
	return Format(counts), counts, nil
}

// Refresh recomputes and renders the badge. Failures are logged, not returned.
func (a *Aggregator) Refresh(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, counts, err := a.Current(ctx)
	if err != nil {
		a.logger.Warn("badge_refresh_failed", zap.String("error", logpkg.SanitizeError(err)))
		return
	}

	if err := a.renderer.SetText(ctx, b.Text); err != nil {
		a.logger.Warn("badge_render_failed", zap.String("error", logpkg.SanitizeError(err)))
		return
	}
	if b.Color != "" {
		if err := a.renderer.SetColor(ctx, b.Color); err != nil {
			a.logger.Warn("badge_render_failed", zap.String("error", logpkg.SanitizeError(err)))
			return
		}
	}

	a.logger.Debug("badge_refreshed",
		zap.String("text", b.Text),
		zap.Int("active", counts.Active),
		zap.Int("notified", counts.Notified),
	)
}
