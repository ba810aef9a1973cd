package queue

import (
	"context"
	"fmt"
	"time"

	logpkg "github.com/benvon/email-reminders/internal/logger"
	"go.uber.org/zap"
)

const purgeTimeout = 2 * time.Minute

// GarbageCollector trims the reminder_actions_dlq queue. Only inbound agent
// events land there: notification.clicked, notification.closed and
// notification.action deliveries that named no reminder, or whose complete,
// snooze or dismiss failed against the repository. Outbound show, clear and
// badge events are never dead-lettered. A purged event is a user click the
// server gave up on, so each sweep is logged at warn level.
type GarbageCollector struct {
	dlqPurger DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewGarbageCollector sweeps every interval, dropping dead-lettered actions
// older than retention
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	return &GarbageCollector{
		dlqPurger: purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start sweeps once immediately and then on every tick until ctx is cancelled.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	gc.sweep(ctx)

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gc.sweep(ctx)
		}
	}
}

func (gc *GarbageCollector) sweep(ctx context.Context) {
	if err := gc.collect(ctx); err != nil && ctx.Err() == nil {
		gc.logger.Warn("dead_action_purge_failed", zap.String("error", logpkg.SanitizeError(err)))
	}
}

func (gc *GarbageCollector) collect(ctx context.Context) error {
	if gc.dlqPurger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()
	n, err := gc.dlqPurger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return fmt.Errorf("failed to purge %s: %w", DefaultDLQName, err)
	}
	if n > 0 {
		gc.logger.Warn("dead_actions_purged",
			zap.String("queue", DefaultDLQName),
			zap.Int("count", n),
			zap.Duration("retention", gc.retention),
		)
	}
	return nil
}
