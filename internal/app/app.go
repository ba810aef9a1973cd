// Package app assembles the reminder service from configuration. The server,
// the CLI and the MCP server all build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/benvon/email-reminders/internal/commands"
	"github.com/benvon/email-reminders/internal/config"
	"github.com/benvon/email-reminders/internal/database"
	"github.com/benvon/email-reminders/internal/handlers"
	logpkg "github.com/benvon/email-reminders/internal/logger"
	"github.com/benvon/email-reminders/internal/queue"
	"github.com/benvon/email-reminders/internal/services/badge"
	"github.com/benvon/email-reminders/internal/services/mailstore"
	"github.com/benvon/email-reminders/internal/services/notify"
	"github.com/benvon/email-reminders/internal/services/reminders"
	"github.com/benvon/email-reminders/internal/services/tags"
	"github.com/benvon/email-reminders/internal/workers"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	dlqInterval  = time.Hour
	dlqRetention = 24 * time.Hour
)

// App holds every wired component
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      database.Store
	Reminders  *database.ReminderRepository
	Service    *reminders.Service
	Dispatcher *commands.Dispatcher
	DueChecker *workers.DueChecker

	// Optional transports, nil unless configured
	Queue    *queue.RabbitMQQueue
	Telegram *notify.TelegramNotifier
	Redis    *redis.Client

	closers []func() error
}

// New connects the configured backends and builds the service. Close releases them.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	store, err := database.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)
	a.Logger.Info("store_opened", zap.String("driver", cfg.StoreDriver))

	if rs, ok := store.(*database.RedisStore); ok {
		a.Redis = rs.Client()
	}

	if cfg.Notifier == config.DriverAMQP || cfg.BadgeRenderer == config.DriverAMQP {
		q, err := connectRabbitMQ(ctx, cfg.RabbitMQURL, a.Logger)
		if err != nil {
			return err
		}
		a.Queue = q
		a.closers = append(a.closers, q.Close)
	}

	notifier, err := a.notifier()
	if err != nil {
		return err
	}
	renderer, err := a.renderer(ctx)
	if err != nil {
		return err
	}

	mail := a.mailStore()
	a.Reminders = database.NewReminderRepository(store)
	tagDef := mailstore.TagDefinition{Key: cfg.TagKey, Label: cfg.TagLabel, Color: cfg.TagColor}
	badgeAgg := badge.NewAggregator(a.Reminders, renderer, a.Logger)
	notifications := notify.NewDispatcher(notifier, a.Logger)

	a.Service = reminders.NewService(reminders.Dependencies{
		Reminders:     a.Reminders,
		Pending:       database.NewPendingMessageRepository(store),
		Settings:      database.NewSettingsRepository(store),
		MailStore:     mail,
		Tags:          tags.NewSynchronizer(mail, a.Reminders, tagDef, a.Logger),
		Badge:         badgeAgg,
		Notifications: notifications,
		Location:      cfg.Location(),
		Logger:        a.Logger,
	})
	a.Dispatcher = commands.NewDispatcher(a.Service, nil, a.Logger)
	a.DueChecker = workers.NewDueChecker(a.Reminders, notifications, badgeAgg, nil, a.Logger)
	return nil
}

func (a *App) notifier() (notify.Notifier, error) {
	switch a.Config.Notifier {
	case config.DriverAMQP:
		return queue.NewNotificationPublisher(a.Queue), nil
	case config.DriverTelegram:
		tg, err := notify.NewTelegramNotifier(a.Config.TelegramToken, a.Config.TelegramChatID, a.Logger)
		if err != nil {
			return nil, err
		}
		a.Telegram = tg
		return tg, nil
	default:
		return notify.NewLogNotifier(a.Logger), nil
	}
}

func (a *App) renderer(ctx context.Context) (badge.Renderer, error) {
	switch a.Config.BadgeRenderer {
	case config.DriverAMQP:
		return queue.NewBadgePublisher(a.Queue), nil
	case config.DriverRedis:
		if a.Redis == nil {
			opts, err := redis.ParseURL(a.Config.RedisURL)
			if err != nil {
				return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
			}
			client := redis.NewClient(opts)
			a.closers = append(a.closers, client.Close)
			if err := client.Ping(ctx).Err(); err != nil {
				return nil, fmt.Errorf("failed to connect to redis: %w", err)
			}
			a.Redis = client
		}
		return badge.NewRedisRenderer(a.Redis), nil
	default:
		return badge.NewLogRenderer(a.Logger), nil
	}
}

func (a *App) mailStore() mailstore.Store {
	if a.Config.MailStore == config.MailStoreNotmuch {
		return mailstore.NewNotmuch(a.Config.NotmuchBinary, a.Config.ViewerCommand)
	}
	return mailstore.Disabled{}
}

// connectRabbitMQ retries with exponential backoff so the server can start
// alongside the broker.
func connectRabbitMQ(ctx context.Context, url string, logger *zap.Logger) (*queue.RabbitMQQueue, error) {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, logger)
		if err == nil {
			logger.Info("connected_to_rabbitmq")
			return q, nil
		}
		lastErr = err

		delay := min(initialDelay*time.Duration(1<<uint(attempt)), 30*time.Second)
		logger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.String("error", logpkg.SanitizeError(err)),
			zap.Duration("retry_delay", delay),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", maxRetries, lastErr)
}

// CheckInterval is the stored setting when it is a positive number of
// minutes, otherwise the configured default.
func (a *App) CheckInterval(ctx context.Context) time.Duration {
	settings, err := a.Service.Settings(ctx)
	if err == nil {
		if minutes, convErr := strconv.Atoi(settings.CheckInterval); convErr == nil && minutes >= 1 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return a.Config.CheckInterval()
}

// HealthChecks lists the dependencies /healthz?mode=extended pings
func (a *App) HealthChecks() map[string]handlers.CheckFunc {
	checks := map[string]handlers.CheckFunc{"store": a.Store.Ping}
	if a.Queue != nil {
		checks["queue"] = a.Queue.HealthCheck
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	return checks
}

// RunBackground runs the due checker and any inbound listeners until ctx is done
func (a *App) RunBackground(ctx context.Context) error {
	a.Service.Startup(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.DueChecker.Start(ctx, a.CheckInterval(ctx), a.Config.Location())
	})

	if a.Telegram != nil {
		g.Go(func() error { return a.Telegram.Listen(ctx, a.Service.HandleAction) })
	}

	if a.Queue != nil {
		g.Go(func() error { return queue.ConsumeActions(ctx, a.Queue, a.Service.HandleAction, a.Logger) })

		gc := queue.NewGarbageCollector(a.Queue, dlqInterval, dlqRetention, a.Logger)
		g.Go(func() error {
			if err := gc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// Close releases connections in reverse order of opening
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
