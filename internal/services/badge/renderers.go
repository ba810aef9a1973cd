package badge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LogRenderer writes badge changes to the log
type LogRenderer struct {
	logger *zap.Logger
}

// NewLogRenderer creates a renderer that only logs
func NewLogRenderer(logger *zap.Logger) *LogRenderer {
	return &LogRenderer{logger: logger}
}

func (r *LogRenderer) SetText(_ context.Context, text string) error {
	r.logger.Info("badge_text", zap.String("text", text))
	return nil
}

func (r *LogRenderer) SetColor(_ context.Context, color string) error {
	r.logger.Info("badge_color", zap.String("color", color))
	return nil
}

// Redis keys and channel used by RedisRenderer
const (
	RedisTextKey  = "email-reminders:badge:text"
	RedisColorKey = "email-reminders:badge:color"
	RedisChannel  = "email-reminders:badge"
)

// RedisRenderer stores the badge in redis and publishes each change so status
// bar widgets can subscribe instead of polling.
type RedisRenderer struct {
	client *redis.Client

	mu    sync.Mutex
	badge Badge
}

// NewRedisRenderer creates a renderer on client
func NewRedisRenderer(client *redis.Client) *RedisRenderer {
	return &RedisRenderer{client: client}
}

func (r *RedisRenderer) SetText(ctx context.Context, text string) error {
	r.mu.Lock()
	r.badge.Text = text
	if text == "" {
		r.badge.Color = ""
	}
	b := r.badge
	r.mu.Unlock()

	if err := r.client.Set(ctx, RedisTextKey, text, 0).Err(); err != nil {
		return fmt.Errorf("failed to store badge text: %w", err)
	}
	return r.publish(ctx, b)
}

func (r *RedisRenderer) SetColor(ctx context.Context, color string) error {
	r.mu.Lock()
	r.badge.Color = color
	b := r.badge
	r.mu.Unlock()

	if err := r.client.Set(ctx, RedisColorKey, color, 0).Err(); err != nil {
		return fmt.Errorf("failed to store badge color: %w", err)
	}
	return r.publish(ctx, b)
}

func (r *RedisRenderer) publish(ctx context.Context, b Badge) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode badge: %w", err)
	}
	if err := r.client.Publish(ctx, RedisChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish badge: %w", err)
	}
	return nil
}

var (
	_ Renderer = (*LogRenderer)(nil)
	_ Renderer = (*RedisRenderer)(nil)
)
