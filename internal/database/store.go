package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/email-reminders/internal/config"
)

// ErrKeyNotFound is returned by Store.Get when nothing is stored under the key
var ErrKeyNotFound = errors.New("key not found")

// Store is a flat keyed record store. Values are opaque bytes; callers own the encoding.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open returns the Store selected by cfg.StoreDriver
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverBolt:
		return NewBoltStore(cfg.StorePath)
	case config.StoreDriverSQLite:
		return NewSQLStore(ctx, DialectSQLite, cfg.StorePath)
	case config.StoreDriverPostgres:
		return NewSQLStore(ctx, DialectPostgres, cfg.DatabaseURL)
	case config.StoreDriverRedis:
		return NewRedisStore(ctx, cfg.RedisURL)
	case config.StoreDriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
