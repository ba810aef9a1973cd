package middleware

import (
	"fmt"
	"net/http"

	"github.com/benvon/email-reminders/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

const (
	// DefaultRate is used when no rate is configured
	DefaultRate = "20-S"

	storePrefix = "email-reminders:ratelimit"
)

// NewRateLimitStore returns a Redis-backed counter store when a client is
// given, otherwise an in-process one.
func NewRateLimitStore(redisClient *redis.Client) (limiter.Store, error) {
	if redisClient == nil {
		return memorystore.NewStoreWithOptions(limiter.StoreOptions{Prefix: storePrefix}), nil
	}
	store, err := redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: storePrefix})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
	}
	return store, nil
}

// RateLimit limits requests per client IP. rate uses limiter's "<n>-<S|M|H|D>" format.
func RateLimit(store limiter.Store, rate string) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		rate = DefaultRate
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	mw := stdlibmw.NewMiddleware(limiter.New(store, parsed), stdlibmw.WithKeyGetter(request.ClientIP))
	return mw.Handler, nil
}
