// Package redis caches per-board browser sessions so repeat searches
// reuse warm cookies instead of starting cold every run.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/config"
)

const sessionPrefix = "session:"

// SessionCache stores browser cookies per source adapter
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a session cache client
func New(cfg config.RedisConfig) (*SessionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &SessionCache{client: client, ttl: cfg.SessionTTL}, nil
}

// Close closes the underlying client
func (c *SessionCache) Close() error {
	return c.client.Close()
}

// Load returns the cached cookies for a source. A miss returns an empty
// slice, not an error.
func (c *SessionCache) Load(ctx context.Context, source string) ([]browser.Cookie, error) {
	data, err := c.client.Get(ctx, sessionPrefix+source).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session for %s: %w", source, err)
	}

	var cookies []browser.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		// A corrupt entry is useless; drop it and start cold
		_ = c.client.Del(ctx, sessionPrefix+source).Err()
		return nil, nil
	}
	return cookies, nil
}

// Save stores the cookies for a source with the configured TTL
func (c *SessionCache) Save(ctx context.Context, source string, cookies []browser.Cookie) error {
	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("encoding session for %s: %w", source, err)
	}
	if err := c.client.Set(ctx, sessionPrefix+source, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("saving session for %s: %w", source, err)
	}
	return nil
}

// Invalidate drops the cached session for a source
func (c *SessionCache) Invalidate(ctx context.Context, source string) error {
	return c.client.Del(ctx, sessionPrefix+source).Err()
}

// Health checks connectivity
func (c *SessionCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
