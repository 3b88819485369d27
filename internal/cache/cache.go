package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ListTTL    = 60 * time.Second
	SummaryTTL = 5 * time.Minute
)

// Key builders for per-user entries
func AccountsKey(userID string) string     { return "accounts:" + userID }
func TransactionsKey(userID string) string { return "transactions:" + userID }
func SummaryKey(userID string) string      { return "summary:" + userID }

// UserKeys lists every cached key derived from a user's accounts or transactions.
func UserKeys(userID string) []string {
	return []string{AccountsKey(userID), TransactionsKey(userID), SummaryKey(userID)}
}

// Cache is a JSON read-through cache on Redis. A nil *Cache or a Cache
// without a client is valid and never hits.
type Cache struct {
	client *redis.Client
	log    zerolog.Logger
}

func New(client *redis.Client, log zerolog.Logger) *Cache {
	return &Cache{client: client, log: log}
}

// Connect dials Redis at addr, accepting either a redis:// URL or host:port.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	if !strings.Contains(addr, "://") {
		addr = "redis://" + addr
	}
	opt, err := redis.ParseURL(addr)
	if err != nil {
		// Fallback to simple connection
		opt = &redis.Options{Addr: strings.TrimPrefix(addr, "redis://")}
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON decodes the cached value at key into dst and reports a hit.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) bool {
	if !c.enabled() {
		return false
	}
	cached, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(cached, dst); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return false
	}
	return true
}

// SetJSON stores value at key for ttl. Failures are logged only.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache encode failed")
		return
	}
	if err := c.client.SetEx(ctx, key, data, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// Invalidate deletes keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.enabled() || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Strs("keys", keys).Msg("Cache invalidation failed")
	}
}

// Ping checks the Redis connection when one is configured.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.client.Close()
}
