// Package cache provides the versioned read cache for category queries.
// Bumping the version after a sync orphans every older entry; they expire
// by TTL instead of being deleted.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// KeyPrefix namespaces every category entry.
	KeyPrefix = "categories"
	// VersionKey holds the current cache generation.
	VersionKey = KeyPrefix + ":version"
	// DefaultTTL applies when none is configured.
	DefaultTTL = 10 * time.Minute
)

// Cache stores JSON-encoded query results.
type Cache interface {
	// Get decodes the entry for key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	// Set stores value under key for the current version.
	Set(ctx context.Context, key string, value interface{}) error
	// Bump starts a new version, invalidating all entries.
	Bump(ctx context.Context) error
}

// Noop is used when no cache is configured.
type Noop struct{}

func (Noop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, interface{}) error { return nil }
func (Noop) Bump(context.Context) error { return nil }

// Redis is a Cache backed by a Redis server.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to url (redis://[:password@]host:port/db) and pings it.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache.NewRedis: parse url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache.NewRedis: ping: %w", err)
	}
	return NewRedisWithClient(client, ttl), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	version, err := r.version(ctx)
	if err != nil {
		return false, err
	}

	data, err := r.client.Get(ctx, EntryKey(version, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache.Get: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache.Get: decode %s: %w", key, err)
	}
	return true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, value interface{}) error {
	version, err := r.version(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache.Set: encode %s: %w", key, err)
	}

	if err := r.client.Set(ctx, EntryKey(version, key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache.Set: %w", err)
	}
	return nil
}

// Bump implements Cache.
func (r *Redis) Bump(ctx context.Context) error {
	if err := r.client.Incr(ctx, VersionKey).Err(); err != nil {
		return fmt.Errorf("cache.Bump: %w", err)
	}
	return nil
}

// version returns the current generation, initializing it to 1.
func (r *Redis) version(ctx context.Context) (int64, error) {
	v, err := r.client.Get(ctx, VersionKey).Int64()
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("cache: read version: %w", err)
	}

	if err := r.client.SetNX(ctx, VersionKey, 1, 0).Err(); err != nil {
		return 0, fmt.Errorf("cache: init version: %w", err)
	}
	v, err = r.client.Get(ctx, VersionKey).Int64()
	if err != nil {
		return 0, fmt.Errorf("cache: read version: %w", err)
	}
	return v, nil
}

// EntryKey builds categories:v<version>:<key>.
func EntryKey(version int64, key string) string {
	return KeyPrefix + ":v" + strconv.FormatInt(version, 10) + ":" + key
}
