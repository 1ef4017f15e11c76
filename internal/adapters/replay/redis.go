// Package replay provides a StepGuard shared by every service instance.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "brewrank:step:"
	defaultTTL    = 48 * time.Hour
)

// ErrNilClient is returned when NewRedisGuard is given no client.
var ErrNilClient = errors.New("replay: nil redis client")

// RedisGuard records consumed comparison steps in Redis. Each step id is a
// key written with SET NX, so exactly one caller claims it cluster-wide.
// Keys expire after the TTL, which should outlive any session token.
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Option configures a RedisGuard.
type Option func(*RedisGuard)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(g *RedisGuard) {
		if prefix != "" {
			g.prefix = prefix
		}
	}
}

// WithTTL sets how long a consumed step is remembered.
func WithTTL(ttl time.Duration) Option {
	return func(g *RedisGuard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// NewRedisGuard builds a guard on client.
func NewRedisGuard(client *redis.Client, opts ...Option) (*RedisGuard, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	g := &RedisGuard{client: client, prefix: defaultPrefix, ttl: defaultTTL}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// SeenAndRecord claims id. It reports true when another caller already did.
func (g *RedisGuard) SeenAndRecord(ctx context.Context, id string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+id, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim step %q: %w", id, err)
	}
	return !ok, nil
}

// Unrecord releases a claim so the step can be retried.
func (g *RedisGuard) Unrecord(ctx context.Context, id string) error {
	if err := g.client.Del(ctx, g.prefix+id).Err(); err != nil {
		return fmt.Errorf("release step %q: %w", id, err)
	}
	return nil
}

// Ping checks the server is reachable.
func (g *RedisGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (g *RedisGuard) Close() error {
	return g.client.Close()
}
