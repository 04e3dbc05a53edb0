// Package cache owns the Redis connection shared by the readiness probe and
// the job queue.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// New creates a new Redis client and verifies it answers PING.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Pinger is the subset of a Redis client needed for health checks.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Ping checks connectivity with a bounded timeout.
func Ping(ctx context.Context, client Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("platform/cache: ping: %w", err)
	}
	return nil
}

// Check adapts a client to the readiness probe signature.
func Check(client Pinger) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("platform/cache: not configured")
		}
		return Ping(ctx, client)
	}
}
