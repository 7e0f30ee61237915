// Package redisdedup implements the FingerprintStore port on Redis. SET NX
// with a window-length TTL makes check-and-record a single atomic operation,
// which is what multi-process deployments need for correct dedup.
package redisdedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"signalSimBot/internal/ports"
)

const keyPrefix = "signalsim:fp:"

// Store is a Redis-backed fingerprint window.
type Store struct {
	client *redis.Client
	window time.Duration
}

// Config holds configuration for the Redis fingerprint store.
type Config struct {
	Addr     string
	Password string
	DB       int
	Window   time.Duration
}

// New creates the store and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Window <= 0 {
		cfg.Window = 2 * time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w: %w", ports.ErrDBConnection, err)
	}
	return &Store{client: client, window: cfg.Window}, nil
}

// CheckAndRecord records the fingerprint with the window TTL; a failed SET NX
// means the fingerprint is already live, i.e. a duplicate.
func (s *Store) CheckAndRecord(ctx context.Context, fingerprint string, _ time.Time) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+fingerprint, 1, s.window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record fingerprint: %w: %w", ports.ErrQueryFailed, err)
	}
	return !ok, nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
