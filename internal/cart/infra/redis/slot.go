// Package redis provides a Redis-backed cart slot.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/app"
	"github.com/go-redis/redis/v8"
)

const (
	initAttempts = 30
	maxBackoff   = 30 * time.Second
)

// Slot stores each serialized cart as a plain string value under its key.
type Slot struct {
	client *redis.Client
	log    *slog.Logger
}

// NewSlot accepts a redis:// URL or a bare host[:port].
func NewSlot(addr string, log *slog.Logger) (*Slot, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	if log == nil {
		log = slog.Default()
	}

	opts, err := redis.ParseURL(addr)
	if err != nil {
		if !strings.Contains(addr, ":") {
			addr += ":6379"
		}
		opts = &redis.Options{
			Addr:         addr,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			PoolTimeout:  4 * time.Second,
			IdleTimeout:  180 * time.Second,
		}
	}
	return &Slot{client: redis.NewClient(opts), log: log}, nil
}

// Initialize waits for Redis to answer PING, backing off exponentially.
func (s *Slot) Initialize(ctx context.Context) error {
	for i := 0; i < initAttempts; i++ {
		err := s.Ping(ctx)
		if err == nil {
			s.log.InfoContext(ctx, "redis slot ready", slog.Int("attempt", i+1))
			return nil
		}

		wait := backoff(i)
		s.log.WarnContext(ctx, "redis ping failed",
			slog.Int("attempt", i+1), slog.Duration("retry_in", wait), slog.Any("err", err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("redis not reachable after %d attempts", initAttempts)
}

func backoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << uint(attempt)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func (s *Slot) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, app.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return val, nil
}

func (s *Slot) Save(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *Slot) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Ping(pingCtx).Err()
}

func (s *Slot) Close() error {
	return s.client.Close()
}
