// Package redisstore wraps the Redis operations used by the POI extract.
// Every call is timed into the store_op metrics.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/mohammed-shakir/poi-feature-vectors/internal/core/observability"
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

type Client struct {
	rdb *redis.Client
}

// New connects to addr and fails unless the server answers PING.
func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     16,
		MinIdleConns: 1,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		// extracts run against plain redis; skip the cluster handshake
		MaintNotificationsConfig: &maintnotifications.Config{Mode: maintnotifications.ModeDisabled},
	}
	for _, f := range opts {
		f(ro)
	}

	c := &Client{rdb: redis.NewClient(ro)}
	if err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, err
	}
	return c, nil
}

func timed(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	observability.ObserveStoreOp(op, err, time.Since(start).Seconds())
	return err
}

func (c *Client) Ping(ctx context.Context) error {
	if err := timed("ping", func() error { return c.rdb.Ping(ctx).Err() }); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// MGet returns the values of the keys that exist; missing keys are left out.
func (c *Client) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	var vals []any
	err := timed("mget", func() (err error) {
		vals, err = c.rdb.MGet(ctx, keys...).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("redis MGET %d keys: %w", len(keys), err)
	}
	for i, v := range vals {
		switch t := v.(type) {
		case string:
			out[keys[i]] = []byte(t)
		case []byte:
			out[keys[i]] = t
		}
	}
	return out, nil
}

// Set writes one key; ttl 0 keeps it forever.
func (c *Client) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := timed("set", func() error { return c.rdb.Set(ctx, key, val, ttl).Err() }); err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

// MSet writes all pairs in one pipeline.
func (c *Client) MSet(ctx context.Context, kv map[string][]byte, ttl time.Duration) error {
	if len(kv) == 0 {
		return nil
	}
	err := timed("mset", func() error {
		_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			for k, v := range kv {
				p.Set(ctx, k, v, ttl)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("redis pipelined SET of %d keys: %w", len(kv), err)
	}
	return nil
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := timed("del", func() error { return c.rdb.Del(ctx, keys...).Err() }); err != nil {
		return fmt.Errorf("redis DEL %d keys: %w", len(keys), err)
	}
	return nil
}

// CountKeys counts keys matching pattern with SCAN, so large extracts do
// not block the server the way KEYS would.
func (c *Client) CountKeys(ctx context.Context, pattern string) (int, error) {
	n := 0
	err := timed("scan", func() error {
		it := c.rdb.Scan(ctx, 0, pattern, 1000).Iterator()
		for it.Next(ctx) {
			n++
		}
		return it.Err()
	})
	if err != nil {
		return 0, fmt.Errorf("redis SCAN %q: %w", pattern, err)
	}
	return n, nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
