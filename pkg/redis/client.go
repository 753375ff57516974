// Package redis provides a thin wrapper around go-redis/v9 for publishing the
// latest snapshot of a run: plain values for documents and sorted sets for
// rankings, both expiring after a TTL.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Member is one scored element of a sorted set.
type Member struct {
	Name  string
	Score float64
}

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client and verifies the connection with a PING.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Get returns the string value for the given key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Set stores a value with the given TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// ReplaceSortedSet atomically swaps the contents of a sorted set. Readers
// never observe a half-written ranking.
func (c *Client) ReplaceSortedSet(ctx context.Context, key string, members []Member, ttl time.Duration) error {
	zs := make([]redis.Z, len(members))
	for i, m := range members {
		zs[i] = redis.Z{Score: m.Score, Member: m.Name}
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(zs) > 0 {
			pipe.ZAdd(ctx, key, zs...)
			if ttl > 0 {
				pipe.Expire(ctx, key, ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replacing sorted set %s: %w", key, err)
	}
	return nil
}

// TopMembers returns up to n members of a sorted set, highest score first.
func (c *Client) TopMembers(ctx context.Context, key string, n int64) ([]Member, error) {
	zs, err := c.rdb.ZRevRangeWithScores(ctx, key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Member, len(zs))
	for i, z := range zs {
		name, _ := z.Member.(string)
		out[i] = Member{Name: name, Score: z.Score}
	}
	return out, nil
}

// IsNilError reports whether err is a Redis nil (key-not-found) error.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping sends a PING to Redis and returns any error.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
