// Package redis backs the leaderboard mirror with a Redis sorted set, so
// multiple server instances can share one live ordering.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scorekit/core"
	"scorekit/leaderboard"
)

// Config holds Redis connection configuration.
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Key          string
}

// DefaultConfig returns sensible defaults for Redis configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		Key:          "leaderboard:global",
	}
}

// Board implements the leaderboard mirror on a Redis sorted set keyed by
// total score. Operations are best-effort: the persistent store stays the
// rank authority, so failed mirror writes are dropped rather than retried.
type Board struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// New connects to Redis and verifies the connection.
func New(config Config) (*Board, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewWithClient(client, config.Key), nil
}

// NewWithClient creates a Board using an existing Redis client (useful for
// testing).
func NewWithClient(client *redis.Client, key string) *Board {
	if key == "" {
		key = DefaultConfig().Key
	}
	return &Board{client: client, key: key, timeout: 3 * time.Second}
}

// Close closes the Redis connection.
func (b *Board) Close() error { return b.client.Close() }

func (b *Board) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.timeout)
}

func (b *Board) Update(user core.UserID, score int64) {
	ctx, cancel := b.ctx()
	defer cancel()
	_ = b.client.ZAdd(ctx, b.key, redis.Z{Score: float64(score), Member: string(user)}).Err()
}

func (b *Board) Remove(user core.UserID) {
	ctx, cancel := b.ctx()
	defer cancel()
	_ = b.client.ZRem(ctx, b.key, string(user)).Err()
}

func (b *Board) TopN(n int) []leaderboard.Entry {
	if n <= 0 {
		return nil
	}
	ctx, cancel := b.ctx()
	defer cancel()
	zs, err := b.client.ZRevRangeWithScores(ctx, b.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil
	}
	out := make([]leaderboard.Entry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, leaderboard.Entry{User: core.UserID(member), Score: int64(z.Score)})
	}
	return out
}

func (b *Board) Get(user core.UserID) (leaderboard.Entry, bool) {
	ctx, cancel := b.ctx()
	defer cancel()
	score, err := b.client.ZScore(ctx, b.key, string(user)).Result()
	if err != nil {
		return leaderboard.Entry{}, false
	}
	return leaderboard.Entry{User: user, Score: int64(score)}, true
}

func (b *Board) Rank(user core.UserID) (int, bool) {
	ctx, cancel := b.ctx()
	defer cancel()
	rank, err := b.client.ZRevRank(ctx, b.key, string(user)).Result()
	if errors.Is(err, redis.Nil) || err != nil {
		return 0, false
	}
	return int(rank) + 1, true
}

var _ leaderboard.Board = (*Board)(nil)
