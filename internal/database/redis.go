package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients splits blocking work (BLPOP, SUBSCRIBE) from short
// key/value traffic so a busy worker never starves session lookups.
type RedisClients struct {
	Store  *redis.Client
	Queue  *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(ctx context.Context, redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clients := &RedisClients{}
	for _, slot := range []struct {
		name string
		dst  **redis.Client
	}{
		{"store", &clients.Store},
		{"queue", &clients.Queue},
		{"pubsub", &clients.PubSub},
	} {
		o := *opt
		c := redis.NewClient(&o)
		if err := c.Ping(ctx).Err(); err != nil {
			c.Close()
			clients.Close()
			return nil, fmt.Errorf("failed to ping Redis (%s): %w", slot.name, err)
		}
		*slot.dst = c
	}

	return clients, nil
}

func (r *RedisClients) Close() {
	for _, c := range []*redis.Client{r.Store, r.Queue, r.PubSub} {
		if c != nil {
			c.Close()
		}
	}
}
