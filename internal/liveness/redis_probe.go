package liveness

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProbe reads a heartbeat key that the conversational frontend
// refreshes while the user is engaged. The key holds a unix-seconds
// timestamp; activity is the timestamp falling within the window. A
// missing key means idle; an unreachable Redis is an error and the caller
// assumes active.
type RedisProbe struct {
	client *redis.Client
	key    string
	window time.Duration
}

// NewRedisProbe connects to addr and watches the given heartbeat key.
func NewRedisProbe(addr, key string, window time.Duration) *RedisProbe {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisProbe{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
		window: window,
	}
}

// Active reports whether the heartbeat is fresh.
func (p *RedisProbe) Active(ctx context.Context) (bool, error) {
	val, err := p.client.Get(ctx, p.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read heartbeat %s: %w", p.key, err)
	}

	seconds, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, fmt.Errorf("heartbeat %s is not a unix timestamp: %w", p.key, err)
	}
	return time.Since(time.Unix(seconds, 0)) < p.window, nil
}

// Close closes the Redis connection.
func (p *RedisProbe) Close() error {
	return p.client.Close()
}

var _ Probe = (*RedisProbe)(nil)
