package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window counter: at most limit requests per key per window.
// The INCR and EXPIRE run in one MULTI/EXEC so a key never lives without a TTL.
type Redis struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

var _ Limiter = (*Redis)(nil)

type RedisConfig struct {
	URL    string
	Limit  int64
	Window time.Duration
	Prefix string
}

// NewRedis connects using a redis:// URL and checks the server answers.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ratelimit: pinging redis: %w", err)
	}

	if cfg.Prefix == "" {
		cfg.Prefix = "dashboard:ratelimit:"
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Redis{rdb: rdb, limit: cfg.Limit, window: cfg.Window, prefix: cfg.Prefix, now: time.Now}, nil
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := fmt.Sprintf("%s%s:%d", r.prefix, key, r.now().UnixNano()/int64(r.window))

	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, windowKey)
		pipe.Expire(ctx, windowKey, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ratelimit: counting request: %w", err)
	}
	return incr.Val() <= r.limit, nil
}

// RetryAfter is the time left until the current window closes and the
// counter starts over.
func (r *Redis) RetryAfter() time.Duration {
	elapsed := time.Duration(r.now().UnixNano() % int64(r.window))
	return r.window - elapsed
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
