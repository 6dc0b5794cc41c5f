package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type redisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// Redis shares counters between gateway instances. It fails open when redis is
// unavailable.
type Redis struct {
	client redisCounter
	logger *zap.Logger
}

func NewRedis(client redisCounter, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, logger: logger}
}

// Dial parses a redis url, falling back to a plain address.
func Dial(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		opt = &redis.Options{Addr: rawURL}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (r *Redis) Allow(ctx context.Context, rule Rule, subject string) (Decision, error) {
	key := rule.key(subject)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		r.logger.Warn("rate limit check failed, allowing request", zap.String("key", key), zap.Error(err))
		return Decision{Allowed: true}, nil
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, rule.Window).Err(); err != nil {
			r.logger.Warn("setting rate limit window failed", zap.String("key", key), zap.Error(err))
		}
		return decide(rule, count, rule.Window), nil
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		r.logger.Debug("reading rate limit ttl failed", zap.String("key", key), zap.Error(err))
		ttl = 0
	}
	if ttl < 0 {
		// the key lost its expiry; restore the window
		_ = r.client.Expire(ctx, key, rule.Window).Err()
		ttl = rule.Window
	}

	return decide(rule, count, ttl), nil
}
