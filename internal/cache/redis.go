package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// Redis shares the cache between service replicas.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    zerolog.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, prefix string, log zerolog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, prefix: prefix, log: log}
}

// Dial parses a redis:// URL and builds the cache on a new client.
func Dial(url string, ttl time.Duration, prefix string, log zerolog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedis(redis.NewClient(opts), ttl, prefix, log), nil
}

// Get treats transport errors as misses so a Redis outage only costs recomputation.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("redis get failed")
		return nil, false
	}
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, val []byte) {
	if err := r.client.Set(ctx, r.prefix+key, val, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

func (r *Redis) Close() error { return r.client.Close() }
