package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sitescan/sitescan/internal/config"
)

const (
	keyPrefix = "sitescan:query:"
	genPrefix = "sitescan:gen:"
)

// setIfCurrent writes KEYS[1] only when the generation counter in KEYS[2]
// still equals ARGV[2]. ARGV[3] is the ttl in milliseconds, 0 for none.
var setIfCurrent = redis.NewScript(`
local g = redis.call('GET', KEYS[2]) or '0'
if g ~= ARGV[2] then
	return 0
end
if ARGV[3] == '0' then
	redis.call('SET', KEYS[1], ARGV[1])
else
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
end
return 1
`)

type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if cfg.Telemetry.Enabled {
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			return nil, fmt.Errorf("instrument redis: %w", err)
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, val []byte) error {
	return c.rdb.Set(ctx, keyPrefix+key, val, c.ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, full...)
		for _, k := range keys {
			pipe.Incr(ctx, genPrefix+k)
		}
		return nil
	})
	return err
}

func (c *Redis) Generation(ctx context.Context, key string) (uint64, error) {
	gen, err := c.rdb.Get(ctx, genPrefix+key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Redis) SetIfCurrent(ctx context.Context, key string, val []byte, gen uint64) (bool, error) {
	keys := []string{keyPrefix + key, genPrefix + key}
	n, err := setIfCurrent.Run(ctx, c.rdb, keys, val, strconv.FormatUint(gen, 10), c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
