package cache

import (
	"context"
	"errors"
	"time"

	"github.com/nrebei2/lunarhaze/cache/local"
	cacheredis "github.com/nrebei2/lunarhaze/cache/redis"
)

// Cache is the key space shared by the level store and the session journal:
// level documents (KV), the level index (Set), leaderboards (ZSet) and the
// per-session recent event lists (List).
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	// ZAdd sets member's score, replacing any previous one.
	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZRangeWithScores returns members ranked by ascending score along with
	// their scores. stop may be -1 for "to the end".
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]string, []float64, error)

	// LPushCapped pushes values onto the head of the list, the last value
	// ending up first, and drops everything past the first limit entries.
	LPushCapped(ctx context.Context, key string, limit int64, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	Close() error
}

// IsNotFound reports whether err is a missing-key error from either backend.
func IsNotFound(err error) bool {
	return errors.Is(err, local.ErrNotFound) || errors.Is(err, cacheredis.ErrNotFound)
}

// CacheConfig selects and tunes the backend. An empty RedisAddr keeps
// everything in process.
type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

func (cfg CacheConfig) redis() cacheredis.Config {
	return cacheredis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

// NewCache connects to Redis when RedisAddr is set and falls back to a
// LocalCache otherwise.
func NewCache(cfg CacheConfig) (Cache, error) {
	if cfg.RedisAddr == "" {
		return local.NewCache(local.Config{GCInterval: cfg.LocalGCInterval})
	}
	client, err := cacheredis.Dial(context.Background(), cfg.redis())
	if err != nil {
		return nil, err
	}
	return cacheredis.NewCache(client), nil
}
