package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// Redis is a Backend shared by every instance connected to the same Redis database.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

func NewRedis(cfg RedisConfig) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = redisKeyPrefix
	}

	return &Redis{
		rdb:    rdb,
		prefix: prefix,
	}
}

func (r *Redis) Save(ctx context.Context, sid string, tok Token, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, r.key(sid), int64(tok), ttl).Err(); err != nil {
		return fmt.Errorf("store session in redis: %w", err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, sid string) (Token, error) {
	v, err := r.rdb.Get(ctx, r.key(sid)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("retrieve session from redis: %w", err)
	}

	return Token(v), nil
}

func (r *Redis) Delete(ctx context.Context, sid string) error {
	if err := r.rdb.Del(ctx, r.key(sid)).Err(); err != nil {
		return fmt.Errorf("delete session from redis: %w", err)
	}
	return nil
}

// Ping checks the connection to Redis.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) key(sid string) string {
	return r.prefix + sid
}
