package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second

	// DeleteRetryDelay is how long to wait before retrying a failed delete.
	DeleteRetryDelay = 100 * time.Millisecond
)

// NewRedisClient returns a configured go-redis client and validates the
// connection with PING.
func NewRedisClient(addr, password string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis: addr is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// RedisCache implements Cache using Redis. Values are stored as JSON.
type RedisCache struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisCache(client *redis.Client, log *zap.Logger) *RedisCache {
	return &RedisCache{client: client, log: log.Named("cache")}
}

func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Error("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if expiration == 0 {
		expiration = ExpiryDefaultRedis
	}

	var strValue string
	switch v := value.(type) {
	case string:
		strValue = v
	default:
		b, err := json.Marshal(value)
		if err != nil {
			c.log.Error("marshal cache value", zap.String("key", key), zap.Error(err))
			return
		}
		strValue = string(b)
	}

	if err := c.client.Set(ctx, key, strValue, expiration).Err(); err != nil {
		c.log.Error("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes key, retrying once on failure.
func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warn("redis delete failed, retrying", zap.String("key", key), zap.Error(err))

		retryCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		time.Sleep(DeleteRetryDelay)

		if err := c.client.Del(retryCtx, key).Err(); err != nil {
			c.log.Error("redis delete retry failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
