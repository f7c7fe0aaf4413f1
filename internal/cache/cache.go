package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	ExpiryDefaultInMemory = 30 * time.Minute
	ExpiryDefaultRedis    = 5 * time.Minute
)

// Type represents the cache backend to use.
type Type string

const (
	TypeInMemory Type = "memory"
	TypeRedis    Type = "redis"
	TypeNone     Type = "none"
)

// Cache is a key/value cache with per-entry expiry. Implementations are safe
// for concurrent use and never fail loudly: backend errors are logged and
// reported as misses.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
}

// Options selects and configures a backend.
type Options struct {
	Type          Type
	RedisAddr     string
	RedisPassword string
}

// New returns the cache backend named by opts.Type.
func New(opts Options, log *zap.Logger) (Cache, error) {
	log.Info("cache: initializing", zap.String("type", string(opts.Type)))
	switch opts.Type {
	case TypeRedis:
		client, err := NewRedisClient(opts.RedisAddr, opts.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("cache: redis: %w", err)
		}
		return NewRedisCache(client, log), nil
	case TypeNone:
		return Nop{}, nil
	case TypeInMemory, "":
		return NewInMemoryCache(), nil
	default:
		return nil, fmt.Errorf("cache: unsupported type %q", opts.Type)
	}
}

// UnmarshalCacheValue converts a cached value to *T. The in-memory cache
// stores the object itself while Redis hands back its JSON encoding.
func UnmarshalCacheValue[T any](value interface{}) (*T, bool) {
	if value == nil {
		return nil, false
	}
	if typed, ok := value.(*T); ok {
		return typed, true
	}
	if typed, ok := value.(T); ok {
		return &typed, true
	}
	if str, ok := value.(string); ok {
		var result T
		if err := json.Unmarshal([]byte(str), &result); err == nil {
			return &result, true
		}
	}
	return nil, false
}

// Nop is a cache that stores nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) (interface{}, bool) { return nil, false }
func (Nop) Set(context.Context, string, interface{}, time.Duration) {}
func (Nop) Delete(context.Context, string) {}
