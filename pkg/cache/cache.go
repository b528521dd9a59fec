package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	// Incr atomically increments a counter and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Counter reads a counter; a missing one is 0.
	Counter(ctx context.Context, key string) (int64, error)
}

// encode turns a value into the bytes both layers store.
func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(value)
	}
}

func decode(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = string(data)
		return nil
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	default:
		return json.Unmarshal(data, dest)
	}
}

// NopCache never stores anything. Used when caching is disabled.
type NopCache struct{}

func (NopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (NopCache) Get(context.Context, string, interface{}) error               { return ErrCacheMiss }
func (NopCache) Delete(context.Context, ...string) error                      { return nil }
func (NopCache) DeleteByPattern(context.Context, string) error                { return nil }
func (NopCache) TryLock(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (NopCache) Unlock(context.Context, string) error                         { return nil }
func (NopCache) Incr(context.Context, string) (int64, error)                  { return 0, nil }
func (NopCache) Counter(context.Context, string) (int64, error)               { return 0, nil }
