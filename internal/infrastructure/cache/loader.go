package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sgi/backend/internal/domain/shared"
)

// Loader reads through a cache, collapsing concurrent loads of the same key
// into a single call
type Loader struct {
	cache  shared.Cache
	group  singleflight.Group
	logger *zap.Logger
}

// NewLoader creates a read-through loader on top of c
func NewLoader(c shared.Cache, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cache: c, logger: logger}
}

// Cache returns the underlying cache
func (l *Loader) Cache() shared.Cache {
	return l.cache
}

// Invalidate drops the given keys
func (l *Loader) Invalidate(ctx context.Context, keys ...string) error {
	return l.cache.Delete(ctx, keys...)
}

// GetOrLoad returns the cached value for key or computes it with load and
// stores it for ttl. Cache failures are logged and never fail the call.
func GetOrLoad[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	hit, err := l.cache.Get(ctx, key, &cached)
	if err != nil {
		l.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := l.cache.Set(ctx, key, value, ttl); err != nil {
			l.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected cached type %T for key %q", v, key)
	}
	return value, nil
}
