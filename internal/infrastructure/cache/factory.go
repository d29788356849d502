package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/infrastructure/config"
)

// Factory creates caches based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	cacheConfig           config.CacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, cacheCfg config.CacheConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           redisCfg,
		cacheConfig:           cacheCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis backed cache
func (f *Factory) CreateRedisCache() (*RedisCache, error) {
	c, err := NewRedisCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.cacheConfig.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis cache: %w", err)
	}
	return c, nil
}

// CreateMemoryCache creates an in-memory cache local to this process
func (f *Factory) CreateMemoryCache() *MemoryCache {
	return NewMemoryCache(f.cacheConfig.CleanupInterval)
}

// Create returns a Redis cache when Redis is enabled and reachable, and the
// in-memory cache otherwise
func (f *Factory) Create() (shared.Cache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("using in-memory cache")
		return f.CreateMemoryCache(), nil
	}

	c, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis cache",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port),
		)
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory cache. "+
		"Cached dashboard figures are not shared between instances.",
		zap.Error(err),
	)
	return f.CreateMemoryCache(), nil
}
