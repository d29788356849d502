package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingCache struct {
	*MemoryCache
}

func (*failingCache) Get(context.Context, string, any) (bool, error) {
	return false, errors.New("connection reset")
}

func (*failingCache) Set(context.Context, string, any, time.Duration) error {
	return errors.New("connection reset")
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("loads once and then serves from cache", func(t *testing.T) {
		c := NewMemoryCache(0)
		defer c.Close()
		l := NewLoader(c, zap.NewNop())

		calls := 0
		load := func(context.Context) (cachedStats, error) {
			calls++
			return cachedStats{Count: int64(calls), Amount: decimal.RequireFromString("1500.25")}, nil
		}

		first, err := GetOrLoad(ctx, l, "stats", time.Minute, load)
		require.NoError(t, err)
		second, err := GetOrLoad(ctx, l, "stats", time.Minute, load)
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
		assert.Equal(t, first.Count, second.Count)
		assert.True(t, first.Amount.Equal(second.Amount), "got %s", second.Amount)
	})

	t.Run("invalidate forces a reload", func(t *testing.T) {
		c := NewMemoryCache(0)
		defer c.Close()
		l := NewLoader(c, nil)

		calls := 0
		load := func(context.Context) (int, error) {
			calls++
			return calls, nil
		}

		_, err := GetOrLoad(ctx, l, "n", time.Minute, load)
		require.NoError(t, err)
		require.NoError(t, l.Invalidate(ctx, "n"))
		v, err := GetOrLoad(ctx, l, "n", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, 2, v)
	})

	t.Run("load errors are returned and not cached", func(t *testing.T) {
		c := NewMemoryCache(0)
		defer c.Close()
		l := NewLoader(c, nil)

		_, err := GetOrLoad(ctx, l, "broken", time.Minute, func(context.Context) (int, error) {
			return 0, errors.New("db down")
		})
		assert.EqualError(t, err, "db down")
		assert.Equal(t, 0, c.Size())
	})

	t.Run("a failing cache still serves loaded values", func(t *testing.T) {
		c := &failingCache{MemoryCache: NewMemoryCache(0)}
		defer c.Close()
		l := NewLoader(c, nil)

		v, err := GetOrLoad(ctx, l, "k", time.Minute, func(context.Context) (string, error) {
			return "fresh", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "fresh", v)
	})

	t.Run("concurrent misses share one load", func(t *testing.T) {
		c := NewMemoryCache(0)
		defer c.Close()
		l := NewLoader(c, nil)

		var calls int32
		release := make(chan struct{})
		load := func(context.Context) (int, error) {
			atomic.AddInt32(&calls, 1)
			<-release
			return 7, nil
		}

		var wg sync.WaitGroup
		results := make([]int, 10)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = GetOrLoad(ctx, l, "slow", time.Minute, load)
			}(i)
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		for _, r := range results {
			assert.Equal(t, 7, r)
		}
	})
}
