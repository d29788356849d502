// Package dashboard computes the home page statistics and memoizes them in
// the TTL cache.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sgi/backend/internal/domain/dashboard"
	"github.com/sgi/backend/internal/infrastructure/cache"
)

const (
	// Months is the length of the monthly billing series
	Months = 12
	// TopClientes is how many clientes the ranking shows
	TopClientes = 5
)

// Service computes dashboard statistics
type Service struct {
	repo   dashboard.Repository
	loader *cache.Loader
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a dashboard service. loader may be nil to disable
// memoization.
func NewService(repo dashboard.Repository, loader *cache.Loader, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, loader: loader, ttl: ttl, logger: logger.Named("dashboard"), now: time.Now}
}

// Stats returns the memoized statistics, computing them on a miss
func (s *Service) Stats(ctx context.Context) (*dashboard.Stats, error) {
	if s.loader == nil {
		return s.compute(ctx)
	}
	return cache.GetOrLoad(ctx, s.loader, dashboard.CacheKey, s.ttl, s.compute)
}

// Refresh drops the memoized statistics and computes them again
func (s *Service) Refresh(ctx context.Context) (*dashboard.Stats, error) {
	if s.loader != nil {
		if err := s.loader.Invalidate(ctx, dashboard.CacheKey); err != nil {
			s.logger.Warn("Failed to drop dashboard cache", zap.Error(err))
		}
	}
	return s.Stats(ctx)
}

func (s *Service) compute(ctx context.Context) (*dashboard.Stats, error) {
	started := time.Now()
	now := s.now()
	monthStart, _ := dashboard.MonthRange(now)
	seriesFrom := monthStart.AddDate(0, -(Months - 1), 0)
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())

	var (
		stats   *dashboard.Stats
		monthly []dashboard.MonthlyAmount
		top     []dashboard.ClienteAmount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.repo.Counts(gctx, now)
		if err != nil {
			return fmt.Errorf("dashboard counts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		monthly, err = s.repo.MonthlyBilling(gctx, seriesFrom)
		if err != nil {
			return fmt.Errorf("dashboard monthly billing: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		top, err = s.repo.TopClientes(gctx, yearStart, TopClientes)
		if err != nil {
			return fmt.Errorf("dashboard top clientes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.FacturacionMensual = dashboard.FillMonths(now, Months, monthly)
	if top == nil {
		top = []dashboard.ClienteAmount{}
	}
	stats.TopClientes = top
	stats.GeneratedAt = now
	s.logger.Debug("Dashboard computed", zap.Duration("elapsed", time.Since(started)))
	return stats, nil
}
