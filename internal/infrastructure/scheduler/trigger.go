package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sgi/backend/internal/infrastructure/config"
)

// PendingSource lists the facturas waiting for a CAE retry
type PendingSource interface {
	PendingIDs(ctx context.Context, maxAttempts, limit int) ([]int64, error)
}

// Trigger periodically feeds the scheduler: pending facturas every
// AuthorizationInterval and the presupuesto expiration every
// ExpirationInterval. Both run once right after Start.
type Trigger struct {
	config    config.SchedulerConfig
	scheduler *Scheduler
	pending   PendingSource
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewTrigger creates a new trigger
func NewTrigger(cfg config.SchedulerConfig, scheduler *Scheduler, pending PendingSource, logger *zap.Logger) *Trigger {
	if cfg.AuthorizationInterval <= 0 {
		cfg.AuthorizationInterval = 5 * time.Minute
	}
	if cfg.ExpirationInterval <= 0 {
		cfg.ExpirationInterval = 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{
		config:    cfg,
		scheduler: scheduler,
		pending:   pending,
		logger:    logger.Named("scheduler.trigger"),
	}
}

// Start starts the trigger loop
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Scheduler trigger started",
		zap.Duration("authorization_interval", t.config.AuthorizationInterval),
		zap.Duration("expiration_interval", t.config.ExpirationInterval),
		zap.Int("batch_size", t.config.BatchSize),
	)
	return nil
}

// Stop stops the trigger loop
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Scheduler trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Trigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	authTicker := time.NewTicker(t.config.AuthorizationInterval)
	defer authTicker.Stop()
	expireTicker := time.NewTicker(t.config.ExpirationInterval)
	defer expireTicker.Stop()

	t.enqueuePendingLogged(ctx)
	t.enqueueExpirationLogged()

	for {
		select {
		case <-ctx.Done():
			return
		case <-authTicker.C:
			t.enqueuePendingLogged(ctx)
		case <-expireTicker.C:
			t.enqueueExpirationLogged()
		}
	}
}

// EnqueuePending submits one authorization job per pending factura and
// returns how many were queued. Facturas already queued are skipped.
func (t *Trigger) EnqueuePending(ctx context.Context) (int, error) {
	if t.pending == nil {
		return 0, nil
	}
	ids, err := t.pending.PendingIDs(ctx, t.config.MaxAttempts, t.config.BatchSize)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, id := range ids {
		err := t.scheduler.Submit(NewAuthorizeJob(id))
		switch {
		case err == nil:
			queued++
		case errors.Is(err, ErrJobAlreadyQueued):
		default:
			return queued, err
		}
	}
	return queued, nil
}

// EnqueueExpiration submits the presupuesto expiration job
func (t *Trigger) EnqueueExpiration() error {
	err := t.scheduler.Submit(NewExpireJob())
	if errors.Is(err, ErrJobAlreadyQueued) {
		return nil
	}
	return err
}

func (t *Trigger) enqueuePendingLogged(ctx context.Context) {
	n, err := t.EnqueuePending(ctx)
	if err != nil {
		t.logger.Error("Failed to enqueue pending facturas", zap.Error(err))
		return
	}
	if n > 0 {
		t.logger.Info("Queued pending facturas for authorization", zap.Int("count", n))
	}
}

func (t *Trigger) enqueueExpirationLogged() {
	if err := t.EnqueueExpiration(); err != nil {
		t.logger.Error("Failed to enqueue presupuesto expiration", zap.Error(err))
	}
}
