// Package scheduler runs the background jobs of SGI: retrying AFIP
// authorization of facturas left in PENDIENTE_CAE and expiring presupuestos
// whose validity ended.
package scheduler

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sgi/backend/internal/infrastructure/config"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobKind identifies what a job does
type JobKind string

const (
	JobKindAuthorizeFactura   JobKind = "AUTHORIZE_FACTURA"
	JobKindExpirePresupuestos JobKind = "EXPIRE_PRESUPUESTOS"
)

// Job is a unit of background work
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	FacturaID   int64
	Status      JobStatus
	Error       string
	EnqueuedAt  time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewAuthorizeJob creates a job that retries the CAE request of a factura
func NewAuthorizeJob(facturaID int64) *Job {
	return &Job{
		ID:         uuid.New(),
		Kind:       JobKindAuthorizeFactura,
		FacturaID:  facturaID,
		Status:     JobStatusPending,
		EnqueuedAt: time.Now(),
	}
}

// NewExpireJob creates a job that expires overdue presupuestos
func NewExpireJob() *Job {
	return &Job{
		ID:         uuid.New(),
		Kind:       JobKindExpirePresupuestos,
		Status:     JobStatusPending,
		EnqueuedAt: time.Now(),
	}
}

// Key identifies equivalent jobs; only one job per key is queued at a time
func (j *Job) Key() string {
	if j.Kind == JobKindAuthorizeFactura {
		return string(j.Kind) + ":" + strconv.FormatInt(j.FacturaID, 10)
	}
	return string(j.Kind)
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// JobExecutor executes jobs
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// Stats are the counters of a scheduler since it started
type Stats struct {
	Running   bool  `json:"running"`
	Workers   int   `json:"workers"`
	Queued    int   `json:"queued"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

const queueSize = 100

// Scheduler runs jobs on a fixed pool of workers
type Scheduler struct {
	config   config.SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	queued    map[string]struct{}

	succeeded atomic.Int64
	failed    atomic.Int64
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg config.SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:   cfg,
		executor: executor,
		logger:   logger.Named("scheduler"),
		jobs:     make(chan *Job, queueSize),
		queued:   make(map[string]struct{}),
	}
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers to exit
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the workers are running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Submit queues a job. A job whose key is already queued or running is
// rejected with ErrJobAlreadyQueued.
func (s *Scheduler) Submit(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}
	key := job.Key()
	if _, ok := s.queued[key]; ok {
		return ErrJobAlreadyQueued
	}

	select {
	case s.jobs <- job:
		s.queued[key] = struct{}{}
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("kind", string(job.Kind)),
			zap.Int64("factura_id", job.FacturaID),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// Stats returns a snapshot of the scheduler counters
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Running:   s.isRunning,
		Workers:   s.config.Workers,
		Queued:    len(s.queued),
		Succeeded: s.succeeded.Load(),
		Failed:    s.failed.Load(),
	}
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Worker started", zap.Int("worker_id", workerID))
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	defer s.release(job)

	job.Start()
	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
	)
	if job.FacturaID > 0 {
		log = log.With(zap.Int64("factura_id", job.FacturaID))
	}
	log.Debug("Processing job")

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if err := s.executeSafely(jobCtx, job); err != nil {
		job.Fail(err.Error())
		s.failed.Add(1)
		log.Warn("Job failed", zap.Error(err))
		return
	}

	job.Complete()
	s.succeeded.Add(1)
	log.Debug("Job completed", zap.Duration("duration", job.CompletedAt.Sub(*job.StartedAt)))
}

func (s *Scheduler) executeSafely(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = errPanic
		}
	}()
	return s.executor.Execute(ctx, job)
}

func (s *Scheduler) release(job *Job) {
	s.mu.Lock()
	delete(s.queued, job.Key())
	s.mu.Unlock()
}
