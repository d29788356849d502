package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrJobAlreadyQueued is returned when an equivalent job is queued or running
	ErrJobAlreadyQueued = errors.New("job already queued")

	// ErrUnknownJobKind is returned by executors for job kinds they do not handle
	ErrUnknownJobKind = errors.New("unknown job kind")

	errPanic = errors.New("job panicked")
)
