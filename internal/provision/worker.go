package provision

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"fleet-admin-console/internal/store"
)

// ErrQueueFull is returned by Dispatch when no job slot is free.
var ErrQueueFull = errors.New("provisioning queue is full")

// JobKind is the operation a Job applies.
type JobKind string

const (
	JobCreate JobKind = "create"
	JobDelete JobKind = "delete"
)

// Job is one queued device operation.
type Job struct {
	ID       string
	Kind     JobKind
	Device   store.DeviceSpec
	QueuedAt time.Time
}

// NewJob stamps a job with a fresh id.
func NewJob(kind JobKind, spec store.DeviceSpec) Job {
	return Job{ID: uuid.NewString(), Kind: kind, Device: spec, QueuedAt: time.Now()}
}

// Applier writes finished jobs to storage.
type Applier interface {
	ApplyDevice(ctx context.Context, spec store.DeviceSpec) error
	RemoveDevice(ctx context.Context, imei string) error
}

// WorkerPool manages a pool of workers that apply device jobs after a
// processing delay.
type WorkerPool struct {
	size     int
	jobs     chan Job
	delay    time.Duration
	applier  Applier
	observer func(Job, error)
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size, queueSize int, delay time.Duration, applier Applier) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, queueSize),
		delay:   delay,
		applier: applier,
	}
}

// Observe registers fn to run after every job. Call before Start.
func (wp *WorkerPool) Observe(fn func(Job, error)) {
	wp.observer = fn
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Provisioning worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			log.Printf("Worker %d processing %s job %s for device %s", id, job.Kind, job.ID, job.Device.IMEI)
			if !wp.wait(ctx) {
				log.Printf("Worker %d shutting down with job %s unapplied", id, job.ID)
				return
			}
			err := wp.apply(ctx, job)
			if err != nil {
				log.Printf("Worker %d failed job %s: %v", id, job.ID, err)
			}
			if wp.observer != nil {
				wp.observer(job, err)
			}
		case <-ctx.Done():
			log.Printf("Provisioning worker %d shutting down", id)
			return
		}
	}
}

func (wp *WorkerPool) wait(ctx context.Context) bool {
	if wp.delay <= 0 {
		return true
	}
	t := time.NewTimer(wp.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (wp *WorkerPool) apply(ctx context.Context, job Job) error {
	switch job.Kind {
	case JobCreate:
		return wp.applier.ApplyDevice(ctx, job.Device)
	case JobDelete:
		return wp.applier.RemoveDevice(ctx, job.Device.IMEI)
	default:
		return errors.New("unknown job kind " + string(job.Kind))
	}
}

// Dispatch queues a job without blocking. It fails with ErrQueueFull when the
// queue is at capacity.
func (wp *WorkerPool) Dispatch(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case wp.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}
