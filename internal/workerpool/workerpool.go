package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrNotRun marks a job that was never handed to a worker
var ErrNotRun = errors.New("job was not run")

// Handler processes one job payload
type Handler[T any] func(ctx context.Context, payload T) error

// Job represents a single unit of work
type Job[T any] struct {
	ID      int
	Payload T
}

// Result represents the outcome of a job
type Result[T any] struct {
	Job   Job[T]
	Error error
}

// WorkerPool runs jobs on a fixed number of goroutines
type WorkerPool[T any] struct {
	workerCount int
	handler     Handler[T]
	jobQueue    chan Job[T]
	resultQueue chan Result[T]
	wg          sync.WaitGroup
	ctx         context.Context
	mu          sync.RWMutex
	running     bool
	closeOnce   sync.Once
	processed   atomic.Int64
}

// Stats represents statistics about the worker pool
type Stats struct {
	WorkerCount  int   `json:"worker_count"`
	Running      bool  `json:"running"`
	JobQueueSize int   `json:"job_queue_size"`
	Processed    int64 `json:"processed"`
}

// New creates a new worker pool
func New[T any](workerCount int, handler Handler[T]) *WorkerPool[T] {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool[T]{
		workerCount: workerCount,
		handler:     handler,
		jobQueue:    make(chan Job[T], workerCount*2),
		resultQueue: make(chan Result[T], workerCount*2),
	}
}

// Start launches the workers. The result channel closes once every worker has exited.
func (wp *WorkerPool[T]) Start(ctx context.Context) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.running {
		return errors.New("worker pool is already running")
	}
	wp.ctx = ctx
	wp.running = true

	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.work(ctx)
	}

	go func() {
		wp.wg.Wait()
		wp.mu.Lock()
		wp.running = false
		wp.mu.Unlock()
		close(wp.resultQueue)
	}()
	return nil
}

// AddJob queues a job, blocking while the queue is full
func (wp *WorkerPool[T]) AddJob(job Job[T]) error {
	wp.mu.RLock()
	ctx, running := wp.ctx, wp.running
	wp.mu.RUnlock()

	if !running {
		return errors.New("worker pool is not running")
	}

	select {
	case wp.jobQueue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs; workers drain the queue and exit
func (wp *WorkerPool[T]) Close() {
	wp.closeOnce.Do(func() { close(wp.jobQueue) })
}

// Results returns the channel of finished jobs
func (wp *WorkerPool[T]) Results() <-chan Result[T] {
	return wp.resultQueue
}

// stats returns current statistics about the worker pool
func (wp *WorkerPool[T]) stats() Stats {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	return Stats{
		WorkerCount:  wp.workerCount,
		Running:      wp.running,
		JobQueueSize: len(wp.jobQueue),
		Processed:    wp.processed.Load(),
	}
}

func (wp *WorkerPool[T]) work(ctx context.Context) {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}
			err := wp.handler(ctx, job.Payload)
			wp.processed.Add(1)

			select {
			case wp.resultQueue <- Result[T]{Job: job, Error: err}:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Run processes items with up to workerCount goroutines and returns one error per item, in order.
// Items skipped because ctx ended report ctx.Err().
func Run[T any](ctx context.Context, workerCount int, items []T, handler Handler[T]) []error {
	errs := make([]error, len(items))
	if len(items) == 0 {
		return errs
	}
	for i := range errs {
		errs[i] = ErrNotRun
	}
	if workerCount > len(items) {
		workerCount = len(items)
	}

	wp := New(workerCount, handler)
	if err := wp.Start(ctx); err != nil {
		for i := range errs {
			errs[i] = err
		}
		return errs
	}

	go func() {
		defer wp.Close()
		for i, item := range items {
			if err := wp.AddJob(Job[T]{ID: i, Payload: item}); err != nil {
				return
			}
		}
	}()

	for result := range wp.Results() {
		errs[result.Job.ID] = result.Error
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		for i, err := range errs {
			if errors.Is(err, ErrNotRun) {
				errs[i] = ctxErr
			}
		}
	}
	return errs
}
