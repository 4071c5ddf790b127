package service

import (
	"context"
	"sync"
	"time"

	"multizone_thermostat/internal/logger"
)

const queueSize = 256

type job struct {
	name string
	fn   func(ctx context.Context) error
	done chan struct{}
}

// Queue runs fire-and-forget I/O on a single worker goroutine in submission
// order. Failures are logged and reported to onError; they never reach the
// submitter.
type Queue struct {
	name    string
	timeout time.Duration
	log     *logger.Logger
	onError func(name string, err error)

	// mu guards closed against the close of jobs; senders share it.
	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

func NewQueue(name string, timeout time.Duration, log *logger.Logger, onError func(string, error)) *Queue {
	q := &Queue{
		name:    name,
		timeout: timeout,
		log:     log,
		onError: onError,
		jobs:    make(chan job, queueSize),
	}
	q.wg.Add(1)
	go q.loop()
	return q
}

func (q *Queue) loop() {
	defer q.wg.Done()
	for j := range q.jobs {
		if j.fn != nil {
			q.run(j)
		}
		if j.done != nil {
			close(j.done)
		}
	}
}

func (q *Queue) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := j.fn(ctx); err != nil {
		q.log.Warnw("queue_job_failed", "queue", q.name, "job", j.name, "err", err)
		if q.onError != nil {
			q.onError(j.name, err)
		}
	}
}

// Enqueue never blocks. A full or closed queue drops the job with a warning.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.log.Warnw("queue_closed", "queue", q.name, "job", name)
		return
	}
	select {
	case q.jobs <- job{name: name, fn: fn}:
	default:
		q.log.Errorw("queue_full", "queue", q.name, "job", name, "size", queueSize)
		if q.onError != nil {
			q.onError(name, errQueueFull)
		}
	}
}

// Flush waits until every job submitted before the call has run.
func (q *Queue) Flush(ctx context.Context) error {
	done := make(chan struct{})
	queued, err := q.mark(ctx, done)
	if !queued {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mark queues a flush marker, waiting for room until ctx ends. Enqueue stays
// free to drop jobs on a full queue meanwhile. A closed queue has nothing left
// to flush.
func (q *Queue) mark(ctx context.Context, done chan struct{}) (bool, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false, nil
	}
	select {
	case q.jobs <- job{done: done}:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Close stops accepting jobs and waits for the backlog to drain.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}
