package event

import (
	"fmt"
	"sync"

	"resizewatch/internal/logging"
	"resizewatch/internal/metrics"
)

// QueueOptions configures a Queue.
type QueueOptions struct {
	Logger   *logging.Logger
	Registry *metrics.Registry
}

// Queue is a Scheduler backed by a single goroutine. Jobs run one at a time
// in the order they were scheduled. A job that panics is logged and counted;
// the jobs after it still run.
type Queue struct {
	mu        sync.Mutex
	jobs      []func()
	wake      chan struct{}
	done      chan struct{}
	closed    bool
	closeOnce sync.Once
	logger    *logging.Logger
	registry  *metrics.Registry
}

func NewQueue(opts QueueOptions) *Queue {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	queue := &Queue{
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		logger:   logger,
		registry: opts.Registry,
	}
	go queue.run()
	return queue
}

// Schedule appends job to the queue. Jobs scheduled after Close are dropped.
func (q *Queue) Schedule(job func()) {
	if q == nil || job == nil {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pending reports how many jobs are waiting to run.
func (q *Queue) Pending() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close stops the dispatch goroutine and drops pending jobs. It does not wait
// for a running job, so a job may call Close itself.
func (q *Queue) Close() {
	if q == nil {
		return
	}
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.jobs = nil
		q.mu.Unlock()
		close(q.done)
	})
}

func (q *Queue) run() {
	for {
		select {
		case <-q.wake:
			q.drain()
		case <-q.done:
			return
		}
	}
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if q.closed || len(q.jobs) == 0 {
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		q.runJob(job)
	}
}

func (q *Queue) runJob(job func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			q.registry.IncListenerPanic()
			q.logger.Error("listener panicked", map[string]string{
				"panic": fmt.Sprint(recovered),
			})
		}
	}()
	job()
}
