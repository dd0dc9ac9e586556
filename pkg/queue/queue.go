// Package queue runs deferred best-effort tasks on a single background
// worker. The queue is bounded: when it is full the oldest waiting task is
// dropped so producers never block.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a unit of deferred work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type Options struct {
	// Capacity is the maximum number of waiting tasks.
	Capacity int
	// Delay is applied before each task starts.
	Delay time.Duration
	// Timeout bounds a single task run. Zero means no timeout.
	Timeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Capacity: 1000,
		Delay:    500 * time.Millisecond,
		Timeout:  5 * time.Second,
	}
}

// Stats are cumulative counters.
type Stats struct {
	Enqueued  int64
	Completed int64
	Failed    int64
	Dropped   int64
	Pending   int
}

type Queue struct {
	opts Options

	mu      sync.Mutex
	pending []Task
	closed  bool
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}

	enqueued  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// New starts a queue and its worker.
func New(opts Options) *Queue {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultOptions().Capacity
	}
	q := &Queue{
		opts: opts,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go q.worker()
	return q
}

// Enqueue adds a task without blocking. It reports false when the queue is
// shut down. A full queue drops its oldest task to make room.
func (q *Queue) Enqueue(task Task) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if len(q.pending) >= q.opts.Capacity {
		oldest := q.pending[0]
		q.pending = q.pending[1:]
		q.dropped.Add(1)
		slog.Warn("Dropped deferred task, queue full", "task", oldest.Name, "capacity", q.opts.Capacity)
	}
	q.pending = append(q.pending, task)
	q.mu.Unlock()

	q.enqueued.Add(1)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	pending := len(q.pending)
	q.mu.Unlock()

	return Stats{
		Enqueued:  q.enqueued.Load(),
		Completed: q.completed.Load(),
		Failed:    q.failed.Load(),
		Dropped:   q.dropped.Load(),
		Pending:   pending,
	}
}

// Shutdown stops accepting tasks and waits for the waiting ones to run.
// Tasks still queued when ctx is done are abandoned.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.stop)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue shutdown: %d tasks abandoned: %w", q.Stats().Pending, ctx.Err())
	}
}

func (q *Queue) next() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Task{}, false
	}
	task := q.pending[0]
	q.pending[0] = Task{}
	q.pending = q.pending[1:]
	return task, true
}

func (q *Queue) worker() {
	defer close(q.done)

	for {
		task, ok := q.next()
		if !ok {
			select {
			case <-q.wake:
				continue
			case <-q.stop:
				// drain whatever arrived before close
				for {
					task, ok := q.next()
					if !ok {
						return
					}
					q.run(task)
				}
			}
		}

		if q.opts.Delay > 0 {
			select {
			case <-time.After(q.opts.Delay):
			case <-q.stop:
			}
		}
		q.run(task)
	}
}

func (q *Queue) run(task Task) {
	ctx := context.Background()
	if q.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.opts.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			q.failed.Add(1)
			slog.Error("Deferred task panicked", "task", task.Name, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if err := task.Run(ctx); err != nil {
		q.failed.Add(1)
		slog.Error("Deferred task failed", "task", task.Name, "err", err)
		return
	}
	q.completed.Add(1)
}
