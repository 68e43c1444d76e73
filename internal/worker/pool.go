// Package worker provides a bounded pool for running moderation jobs without
// spawning an unbounded goroutine per request.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
)

var ErrQueueFull = errors.New("worker queue full")
var ErrPoolClosed = errors.New("worker pool closed")

// Pool runs submitted tasks on a fixed number of goroutines.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewPool starts workers goroutines consuming a queue of queueSize tasks.
func NewPool(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:  make(chan func(), queueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			run(task)
		}
	}
}

// run executes a task, recovering panics so one bad job never kills a worker.
func run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in worker task", "error", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}

// Submit enqueues a task without blocking. Returns ErrQueueFull when the
// queue is saturated so callers can reject the request instead of piling up.
func (p *Pool) Submit(task func()) error {
	if task == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	// The send must stay under the lock so Shutdown cannot close the
	// channel between the closed check and the send.
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks, drains the queue, and waits for in-flight
// tasks until ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}
