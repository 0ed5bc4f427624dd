package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var ErrPoolRunning = errors.New("cannot start an already running worker pool")

// WorkerPool owns a fixed number of workers which consume
// tasks from a shared queue. The size of the pool is independent
// of the number of tasks submitted to it, which bounds the
// concurrency of whatever the tasks do (e.g. open connections).
type WorkerPool struct {
	label   string
	workers []*taskWorker
	running atomic.Bool
}

// NewWorkerPool creates a new WorkerPool containing 'size' workers,
// each labelled using the pool label and the workers index. A size
// below one is treated as one.
func NewWorkerPool(label string, size int) *WorkerPool {
	if size < 1 {
		size = 1
	}

	pool := &WorkerPool{label: label, workers: make([]*taskWorker, 0, size)}
	for i := 0; i < size; i++ {
		pool.workers = append(pool.workers, newWorker(fmt.Sprintf("%s-worker-%d", label, i)))
	}

	return pool
}

// Size returns the number of workers in the pool.
func (pool *WorkerPool) Size() int { return len(pool.workers) }

// Workers returns the workers attached to this pool.
func (pool *WorkerPool) Workers() []Worker {
	out := make([]Worker, len(pool.workers))
	for k, v := range pool.workers {
		out[k] = v
	}

	return out
}

// Run submits all the tasks provided to the workers of this pool, and
// blocks until every worker has exited. This makes Run a barrier: when
// it returns, no task submitted to it is still executing.
//
// The first task to fail cancels the context handed to all other tasks,
// and stops any further tasks being submitted. That first error is
// returned (wrapped in a *TaskError). If the context provided is
// cancelled before all tasks were submitted, the context error is returned.
func (pool *WorkerPool) Run(ctx context.Context, tasks []Task) error {
	if !pool.running.CompareAndSwap(false, true) {
		return ErrPoolRunning
	}
	defer pool.running.Store(false)

	group, groupCtx := errgroup.WithContext(ctx)
	queue := make(chan Task)

	for _, w := range pool.workers {
		w := w
		group.Go(func() error {
			return w.start(groupCtx, queue)
		})
	}

	group.Go(func() error {
		defer close(queue)
		for _, task := range tasks {
			select {
			case queue <- task:
			case <-groupCtx.Done():
				return nil
			}
		}

		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}
