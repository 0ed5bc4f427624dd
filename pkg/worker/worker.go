package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hbomb79/ytmeta/pkg/logger"
)

var workerLogger = logger.Get("Worker")

type WorkerStatus int32

const (
	Sleeping WorkerStatus = iota
	Working
	Finished
)

// Task is a single unit of work submitted to a WorkerPool. The
// label is used purely for logging and error reporting.
type Task struct {
	Label   string
	Execute func(context.Context) error
}

// TaskError is returned by a WorkerPool when one of its tasks fails.
type TaskError struct {
	Worker string
	Task   string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s (worker %s) failed: %v", e.Task, e.Worker, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

type Worker interface {
	Status() WorkerStatus
	Label() string
}

type taskWorker struct {
	label         string
	currentStatus atomic.Int32
}

func newWorker(label string) *taskWorker {
	return &taskWorker{label: label}
}

// start consumes tasks from the queue until it is closed, or until
// the context is cancelled. A task returning an error causes the
// worker to stop and return that error.
func (worker *taskWorker) start(ctx context.Context, queue <-chan Task) error {
	workerLogger.Emit(logger.VERBOSE, "Starting worker %s\n", worker.label)
	defer func() {
		worker.currentStatus.Store(int32(Finished))
		workerLogger.Emit(logger.VERBOSE, "Worker %s has stopped\n", worker.label)
	}()

	for {
		worker.currentStatus.Store(int32(Sleeping))

		task, ok := <-queue
		if !ok {
			return nil
		} else if ctx.Err() != nil {
			// Another worker has failed; drain nothing further.
			return nil
		}

		worker.currentStatus.Store(int32(Working))
		if err := task.Execute(ctx); err != nil {
			workerLogger.Emit(logger.DEBUG, "Worker %s task %s reported an error(%T): %v\n", worker.label, task.Label, err, err)
			return &TaskError{Worker: worker.label, Task: task.Label, Err: err}
		}
	}
}

// Status returns the current status of this worker
func (worker *taskWorker) Status() WorkerStatus {
	return WorkerStatus(worker.currentStatus.Load())
}

// Label returns the label for this worker
func (worker *taskWorker) Label() string {
	return worker.label
}
