package prioexec

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// TaskPanicError describes a poll that panicked. The worker that ran it
// has exited; the task is left Active and is never dispatched again.
type TaskPanicError struct {
	WorkerID int
	TaskID   uuid.UUID
	Value    any
	Stack    []byte
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("prioexec: task %s panicked on worker %d: %v", e.TaskID, e.WorkerID, e.Value)
}

// runtimeEnv is what tasks and workers share with the pool that owns
// them: the logging context, the metrics sink, the error hooks and the
// rank epoch of the pool's queue.
type runtimeEnv struct {
	ctx             context.Context
	rankEpoch       atomic.Uint64
	metrics         MetricsPolicy
	onTaskPanic     func(error)
	onInternalError func(error)
}

func newRuntimeEnv(opts Options, metrics MetricsPolicy) *runtimeEnv {
	if metrics == nil {
		metrics = &NoopMetrics{}
	}
	ctx := opts.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return &runtimeEnv{
		ctx:             ctx,
		metrics:         metrics,
		onTaskPanic:     opts.OnTaskPanic,
		onInternalError: opts.OnInternalError,
	}
}

// reportInternalError reports a non-task failure such as a worker setup
// issue. If no handler is registered, the error is silently ignored.
func (e *runtimeEnv) reportInternalError(err error) {
	if e.onInternalError != nil {
		e.onInternalError(err)
	}
}

// reportTaskPanic reports a recovered poll panic.
func (e *runtimeEnv) reportTaskPanic(err error) {
	if e.onTaskPanic != nil {
		e.onTaskPanic(err)
	}
}
