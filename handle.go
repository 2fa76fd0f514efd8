package prioexec

import (
	"context"

	"github.com/google/uuid"
)

// TaskHandle refers to a spawned task. It is a Future that becomes Ready
// once the task finishes, and a control for reprioritising it.
//
// Dropping a handle does not stop the task.
type TaskHandle struct {
	task *Task
}

// Poll resolves if the task has finished. Otherwise it replaces the
// task's registered completion waker with the caller's; only the most
// recent poller is woken on completion.
func (h *TaskHandle) Poll(cx *Context) Poll {
	return h.task.pollCompletion(cx)
}

func (h *TaskHandle) SetPriority(p uint64) { h.task.SetPriority(p) }

func (h *TaskHandle) Priority() uint64 { return h.task.Priority() }

func (h *TaskHandle) State() State { return h.task.State() }

func (h *TaskHandle) ID() uuid.UUID { return h.task.ID() }

func (h *TaskHandle) Done() bool { return h.task.State() == Finished }

// Wait blocks until the task finishes or ctx is done. It takes over the
// single completion waker slot while it waits.
func (h *TaskHandle) Wait(ctx context.Context) error {
	woken := make(chan struct{}, 1)
	cx := NewContext(WakerFunc(func() {
		select {
		case woken <- struct{}{}:
		default:
		}
	}))
	for {
		if h.Poll(cx) == Ready {
			return nil
		}
		select {
		case <-woken:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
