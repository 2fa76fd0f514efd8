package prioexec

import (
	"sync"
	"sync/atomic"

	lg "github.com/Andrej220/go-utils/zlog"
	"github.com/google/uuid"
)

// Task is one spawned unit of asynchronous work.
//
// A Task is shared by the queue messages that reference it, the worker
// polling it and any TaskHandle. Priority is a lock-free atomic; state,
// the completion waker and the future are each guarded separately.
type Task struct {
	id       uuid.UUID
	priority atomic.Uint64

	stateMu sync.Mutex
	state   State

	// wakerMu also serialises the Finished check in TaskHandle.Poll against
	// the completion in run, so a registration is never missed.
	wakerMu sync.Mutex
	waker   Waker

	// futureMu is held for the duration of a poll.
	futureMu sync.Mutex
	future   Future

	tx  *Sender[message]
	env *runtimeEnv
}

func newTask(priority uint64, f Future, tx *Sender[message], env *runtimeEnv) *Task {
	t := &Task{
		id:     uuid.New(),
		state:  Idle,
		future: f,
		tx:     tx,
		env:    env,
	}
	t.priority.Store(priority)
	return t
}

func (t *Task) ID() uuid.UUID { return t.id }

func (t *Task) Priority() uint64 { return t.priority.Load() }

// SetPriority changes the task's rank. Copies of the task still queued are
// reordered on the next selection.
func (t *Task) SetPriority(p uint64) {
	t.priority.Store(p)
	t.env.rankEpoch.Add(1)
}

func (t *Task) State() State {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.state
}

func (t *Task) setState(s State) {
	t.stateMu.Lock()
	t.state = s
	t.stateMu.Unlock()
}

// run polls the future once. It is the only execution entry point and is
// called by a worker that received a run message for t.
//
// A panic from the future is not recovered here: it unwinds into the
// worker, leaving the task Active. The future lock is still released.
func (t *Task) run() {
	t.futureMu.Lock()
	defer t.futureMu.Unlock()

	// A duplicate run message may arrive after completion.
	if t.State() == Finished {
		return
	}
	t.setState(Active)

	t.env.metrics.IncPolled()
	if t.future.Poll(NewContext(t)) == Pending {
		t.setState(Idle)
		return
	}

	t.future = nil
	t.setState(Finished)
	t.env.metrics.IncFinished()

	t.wakerMu.Lock()
	w := t.waker
	t.waker = nil
	t.wakerMu.Unlock()
	if w != nil {
		w.Wake()
	}
}

// Wake re-enqueues the task on the queue it was spawned on. It is the
// waker handed to the task's own future and may be called from any
// goroutine, including from inside run.
//
// If no worker is left to receive, the wake is dropped and the task never
// runs again.
func (t *Task) Wake() {
	if err := t.tx.Send(runMessage(t)); err != nil {
		t.env.metrics.IncDropped()
		lg.FromContext(t.env.ctx).Warn("wake dropped",
			lg.String("task", t.id.String()),
			lg.Any("error", err),
		)
	}
}

// pollCompletion implements the TaskHandle side of the completion protocol.
func (t *Task) pollCompletion(cx *Context) Poll {
	t.wakerMu.Lock()
	defer t.wakerMu.Unlock()
	if t.State() == Finished {
		return Ready
	}
	t.waker = cx.Waker()
	return Pending
}
