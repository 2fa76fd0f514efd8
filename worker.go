package prioexec

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	lg "github.com/Andrej220/go-utils/zlog"
)

// Worker drains run messages from the pool's queue on a dedicated OS
// thread. Its goroutine is locked to the thread and never unlocks, so the
// thread is torn down together with the receive loop.
//
// A worker whose loop has exited (shutdown, no senders, or a panicking
// task) can be restarted in place with Heal.
type Worker struct {
	id  int
	rx  *Receiver[message]
	env *runtimeEnv
	pin bool

	stateMu sync.Mutex
	state   State

	// mu guards done, which is closed when the current loop exits.
	mu   sync.Mutex
	done chan struct{}
}

func newWorker(id int, rx *Receiver[message], env *runtimeEnv, pin bool) *Worker {
	w := &Worker{
		id:  id,
		rx:  rx,
		env: env,
		pin: pin,
	}
	w.done = w.start()
	return w
}

func (w *Worker) ID() int { return w.id }

func (w *Worker) State() State {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.stateMu.Lock()
	w.state = s
	w.stateMu.Unlock()
}

// Alive reports whether the worker's loop is still running.
func (w *Worker) Alive() bool {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Heal starts a new loop on the same receiver and state slot if the
// previous one has exited. It reports whether a restart occurred.
//
// A worker whose receiver was released by Pool.Shutdown cannot receive
// again and is not restarted. Tasks abandoned by a panicking loop are not
// rescued.
func (w *Worker) Heal() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
	default:
		return false
	}
	if w.rx.Closed() {
		return false
	}
	w.done = w.start()
	w.env.metrics.IncHealed()
	lg.FromContext(w.env.ctx).Info("worker healed", lg.Int("worker", w.id))
	return true
}

// Join blocks until the current loop has exited.
func (w *Worker) Join() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	<-done
}

func (w *Worker) start() chan struct{} {
	w.setState(Idle)
	done := make(chan struct{})
	go w.loop(done)
	return done
}

func (w *Worker) loop(done chan struct{}) {
	runtime.LockOSThread()
	logger := lg.FromContext(w.env.ctx).With(lg.Int("worker", w.id))

	var current *Task
	defer func() {
		if r := recover(); r != nil {
			perr := &TaskPanicError{WorkerID: w.id, Value: r, Stack: debug.Stack()}
			if current != nil {
				perr.TaskID = current.ID()
			}
			w.env.metrics.IncPanicked()
			logger.Error("task panicked", lg.String("task", perr.TaskID.String()), lg.Any("panic", r))
			w.env.reportTaskPanic(perr)
		}
		w.setState(Finished)
		logger.Info("worker exited")
		close(done)
	}()

	if w.pin {
		cpu := w.id % runtime.NumCPU()
		if err := pinWorker(cpu); err != nil {
			logger.Warn("cpu pinning failed", lg.Int("cpu", cpu), lg.Any("error", err))
			w.env.reportInternalError(fmt.Errorf("prioexec: worker %d pin to cpu %d: %w", w.id, cpu, err))
		}
	}

	for {
		msg, err := w.rx.Recv()
		if err != nil || !msg.isRun() {
			return
		}
		current = msg.task
		w.setState(Active)
		current.run()
		w.setState(Idle)
		current = nil
	}
}
