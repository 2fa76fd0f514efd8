package prioexec

import (
	"errors"
	"testing"
	"time"
)

func newTestWorker(t *testing.T, env *runtimeEnv) (*Worker, *Sender[message]) {
	t.Helper()
	tx, rx := newMessageChannel(env)
	return newWorker(0, rx, env, false), tx
}

func TestWorkerHeal(t *testing.T) {
	env := newRuntimeEnv(Options{}, &AtomicMetrics{})
	w, tx := newTestWorker(t, env)
	if got := w.State(); got != Idle {
		t.Fatalf("initial state = %v; want Idle", got)
	}
	if w.Heal() {
		t.Fatal("Heal restarted a live worker")
	}

	if err := tx.Send(shutdownMessage(ShutdownImmediate)); err != nil {
		t.Fatalf("send: %v", err)
	}
	waitUntil(t, testTimeout, func() bool { return w.State() == Finished && !w.Alive() })

	if !w.Heal() {
		t.Fatal("Heal did not restart a finished worker")
	}
	if got := w.State(); got != Idle {
		t.Fatalf("state after heal = %v; want Idle", got)
	}
	if n := env.metrics.(*AtomicMetrics).Healed(); n != 1 {
		t.Fatalf("healed = %d; want 1", n)
	}

	// the healed loop keeps serving the same queue
	ran := make(chan struct{})
	task := newTask(1, Func(func() { close(ran) }), tx, env)
	_ = tx.Send(runMessage(task))
	<-ran
	waitUntil(t, testTimeout, func() bool { return task.State() == Finished })

	_ = tx.Send(shutdownMessage(ShutdownImmediate))
	w.Join()
	if got := w.State(); got != Finished {
		t.Fatalf("state after join = %v; want Finished", got)
	}
}

func TestWorker_ActiveWhileRunning(t *testing.T) {
	env := newRuntimeEnv(Options{}, &NoopMetrics{})
	w, tx := newTestWorker(t, env)

	started := make(chan struct{})
	gate := make(chan struct{})
	task := newTask(1, Func(func() {
		close(started)
		<-gate
	}), tx, env)
	_ = tx.Send(runMessage(task))

	<-started
	if got := w.State(); got != Active {
		t.Fatalf("state while running = %v; want Active", got)
	}
	close(gate)
	waitUntil(t, testTimeout, func() bool { return w.State() == Idle })

	_ = tx.Send(shutdownMessage(ShutdownImmediate))
	w.Join()
}

func TestWorker_ExitsWhenSendersGone(t *testing.T) {
	env := newRuntimeEnv(Options{}, &NoopMetrics{})
	w, tx := newTestWorker(t, env)

	tx.Close()
	w.Join()
	if got := w.State(); got != Finished {
		t.Fatalf("state = %v; want Finished", got)
	}
}

func TestWorker_PanicTerminatesLoop(t *testing.T) {
	var reported error
	metrics := &AtomicMetrics{}
	env := newRuntimeEnv(Options{OnTaskPanic: func(err error) { reported = err }}, metrics)
	w, tx := newTestWorker(t, env)

	bad := newTask(1, FutureFunc(func(*Context) Poll { panic("boom") }), tx, env)
	_ = tx.Send(runMessage(bad))
	w.Join()

	if got := w.State(); got != Finished {
		t.Fatalf("worker state = %v; want Finished", got)
	}
	if got := bad.State(); got != Active {
		t.Fatalf("task state = %v; want Active", got)
	}
	var perr *TaskPanicError
	if !errors.As(reported, &perr) {
		t.Fatalf("reported = %v; want *TaskPanicError", reported)
	}
	if perr.TaskID != bad.ID() || perr.Value != "boom" {
		t.Fatalf("panic error = %+v", perr)
	}
	if n := metrics.Panicked(); n != 1 {
		t.Fatalf("panicked = %d; want 1", n)
	}

	if !w.Heal() {
		t.Fatal("Heal did not restart the crashed worker")
	}
	ran := make(chan struct{})
	_ = tx.Send(runMessage(newTask(1, Func(func() { close(ran) }), tx, env)))
	<-ran

	_ = tx.Send(shutdownMessage(ShutdownImmediate))
	w.Join()
}

func TestWorker_PinFailureReported(t *testing.T) {
	errPin := errors.New("pin refused")
	prev := pinWorker
	pinWorker = func(int) error { return errPin }
	defer func() { pinWorker = prev }()

	reported := make(chan error, 1)
	env := newRuntimeEnv(Options{OnInternalError: func(err error) { reported <- err }}, &NoopMetrics{})
	tx, rx := newMessageChannel(env)
	w := newWorker(3, rx, env, true)

	select {
	case err := <-reported:
		if !errors.Is(err, errPin) {
			t.Fatalf("reported = %v; want wrapped pin error", err)
		}
	case <-time.After(testTimeout):
		t.Fatal("pin failure not reported")
	}

	// an unpinned worker keeps serving
	ran := make(chan struct{})
	_ = tx.Send(runMessage(newTask(1, Func(func() { close(ran) }), tx, env)))
	<-ran

	_ = tx.Send(shutdownMessage(ShutdownImmediate))
	w.Join()
}
