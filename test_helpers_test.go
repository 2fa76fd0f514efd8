package prioexec

import (
	"runtime"
	"sync"
	"testing"
	"time"
)

const testTimeout = 2 * time.Second

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
		time.Sleep(100 * time.Microsecond)
	}
	t.Fatal("condition not satisfied before timeout")
}

// recorder collects values appended from many goroutines.
type recorder[T any] struct {
	mu   sync.Mutex
	vals []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	r.vals = append(r.vals, v)
	r.mu.Unlock()
}

func (r *recorder[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.vals)
}

func (r *recorder[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.vals))
	copy(out, r.vals)
	return out
}

// blockWorker spawns a task that occupies one worker until the returned
// release func is called. It returns once the task is running.
func blockWorker[M MetricsPolicy](t *testing.T, p *Pool[M], priority uint64) (release func()) {
	t.Helper()
	started := make(chan struct{})
	gate := make(chan struct{})
	p.SpawnFunc(priority, func() {
		close(started)
		<-gate
	})
	select {
	case <-started:
	case <-time.After(testTimeout):
		t.Fatal("blocking task did not start")
	}
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func newTestTask(priority uint64, f Future) (*Task, *Receiver[message]) {
	env := newRuntimeEnv(Options{}, &AtomicMetrics{})
	tx, rx := newMessageChannel(env)
	return newTask(priority, f, tx, env), rx
}
