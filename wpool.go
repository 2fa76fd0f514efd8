package prioexec

import (
	"context"
	"sync"
	"sync/atomic"

	lg "github.com/Andrej220/go-utils/zlog"
)

// Pool runs spawned futures on a fixed set of workers, highest priority
// first.
type Pool[M MetricsPolicy] struct {
	opts    Options
	env     *runtimeEnv
	metrics M

	tx      *Sender[message]
	workers []*Worker

	numTasks  atomic.Uint64
	closeOnce sync.Once
	closed    atomic.Bool
	release   sync.Once
}

// NewPool creates a pool of n workers with default options and no metrics.
func NewPool(workers int) *Pool[*NoopMetrics] {
	return NewPoolFromOptions(&NoopMetrics{}, Options{Workers: workers})
}

// NewPoolFromOptions creates a pool reporting to metrics.
func NewPoolFromOptions[M MetricsPolicy](metrics M, opts Options) *Pool[M] {
	opts.FillDefaults()

	p := &Pool[M]{
		opts:    opts,
		metrics: metrics,
		env:     newRuntimeEnv(opts, metrics),
	}

	tx, rx := newMessageChannel(p.env)
	p.tx = tx
	p.workers = make([]*Worker, opts.Workers)
	for i := range p.workers {
		p.workers[i] = newWorker(i, rx.Clone(), p.env, opts.PinWorkers)
	}
	// every worker holds its own receiver
	rx.Close()

	lg.FromContext(p.env.ctx).Info("pool started",
		lg.Int("workers", opts.Workers),
		lg.String("shutdown_mode", opts.ShutdownMode.String()),
	)
	return p
}

// Spawn wraps f in a task at the given priority and schedules it.
//
// Scheduling is best-effort: if no worker can receive anymore the task is
// created but never runs, and its handle never resolves.
func (p *Pool[M]) Spawn(priority uint64, f Future) *TaskHandle {
	t := newTask(priority, f, p.tx, p.env)
	if err := p.tx.Send(runMessage(t)); err != nil {
		p.metrics.IncDropped()
		lg.FromContext(p.env.ctx).Warn("spawn dropped",
			lg.String("task", t.ID().String()),
			lg.Any("error", err),
		)
	}
	p.numTasks.Add(1)
	p.metrics.IncSpawned()
	return &TaskHandle{task: t}
}

// SpawnFunc schedules fn as a task that completes on its first poll.
func (p *Pool[M]) SpawnFunc(priority uint64, fn func()) *TaskHandle {
	return p.Spawn(priority, Func(fn))
}

// Spawned returns the number of tasks spawned so far.
func (p *Pool[M]) Spawned() uint64 { return p.numTasks.Load() }

func (p *Pool[M]) Metrics() M { return p.metrics }

func (p *Pool[M]) Size() int { return len(p.workers) }

// Workers returns the pool's worker slots in order.
func (p *Pool[M]) Workers() []*Worker {
	out := make([]*Worker, len(p.workers))
	copy(out, p.workers)
	return out
}

func (p *Pool[M]) WorkerStates() []State {
	states := make([]State, len(p.workers))
	for i, w := range p.workers {
		states[i] = w.State()
	}
	return states
}

// Heal restarts every worker whose loop has exited and returns how many
// were restarted. Nothing calls it automatically.
func (p *Pool[M]) Heal() int {
	n := 0
	for _, w := range p.workers {
		if w.Heal() {
			n++
		}
	}
	return n
}

// Close sends one shutdown message per configured worker slot. It does not
// wait; use Join or Shutdown for that. Close is idempotent.
func (p *Pool[M]) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		for range p.workers {
			if err := p.tx.Send(shutdownMessage(p.opts.ShutdownMode)); err != nil {
				lg.FromContext(p.env.ctx).Warn("shutdown signal dropped", lg.Any("error", err))
			}
		}
		lg.FromContext(p.env.ctx).Info("pool closing", lg.Any("spawned", p.numTasks.Load()))
	})
}

func (p *Pool[M]) Closed() bool { return p.closed.Load() }

// Join blocks until every worker's current loop has exited.
func (p *Pool[M]) Join() {
	for _, w := range p.workers {
		w.Join()
	}
}

// Shutdown closes the pool and waits for every worker to exit, or for ctx
// to be done. Once all workers have exited their receivers are released:
// later wakes and spawns are dropped, and the pool cannot be healed.
func (p *Pool[M]) Shutdown(ctx context.Context) error {
	p.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Join()
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.release.Do(func() {
		for _, w := range p.workers {
			w.rx.Close()
		}
	})
	return nil
}

// Stop is a blocking Shutdown without a deadline.
func (p *Pool[M]) Stop() { _ = p.Shutdown(context.Background()) }
