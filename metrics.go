package prioexec

import (
	"sync/atomic"
)

// MetricsPolicy defines hooks used by the pool to report scheduling and
// execution activity.
//
// Implementations must be safe for concurrent use.
// All methods are expected to be lightweight and non-blocking.
type MetricsPolicy interface {
	// IncSpawned counts a task accepted by Spawn.
	IncSpawned()

	// IncPolled counts one poll of a task's future.
	IncPolled()

	// IncFinished counts a task whose future returned Ready.
	IncFinished()

	// IncDropped counts a run message that could not be enqueued,
	// either at spawn time or from a wake.
	IncDropped()

	// IncPanicked counts a poll that panicked and took its worker down.
	IncPanicked()

	// IncHealed counts a worker restarted by Heal.
	IncHealed()
}

// AtomicMetrics is a lock-free metrics implementation backed by atomics.
//
// Writes are optimized for hot paths.
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	polled atomic.Uint64

	_ [56]byte // padding to avoid false sharing

	spawned  atomic.Uint64
	finished atomic.Uint64
	dropped  atomic.Uint64
	panicked atomic.Uint64
	healed   atomic.Uint64
}

func (m *AtomicMetrics) Spawned() uint64  { return m.spawned.Load() }
func (m *AtomicMetrics) Polled() uint64   { return m.polled.Load() }
func (m *AtomicMetrics) Finished() uint64 { return m.finished.Load() }
func (m *AtomicMetrics) Dropped() uint64  { return m.dropped.Load() }
func (m *AtomicMetrics) Panicked() uint64 { return m.panicked.Load() }
func (m *AtomicMetrics) Healed() uint64   { return m.healed.Load() }

func (m *AtomicMetrics) IncSpawned()  { m.spawned.Add(1) }
func (m *AtomicMetrics) IncPolled()   { m.polled.Add(1) }
func (m *AtomicMetrics) IncFinished() { m.finished.Add(1) }
func (m *AtomicMetrics) IncDropped()  { m.dropped.Add(1) }
func (m *AtomicMetrics) IncPanicked() { m.panicked.Add(1) }
func (m *AtomicMetrics) IncHealed()   { m.healed.Add(1) }

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a MetricsPolicy implementation that discards
// all metric updates.
type NoopMetrics struct{}

func (m *NoopMetrics) IncSpawned()  {}
func (m *NoopMetrics) IncPolled()   {}
func (m *NoopMetrics) IncFinished() {}
func (m *NoopMetrics) IncDropped()  {}
func (m *NoopMetrics) IncPanicked() {}
func (m *NoopMetrics) IncHealed()   {}
