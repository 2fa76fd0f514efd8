package prioexec

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskHandle_PollBeforeAndAfterFinish(t *testing.T) {
	sig := NewSignal()
	task, rx := newTestTask(1, sig)
	h := &TaskHandle{task: task}

	var woken atomic.Int32
	cx := NewContext(WakerFunc(func() { woken.Add(1) }))

	if got := h.Poll(cx); got != Pending {
		t.Fatalf("poll before run = %v; want Pending", got)
	}
	task.run()
	if got := h.Poll(cx); got != Pending {
		t.Fatalf("poll of idle task = %v; want Pending", got)
	}
	if woken.Load() != 0 {
		t.Fatal("handle woken before completion")
	}

	sig.Set()
	msg, _ := rx.TryRecv()
	msg.task.run()

	if n := woken.Load(); n != 1 {
		t.Fatalf("handle woken %d times; want 1", n)
	}
	for range 3 {
		if got := h.Poll(cx); got != Ready {
			t.Fatalf("poll after finish = %v; want Ready", got)
		}
	}
	if !h.Done() || h.State() != Finished {
		t.Fatalf("handle state = %v; want Finished", h.State())
	}
}

func TestTaskHandle_OnlyLatestWakerIsWoken(t *testing.T) {
	task, _ := newTestTask(1, Func(func() {}))
	h := &TaskHandle{task: task}

	var first, second atomic.Int32
	h.Poll(NewContext(WakerFunc(func() { first.Add(1) })))
	h.Poll(NewContext(WakerFunc(func() { second.Add(1) })))

	task.run()

	if first.Load() != 0 || second.Load() != 1 {
		t.Fatalf("first=%d second=%d; want 0 and 1", first.Load(), second.Load())
	}
}

func TestTaskHandle_SetPriorityDelegates(t *testing.T) {
	task, _ := newTestTask(1, Func(func() {}))
	h := &TaskHandle{task: task}

	h.SetPriority(42)
	if got := task.Priority(); got != 42 {
		t.Fatalf("task priority = %d; want 42", got)
	}
	if got := h.Priority(); got != 42 {
		t.Fatalf("handle priority = %d; want 42", got)
	}
	if h.ID() != task.ID() {
		t.Fatal("handle id differs from task id")
	}
}

func TestTaskHandle_WaitTimesOut(t *testing.T) {
	task, _ := newTestTask(1, NewSignal())
	h := &TaskHandle{task: task}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := h.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("wait = %v; want DeadlineExceeded", err)
	}
}

func TestTaskHandle_AwaitedByAnotherTask(t *testing.T) {
	p := NewPoolFromOptions(&AtomicMetrics{}, Options{Workers: 2})
	defer p.Stop()

	gate := NewSignal()
	producer := p.Spawn(1, gate)

	var order recorder[string]
	consumer := p.Spawn(5, Chain(producer, Func(func() { order.add("consumer") })))

	waitUntil(t, testTimeout, func() bool {
		return p.Metrics().Polled() == 2 && consumer.State() == Idle && producer.State() == Idle
	})
	if order.len() != 0 {
		t.Fatal("consumer ran before producer finished")
	}

	gate.Set()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	if err := consumer.Wait(ctx); err != nil {
		t.Fatalf("consumer wait: %v", err)
	}
	if !producer.Done() {
		t.Fatal("consumer finished before producer")
	}
	if got := order.snapshot(); len(got) != 1 {
		t.Fatalf("consumer body ran %d times; want 1", len(got))
	}
}
