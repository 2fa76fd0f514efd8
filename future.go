package prioexec

import (
	"sync"
)

// Poll is the outcome of polling a Future once.
type Poll uint8

const (
	// Pending means the future cannot make progress yet. It must arrange
	// for the context's waker to be invoked once progress is possible.
	Pending Poll = iota

	// Ready means the future has completed. It must not be polled again.
	Ready
)

func (p Poll) IsReady() bool { return p == Ready }

func (p Poll) String() string {
	if p == Ready {
		return "Ready"
	}
	return "Pending"
}

// Waker reschedules whatever is waiting on a pending future.
//
// Wake may be called from any goroutine, any number of times, including
// from inside the Poll call that received it.
type Waker interface {
	Wake()
}

// WakerFunc adapts a plain function to the Waker interface.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

// Context carries the waker of the poll in progress.
type Context struct {
	waker Waker
}

// NewContext returns a polling context that wakes w.
func NewContext(w Waker) *Context {
	return &Context{waker: w}
}

func (cx *Context) Waker() Waker { return cx.waker }

// Future is a deferred, resumable computation without input or output.
//
// Poll advances the computation as far as it can without blocking.
type Future interface {
	Poll(cx *Context) Poll
}

// FutureFunc adapts a function to the Future interface.
type FutureFunc func(cx *Context) Poll

func (f FutureFunc) Poll(cx *Context) Poll { return f(cx) }

// Func returns a future that runs fn to completion on its first poll.
func Func(fn func()) Future {
	return FutureFunc(func(*Context) Poll {
		fn()
		return Ready
	})
}

// Yield returns a future that reports Pending exactly once, waking itself
// before returning, then completes on the next poll.
func Yield() Future {
	yielded := false
	return FutureFunc(func(cx *Context) Poll {
		if yielded {
			return Ready
		}
		yielded = true
		cx.Waker().Wake()
		return Pending
	})
}

// Chain polls each future in order, moving on only after the current one
// is Ready.
func Chain(futures ...Future) Future {
	next := 0
	return FutureFunc(func(cx *Context) Poll {
		for next < len(futures) {
			if futures[next].Poll(cx) == Pending {
				return Pending
			}
			futures[next] = nil
			next++
		}
		return Ready
	})
}

// Signal is a one-shot event usable as a Future.
//
// Poll resolves once Set has been called. While pending, only the most
// recently registered waker is kept and woken.
type Signal struct {
	mu    sync.Mutex
	set   bool
	waker Waker
}

func NewSignal() *Signal { return &Signal{} }

// Set fires the signal. Calls after the first have no effect.
func (s *Signal) Set() {
	s.mu.Lock()
	if s.set {
		s.mu.Unlock()
		return
	}
	s.set = true
	w := s.waker
	s.waker = nil
	s.mu.Unlock()

	if w != nil {
		w.Wake()
	}
}

func (s *Signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

func (s *Signal) Poll(cx *Context) Poll {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		return Ready
	}
	s.waker = cx.Waker()
	return Pending
}
