package prioexec

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
)

const sortedChanCap = 256

var (
	// ErrNoReceivers is returned by Send once every receiver has been closed.
	ErrNoReceivers = errors.New("sortedchan: no receivers left")

	// ErrNoSenders is returned by Recv when the channel is empty and every
	// sender has been closed.
	ErrNoSenders = errors.New("sortedchan: no senders left")

	// ErrSenderClosed is returned when sending through a closed Sender.
	ErrSenderClosed = errors.New("sortedchan: sender closed")

	// ErrReceiverClosed is returned when receiving through a closed Receiver.
	ErrReceiverClosed = errors.New("sortedchan: receiver closed")
)

// sortedCore is the state shared by every Sender and Receiver of one
// channel.
type sortedCore[T any] struct {
	mu        sync.Mutex
	notEmpty  *sync.Cond
	pq        priorityQueue[T]
	senders   int
	receivers int

	// epoch, when set, reports a counter bumped after any queued element
	// changes rank. seen is the value the heap was last ordered under.
	epoch func() uint64
	seen  uint64
}

// Sender is the producing half of a sorted channel. Sends never block.
type Sender[T any] struct {
	c      *sortedCore[T]
	closed atomic.Bool
}

// Receiver is the consuming half of a sorted channel. Cloned receivers
// compete for the same messages.
type Receiver[T any] struct {
	c      *sortedCore[T]
	closed atomic.Bool
}

// NewSortedChannel creates an unbounded multi-producer, multi-consumer
// priority channel. Recv always returns a message comparing greatest under
// cmp among those queued at the time of the call. Ties are broken
// arbitrarily.
//
// The rank of an element must not change while it is queued; use
// NewRerankingChannel for elements with live ranks.
func NewSortedChannel[T any](cmp func(a, b T) int) (*Sender[T], *Receiver[T]) {
	return NewRerankingChannel(cmp, nil)
}

// NewRerankingChannel is NewSortedChannel for elements whose rank may
// change while queued. Whoever changes a rank must bump the counter
// reported by epoch afterwards; the next receive then reorders the queue
// under the current ranks before selecting. Receives with an unchanged
// epoch cost O(log n).
func NewRerankingChannel[T any](cmp func(a, b T) int, epoch func() uint64) (*Sender[T], *Receiver[T]) {
	c := &sortedCore[T]{
		pq:        priorityQueue[T]{items: make([]T, 0, sortedChanCap), cmp: cmp},
		senders:   1,
		receivers: 1,
		epoch:     epoch,
	}
	if epoch != nil {
		c.seen = epoch()
	}
	c.notEmpty = sync.NewCond(&c.mu)
	return &Sender[T]{c: c}, &Receiver[T]{c: c}
}

// Send enqueues v.
func (s *Sender[T]) Send(v T) error {
	if s.closed.Load() {
		return ErrSenderClosed
	}
	c := s.c
	c.mu.Lock()
	if c.receivers == 0 {
		c.mu.Unlock()
		return ErrNoReceivers
	}
	heap.Push(&c.pq, v)
	c.mu.Unlock()
	c.notEmpty.Signal()
	return nil
}

// Clone returns an independent Sender for the same channel.
func (s *Sender[T]) Clone() *Sender[T] {
	c := s.c
	c.mu.Lock()
	c.senders++
	c.mu.Unlock()
	return &Sender[T]{c: c}
}

// Close releases this sender. When the last sender is closed, blocked
// receivers drain what is left and then observe ErrNoSenders.
func (s *Sender[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	c := s.c
	c.mu.Lock()
	c.senders--
	last := c.senders == 0
	c.mu.Unlock()
	if last {
		c.notEmpty.Broadcast()
	}
}

// Recv blocks until a message is available or no sender is left.
func (r *Receiver[T]) Recv() (T, error) {
	var zero T
	if r.closed.Load() {
		return zero, ErrReceiverClosed
	}
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pq.Len() == 0 {
		if c.senders == 0 {
			return zero, ErrNoSenders
		}
		c.notEmpty.Wait()
	}
	return c.popLocked(), nil
}

// TryRecv returns the greatest queued message without blocking.
func (r *Receiver[T]) TryRecv() (T, bool) {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pq.Len() == 0 {
		var zero T
		return zero, false
	}
	return c.popLocked(), true
}

// Len returns the number of queued messages.
func (r *Receiver[T]) Len() int {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pq.Len()
}

// Clone returns another consumer competing for the same messages.
func (r *Receiver[T]) Clone() *Receiver[T] {
	c := r.c
	c.mu.Lock()
	c.receivers++
	c.mu.Unlock()
	return &Receiver[T]{c: c}
}

// Close releases this receiver. Once the last receiver is closed, queued
// messages are discarded and every Send fails with ErrNoReceivers.
func (r *Receiver[T]) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receivers--
	if c.receivers == 0 {
		c.pq.reset()
	}
}

// Closed reports whether this receiver has been closed.
func (r *Receiver[T]) Closed() bool { return r.closed.Load() }

func (c *sortedCore[T]) popLocked() T {
	if c.epoch != nil {
		if e := c.epoch(); e != c.seen {
			c.seen = e
			heap.Init(&c.pq)
		}
	}
	return heap.Pop(&c.pq).(T)
}
