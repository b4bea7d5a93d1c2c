// Package observable provides a hot value stream with current-value replay.
//
// A Value holds the latest item behind a mutex and fans every Store out to
// its subscribers in order. A new subscriber first receives the current
// item, then every later one. Each subscriber owns an unbounded queue, so a
// slow reader never blocks Store or other readers.
package observable

import (
	"context"
	"sync"
)

type Value[T any] struct {
	mu      sync.Mutex
	current T
	subs    map[uint64]*subscriber[T]
	nextID  uint64
	closed  bool
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		current: initial,
		subs:    make(map[uint64]*subscriber[T]),
	}
}

// Load returns the latest stored item.
func (v *Value[T]) Load() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Store replaces the current item and delivers it to every subscriber.
// Stores after Close are dropped.
func (v *Value[T]) Store(item T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.current = item
	for _, s := range v.subs {
		s.push(item)
	}
}

// Subscribe returns a channel that yields the current item followed by all
// later ones. The channel is closed when ctx is done or the Value is closed;
// items queued before Close are still delivered.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	out := make(chan T)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		close(out)
		return out
	}
	id := v.nextID
	v.nextID++
	s := newSubscriber[T]()
	s.push(v.current)
	v.subs[id] = s
	v.mu.Unlock()

	go func() {
		defer close(out)
		defer v.remove(id)
		s.pump(ctx, out)
	}()
	return out
}

// Subscribers returns the number of live subscriptions.
func (v *Value[T]) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// Close ends every subscription after its queue drains.
func (v *Value[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	for _, s := range v.subs {
		s.finish()
	}
}

func (v *Value[T]) remove(id uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.subs, id)
}

type subscriber[T any] struct {
	mu     sync.Mutex
	queue  []T
	done   bool
	signal chan struct{}
}

func newSubscriber[T any]() *subscriber[T] {
	return &subscriber[T]{signal: make(chan struct{}, 1)}
}

func (s *subscriber[T]) push(item T) {
	s.mu.Lock()
	s.queue = append(s.queue, item)
	s.mu.Unlock()
	s.notify()
}

func (s *subscriber[T]) finish() {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	s.notify()
}

func (s *subscriber[T]) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) pump(ctx context.Context, out chan<- T) {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			done := s.done
			s.mu.Unlock()
			if done {
				return
			}
			select {
			case <-s.signal:
				continue
			case <-ctx.Done():
				return
			}
		}
		item := s.queue[0]
		var zero T
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case out <- item:
		case <-ctx.Done():
			return
		}
	}
}
