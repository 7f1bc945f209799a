package catalog

import (
	"context"
	"sync"

	"github.com/Lixing-Zhang/storefront/internal/models"
)

// ItemFeed delivers inventory snapshots until the returned unsubscribe is called.
// Deliveries are asynchronous and may happen zero or more times.
type ItemFeed interface {
	SubscribeItems(ctx context.Context, onUpdate func([]models.InventoryItem)) (unsubscribe func(), err error)
}

// CategoryFeed is ItemFeed for categories.
type CategoryFeed interface {
	SubscribeCategories(ctx context.Context, onUpdate func([]models.Category)) (unsubscribe func(), err error)
}

// Feed provides both channels.
type Feed interface {
	ItemFeed
	CategoryFeed
}

// subscription runs a callback on its own goroutine. Only the latest pending
// value is kept, so a slow consumer skips to the newest snapshot.
type subscription[T any] struct {
	mu      sync.Mutex
	pending T
	has     bool
	waiters []chan struct{}

	wake     chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func newSubscription[T any](onUpdate func(T)) *subscription[T] {
	s := &subscription[T]{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go func() {
		defer close(s.stopped)
		defer s.release()
		for {
			select {
			case <-s.done:
				return
			case <-s.wake:
			}

			s.mu.Lock()
			v, has, waiters := s.pending, s.has, s.waiters
			var zero T
			s.pending, s.has, s.waiters = zero, false, nil
			s.mu.Unlock()

			select {
			case <-s.done:
				closeAll(waiters)
				return
			default:
			}
			if has {
				onUpdate(v)
			}
			closeAll(waiters)
		}
	}()
	return s
}

// offer replaces any pending value. The returned channel is closed once v,
// or a value offered after it, has been applied, or the subscription stops.
func (s *subscription[T]) offer(v T) <-chan struct{} {
	applied := make(chan struct{})

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		close(applied)
		return applied
	default:
	}
	s.pending, s.has = v, true
	s.waiters = append(s.waiters, applied)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return applied
}

// release closes the waiters left when the goroutine exits
func (s *subscription[T]) release() {
	s.mu.Lock()
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()
	closeAll(waiters)
}

// stop waits for an in-progress callback; calling it from the callback deadlocks.
func (s *subscription[T]) stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		s.mu.Unlock()
		<-s.stopped
	})
}

func closeAll(chs []chan struct{}) {
	for _, ch := range chs {
		close(ch)
	}
}

type broadcaster[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscription[T]
}

func (b *broadcaster[T]) subscribe(onUpdate func(T), initial T) func() {
	sub := newSubscription(onUpdate)

	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[int]*subscription[T])
	}
	id := b.next
	b.next++
	b.subs[id] = sub
	sub.offer(initial)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		sub.stop()
	}
}

// publish offers v to every subscriber and returns one channel per
// subscriber, closed when that subscriber has applied v or a newer value
func (b *broadcaster[T]) publish(v T) []<-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	applied := make([]<-chan struct{}, 0, len(b.subs))
	for _, sub := range b.subs {
		applied = append(applied, sub.offer(v))
	}
	return applied
}

// waitApplied blocks until every channel is closed or ctx is done
func waitApplied(ctx context.Context, applied []<-chan struct{}) error {
	for _, ch := range applied {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *broadcaster[T]) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
