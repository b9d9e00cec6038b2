// Package feed implements a latest-value broadcast used for live snapshots.
package feed

import (
	"context"
	"sync/atomic"
)

type subscribeReq[T any] struct {
	ch chan T
}

// Feed fans out snapshots to subscribers. Each subscriber first receives the
// latest published value (if any), then every later value. A subscriber that
// falls behind only ever sees the newest value, never a stale one.
//
// A single internal goroutine owns the subscriber set and the latest value;
// public methods talk to it through channels, so no mutexes are required.
type Feed[T any] struct {
	subscribeCh   chan subscribeReq[T]
	unsubscribeCh chan chan T
	publishCh     chan T
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// New creates a feed and starts its loop.
func New[T any]() *Feed[T] {
	f := &Feed[T]{
		subscribeCh:   make(chan subscribeReq[T]),
		unsubscribeCh: make(chan chan T),
		publishCh:     make(chan T),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *Feed[T]) run() {
	defer close(f.stopped)

	clients := make(map[chan T]struct{})
	var latest T
	var hasLatest bool

	// deliver replaces whatever is still buffered for ch with v. Only this
	// loop sends on client channels, so after draining the send cannot block.
	deliver := func(ch chan T, v T) {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}

	for {
		select {
		case <-f.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-f.subscribeCh:
			clients[req.ch] = struct{}{}
			if hasLatest {
				deliver(req.ch, latest)
			}

		case ch := <-f.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case v := <-f.publishCh:
			latest, hasLatest = v, true
			for ch := range clients {
				deliver(ch, v)
			}

		case resp := <-f.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every subscriber channel. Safe to call
// more than once.
func (f *Feed[T]) Close() {
	if f.closed.CompareAndSwap(false, true) {
		close(f.stopCh)
	}
	<-f.stopped
}

// Publish makes v the latest value and hands it to every subscriber.
// It is a no-op after Close.
func (f *Feed[T]) Publish(v T) {
	if f.closed.Load() {
		return
	}
	select {
	case f.publishCh <- v:
	case <-f.stopped:
	}
}

// Subscribe registers a subscriber whose channel is closed when ctx is done
// or the feed is closed.
func (f *Feed[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)
	if f.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case f.subscribeCh <- subscribeReq[T]{ch: ch}:
	case <-f.stopped:
		close(ch)
		return ch
	case <-ctx.Done():
		close(ch)
		return ch
	}

	go func() {
		select {
		case <-ctx.Done():
			f.unsubscribe(ch)
		case <-f.stopped:
		}
	}()
	return ch
}

func (f *Feed[T]) unsubscribe(ch chan T) {
	if f.closed.Load() {
		return
	}
	select {
	case f.unsubscribeCh <- ch:
	case <-f.stopped:
	}
}

// SubscriberCount returns the number of live subscribers.
func (f *Feed[T]) SubscriberCount() int {
	if f.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case f.countReqCh <- resp:
	case <-f.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-f.stopped:
		return 0
	}
}
