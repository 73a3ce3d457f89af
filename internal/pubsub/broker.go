package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultBufferSize = 64

// Overflow decides what Publish does when a subscriber's buffer is full.
type Overflow int

const (
	// DropNewest discards the event being published.
	DropNewest Overflow = iota
	// DropOldest discards the oldest queued event to make room, so the
	// subscriber always sees the latest state.
	DropOldest
)

// Option configures a Broker.
type Option func(*options)

type options struct {
	buffer   int
	overflow Overflow
}

// WithBuffer sets the per-subscriber buffer. Values below 1 mean 1.
func WithBuffer(n int) Option {
	return func(o *options) { o.buffer = max(n, 1) }
}

// WithOverflow sets the full-buffer policy.
func WithOverflow(p Overflow) Option {
	return func(o *options) { o.overflow = p }
}

// Stats is a snapshot of a broker's counters.
type Stats struct {
	Subscribers int
	Published   uint64
	// Dropped counts per-subscriber deliveries lost to full buffers.
	Dropped uint64
}

// Broker fans one topic out to every live subscription. Publish never
// blocks.
type Broker[T any] struct {
	topic Topic
	opts  options

	mu     sync.RWMutex
	subs   map[chan Event[T]]struct{}
	closed bool

	seq     atomic.Uint64
	dropped atomic.Uint64
}

// NewBroker returns a broker for topic. The default buffer holds 64 events
// per subscriber and drops the newest event on overflow.
func NewBroker[T any](topic Topic, opts ...Option) *Broker[T] {
	o := options{buffer: defaultBufferSize, overflow: DropNewest}
	for _, fn := range opts {
		fn(&o)
	}
	return &Broker[T]{
		topic: topic,
		opts:  o,
		subs:  make(map[chan Event[T]]struct{}),
	}
}

// Topic returns the broker's topic.
func (b *Broker[T]) Topic() Topic {
	return b.topic
}

// Subscribe registers a new channel that is closed when ctx ends or the
// broker closes, whichever happens first.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event[T], b.opts.buffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		b.unsubscribe(ch)
	}()
	return ch
}

func (b *Broker[T]) unsubscribe(ch chan Event[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; !ok {
		return
	}
	delete(b.subs, ch)
	close(ch)
}

// Publish delivers payload to all subscribers under the next sequence
// number.
func (b *Broker[T]) Publish(payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	ev := Event[T]{Topic: b.topic, Seq: b.seq.Add(1), Payload: payload, At: time.Now()}
	for ch := range b.subs {
		if b.deliver(ch, ev) {
			continue
		}
		b.dropped.Add(1)
	}
}

func (b *Broker[T]) deliver(ch chan Event[T], ev Event[T]) bool {
	select {
	case ch <- ev:
		return true
	default:
	}
	if b.opts.overflow != DropOldest {
		return false
	}
	select {
	case <-ch:
		b.dropped.Add(1)
	default:
	}
	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}

// Close closes every subscription. Further publishes are ignored.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	clear(b.subs)
}

// Stats returns the current counters.
func (b *Broker[T]) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()
	return Stats{Subscribers: n, Published: b.seq.Load(), Dropped: b.dropped.Load()}
}
