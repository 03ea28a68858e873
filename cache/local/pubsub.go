package local

import (
	"context"
	"sync"
	"sync/atomic"
)

// Message is one published payload as seen by a subscriber.
type Message struct {
	Channel string
	Payload string
}

// subscription is one Subscribe call. It may listen on several channels
// but owns a single outbound queue.
type subscription struct {
	out      chan *Message
	channels []string
	closed   bool // guarded by Fanout.mu
}

// Fanout delivers every published message to all current subscribers of
// its channel. Delivery never blocks: a full subscriber queue drops the
// message and bumps Dropped.
type Fanout struct {
	mu      sync.RWMutex
	topics  map[string]map[*subscription]struct{}
	bufSize int
	dropped atomic.Int64
}

// NewPubSub creates a Fanout whose subscribers buffer up to bufSize messages.
func NewPubSub(bufSize int) *Fanout {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Fanout{topics: make(map[string]map[*subscription]struct{}), bufSize: bufSize}
}

func (f *Fanout) Publish(_ context.Context, channel, message string) error {
	msg := &Message{Channel: channel, Payload: message}
	// The read lock keeps unsubscribe from closing a queue mid-send.
	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.topics[channel] {
		select {
		case sub.out <- msg:
		default:
			f.dropped.Add(1)
		}
	}
	return nil
}

// Subscribe listens on channels until the returned cancel is called or the
// Fanout is closed. Either one closes the message channel; cancel is idempotent.
func (f *Fanout) Subscribe(_ context.Context, channels ...string) (<-chan *Message, func(), error) {
	sub := &subscription{out: make(chan *Message, f.bufSize), channels: channels}

	f.mu.Lock()
	for _, c := range channels {
		set, ok := f.topics[c]
		if !ok {
			set = make(map[*subscription]struct{})
			f.topics[c] = set
		}
		set[sub] = struct{}{}
	}
	f.mu.Unlock()

	return sub.out, func() { f.unsubscribe(sub) }, nil
}

func (f *Fanout) unsubscribe(sub *subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub.closed {
		return
	}
	for _, c := range sub.channels {
		set := f.topics[c]
		delete(set, sub)
		if len(set) == 0 {
			delete(f.topics, c)
		}
	}
	sub.closed = true
	close(sub.out)
}

// Subscribers returns the number of live subscriptions on channel.
func (f *Fanout) Subscribers(channel string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.topics[channel])
}

// Dropped counts messages lost to full subscriber queues.
func (f *Fanout) Dropped() int64 {
	return f.dropped.Load()
}

// Close ends every subscription.
func (f *Fanout) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, set := range f.topics {
		for sub := range set {
			if !sub.closed {
				sub.closed = true
				close(sub.out)
			}
		}
	}
	clear(f.topics)
	return nil
}
