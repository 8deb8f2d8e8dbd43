package broadcast

import (
	"sync"
	"time"
)

// Notification tells live subscribers that a product view changed.
// ProductID plus Sequence identifies the underlying event uniquely.
type Notification struct {
	Type       string    `json:"type"`
	ProductID  string    `json:"productId"`
	Sequence   int64     `json:"sequence"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Broadcaster fans notifications out to any number of subscribers.
// Delivery never blocks the publisher: each subscription buffers behind
// its own pump goroutine.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new listener. The caller must Close the
// subscription when done or its pump goroutine leaks.
func (b *Broadcaster) Subscribe() *Subscription {
	s := &Subscription{
		in:          make(chan Notification, 16),
		out:         make(chan Notification),
		done:        make(chan struct{}),
		broadcaster: b,
	}
	go s.pump()

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *Broadcaster) unsubscribe(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Broadcast delivers n to every current subscriber.
func (b *Broadcaster) Broadcast(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		select {
		case s.in <- n:
		case <-s.done:
		}
	}
}

// Subscription is one listener's queue. Events() yields notifications in
// broadcast order; the internal queue is unbounded so a slow reader
// delays only itself.
type Subscription struct {
	in   chan Notification
	out  chan Notification
	done chan struct{}
	once sync.Once

	broadcaster *Broadcaster
}

func (s *Subscription) Events() <-chan Notification { return s.out }

// Close detaches the subscription. Pending notifications are dropped.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.broadcaster != nil {
			s.broadcaster.unsubscribe(s)
		}
	})
}

func (s *Subscription) pump() {
	defer close(s.out)
	var queue []Notification
	for {
		var sendCh chan Notification
		var next Notification
		if len(queue) > 0 {
			sendCh = s.out
			next = queue[0]
		}
		select {
		case n := <-s.in:
			queue = append(queue, n)
		case sendCh <- next:
			queue = queue[1:]
		case <-s.done:
			return
		}
	}
}
