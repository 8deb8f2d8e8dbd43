package broadcast

import (
	"testing"
	"time"
)

func collect(t *testing.T, sub *Subscription, n int) []Notification {
	t.Helper()
	var got []Notification
	deadline := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case notif, ok := <-sub.Events():
			if !ok {
				t.Fatalf("subscription closed after %d of %d notifications", len(got), n)
			}
			got = append(got, notif)
		case <-deadline:
			t.Fatalf("timed out after %d of %d notifications", len(got), n)
		}
	}
	return got
}

func TestBroadcastFansOut(t *testing.T) {
	b := NewBroadcaster()
	sub1 := b.Subscribe()
	defer sub1.Close()
	sub2 := b.Subscribe()
	defer sub2.Close()

	n := Notification{Type: "ProductRegistered", ProductID: "p1", OccurredAt: time.Now().UTC()}
	b.Broadcast(n)

	for _, sub := range []*Subscription{sub1, sub2} {
		got := collect(t, sub, 1)
		if got[0].ProductID != "p1" {
			t.Fatalf("wrong notification: %+v", got[0])
		}
	}
}

func TestBroadcastPreservesOrderPerSubscriber(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	defer sub.Close()

	for i := 0; i < 100; i++ {
		b.Broadcast(Notification{Type: "ProductNameUpdated", ProductID: "p", OccurredAt: time.Unix(int64(i), 0)})
	}

	got := collect(t, sub, 100)
	for i := 1; i < len(got); i++ {
		if !got[i].OccurredAt.After(got[i-1].OccurredAt) {
			t.Fatalf("order lost at %d: %v then %v", i, got[i-1].OccurredAt, got[i].OccurredAt)
		}
	}
}

func TestSlowSubscriberDoesNotBlockBroadcast(t *testing.T) {
	b := NewBroadcaster()
	slow := b.Subscribe()
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		// Well past the subscription's channel buffer; the pump queue
		// must absorb the burst while nobody reads.
		for i := 0; i < 1000; i++ {
			b.Broadcast(Notification{Type: "ProductRegistered", ProductID: "p"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("broadcast blocked on a slow subscriber")
	}

	got := collect(t, slow, 1000)
	if len(got) != 1000 {
		t.Fatalf("expected all notifications, got %d", len(got))
	}
}

func TestCloseDetachesSubscriber(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	sub.Close()

	// Closed subscribers must not block or receive further broadcasts.
	b.Broadcast(Notification{Type: "ProductRetired", ProductID: "p"})

	b.mu.RLock()
	_, present := b.subs[sub]
	b.mu.RUnlock()
	if present {
		t.Fatalf("closed subscription still registered")
	}
}
