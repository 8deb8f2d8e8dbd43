package poller

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// blocklist holds aggregates whose last delivery failed. While blocked,
// later deliveries for the same aggregate are skipped so they cannot
// overtake the failed one.
type blocklist struct {
	mu    sync.Mutex
	until map[uuid.UUID]time.Time
}

func newBlocklist() *blocklist {
	return &blocklist{until: make(map[uuid.UUID]time.Time)}
}

func (b *blocklist) Block(id uuid.UUID, d time.Duration) {
	b.mu.Lock()
	b.until[id] = time.Now().Add(d)
	b.mu.Unlock()
}

func (b *blocklist) Blocked(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	deadline, ok := b.until[id]
	if !ok {
		return false
	}
	if time.Now().After(deadline) {
		delete(b.until, id)
		return false
	}
	return true
}
