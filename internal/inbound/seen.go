// ABOUTME: Thread-safe TTL tracker of inbound Message-IDs already delivered
// ABOUTME: Stops mail servers that retry a delivery from posting the same message twice

package inbound

import (
	"container/list"
	"sync"
	"time"
)

// seenEntry stores when a Message-ID was claimed and its place in the eviction order.
type seenEntry struct {
	at      time.Time
	element *list.Element
}

// SeenTracker remembers Message-IDs for a TTL, holding at most maxSize of
// them. The oldest ID is evicted first when full.
type SeenTracker struct {
	mu      sync.Mutex
	seen    map[string]*seenEntry
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// NewSeenTracker creates a tracker. A background goroutine drops expired
// IDs every sweep interval until Close is called.
func NewSeenTracker(ttl time.Duration, maxSize int) *SeenTracker {
	t := &SeenTracker{
		seen:    make(map[string]*seenEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go t.sweepLoop(sweepInterval(ttl))
	return t
}

// sweepInterval is a tenth of the TTL, clamped to [1s, 1m].
func sweepInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/10, time.Second), time.Minute)
}

// Claim records id as delivered. Returns false if id was already claimed
// within the TTL, true if the caller should go ahead with the delivery.
func (t *SeenTracker) Claim(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if entry, ok := t.seen[id]; ok {
		if now.Sub(entry.at) < t.ttl {
			return false
		}
		entry.at = now
		t.order.MoveToBack(entry.element)
		return true
	}

	if len(t.seen) >= t.maxSize {
		t.evictOldestLocked()
	}
	t.seen[id] = &seenEntry{at: now, element: t.order.PushBack(id)}
	return true
}

// Release forgets id so that a retried delivery is processed again.
func (t *SeenTracker) Release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.seen[id]; ok {
		t.order.Remove(entry.element)
		delete(t.seen, id)
	}
}

// Len returns the number of tracked IDs, expired or not.
func (t *SeenTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

func (t *SeenTracker) evictOldestLocked() {
	front := t.order.Front()
	if front == nil {
		return
	}
	id, _ := front.Value.(string)
	t.order.Remove(front)
	delete(t.seen, id)
}

func (t *SeenTracker) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-t.done:
			return
		}
	}
}

// sweep drops expired IDs. Insertion order is claim order, so it stops at
// the first live entry.
func (t *SeenTracker) sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for e := t.order.Front(); e != nil; {
		id, _ := e.Value.(string)
		if now.Sub(t.seen[id].at) < t.ttl {
			return
		}
		next := e.Next()
		t.order.Remove(e)
		delete(t.seen, id)
		e = next
	}
}

// Close stops the background sweep. It is safe to call multiple times.
func (t *SeenTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.closed {
		close(t.done)
		t.closed = true
	}
}
