// ABOUTME: Tests for the Message-ID seen tracker
// ABOUTME: Validates TTL expiry, size-bounded eviction, release, sweeping and concurrency safety

package inbound

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker(t *testing.T, ttl time.Duration, maxSize int) (*SeenTracker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	tracker := NewSeenTracker(ttl, maxSize)
	tracker.mu.Lock()
	tracker.now = clock.Now
	tracker.mu.Unlock()
	t.Cleanup(tracker.Close)
	return tracker, clock
}

func TestSeenTracker_ClaimOnce(t *testing.T) {
	tracker, _ := newTestTracker(t, time.Hour, 100)

	assert.True(t, tracker.Claim("msg-1@mail.example.com"))
	assert.False(t, tracker.Claim("msg-1@mail.example.com"))
	assert.True(t, tracker.Claim("msg-2@mail.example.com"))
}

func TestSeenTracker_ExpiredIDCanBeClaimedAgain(t *testing.T) {
	tracker, clock := newTestTracker(t, time.Hour, 100)

	assert.True(t, tracker.Claim("msg-1"))
	clock.Advance(59 * time.Minute)
	assert.False(t, tracker.Claim("msg-1"))

	clock.Advance(2 * time.Minute)
	assert.True(t, tracker.Claim("msg-1"))
	assert.False(t, tracker.Claim("msg-1"), "re-claim restarts the TTL")
}

func TestSeenTracker_Release(t *testing.T) {
	tracker, _ := newTestTracker(t, time.Hour, 100)

	assert.True(t, tracker.Claim("msg-1"))
	tracker.Release("msg-1")
	assert.Equal(t, 0, tracker.Len())
	assert.True(t, tracker.Claim("msg-1"))

	// Releasing an unknown ID is a no-op
	tracker.Release("never-claimed")
	assert.Equal(t, 1, tracker.Len())
}

func TestSeenTracker_EvictsOldestWhenFull(t *testing.T) {
	tracker, _ := newTestTracker(t, time.Hour, 3)

	for i := range 3 {
		assert.True(t, tracker.Claim(fmt.Sprintf("msg-%d", i)))
	}
	assert.True(t, tracker.Claim("msg-3"))
	assert.Equal(t, 3, tracker.Len())

	// msg-0 was evicted, the rest are still tracked
	assert.True(t, tracker.Claim("msg-0"))
	assert.False(t, tracker.Claim("msg-3"))
}

func TestSeenTracker_SweepDropsExpired(t *testing.T) {
	tracker, clock := newTestTracker(t, time.Hour, 100)

	tracker.Claim("old-1")
	tracker.Claim("old-2")
	clock.Advance(30 * time.Minute)
	tracker.Claim("fresh")
	clock.Advance(45 * time.Minute)

	tracker.sweep()

	assert.Equal(t, 1, tracker.Len())
	assert.False(t, tracker.Claim("fresh"))
	assert.True(t, tracker.Claim("old-1"))
}

func TestSweepInterval(t *testing.T) {
	assert.Equal(t, time.Second, sweepInterval(time.Second))
	assert.Equal(t, 6*time.Second, sweepInterval(time.Minute))
	assert.Equal(t, time.Minute, sweepInterval(24*time.Hour))
}

func TestSeenTracker_CloseIsIdempotent(t *testing.T) {
	tracker := NewSeenTracker(time.Minute, 10)
	tracker.Close()
	tracker.Close()
}

func TestSeenTracker_ConcurrentClaimsAdmitOne(t *testing.T) {
	tracker, _ := newTestTracker(t, time.Hour, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for range 20 {
		wg.Go(func() {
			if tracker.Claim("same-id") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
}
