package pending

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultTTL bounds how long an unmatched entry survives. A request whose
// response or broadcast is lost must not pin memory forever.
const DefaultTTL = 10 * time.Second

// Key derives the identity used to recognize our own mutation when the
// broadcast channel echoes it back. It is player + signed delta, not a
// server-issued correlation id: two clients sending an identical delta for
// the same player inside the window are indistinguishable from an echo.
// That is a documented limitation of the protocol, not something this
// package should try to out-smart.
func Key(playerID uuid.UUID, delta int) string {
	return fmt.Sprintf("%s%+d", playerID, delta)
}

// Tracker records in-flight locally-originated mutations so their echoes
// are not re-applied as remote changes.
type Tracker struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	ttl     time.Duration
	entries map[string][]time.Time
}

// NewTracker creates a tracker with the given entry TTL.
func NewTracker(clock clockwork.Clock, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string][]time.Time),
	}
}

// Record notes one in-flight mutation. Two rapid identical deltas create
// two entries, so each is reconciled separately.
func (t *Tracker) Record(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked()
	t.entries[key] = append(t.entries[key], t.clock.Now())
}

// Has reports whether at least one live entry exists for the key.
func (t *Tracker) Has(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked()
	return len(t.entries[key]) > 0
}

// Consume removes exactly one (the oldest) entry for the key and reports
// whether one existed.
func (t *Tracker) Consume(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked()
	times := t.entries[key]
	if len(times) == 0 {
		return false
	}
	if len(times) == 1 {
		delete(t.entries, key)
	} else {
		t.entries[key] = times[1:]
	}
	return true
}

// ConsumeMatching removes exactly one entry among keys accepted by the
// predicate, oldest first, and returns the consumed key.
func (t *Tracker) ConsumeMatching(pred func(key string) bool) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked()

	var oldestKey string
	var oldest time.Time
	for key, times := range t.entries {
		if !pred(key) || len(times) == 0 {
			continue
		}
		if oldestKey == "" || times[0].Before(oldest) {
			oldestKey = key
			oldest = times[0]
		}
	}
	if oldestKey == "" {
		return "", false
	}

	times := t.entries[oldestKey]
	if len(times) == 1 {
		delete(t.entries, oldestKey)
	} else {
		t.entries[oldestKey] = times[1:]
	}
	return oldestKey, true
}

// Len returns the number of live entries across all keys.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked()
	n := 0
	for _, times := range t.entries {
		n += len(times)
	}
	return n
}

// Reset drops everything, e.g. on a full session reload.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string][]time.Time)
}

// pruneLocked drops entries older than the TTL. Lazy pruning on every call
// keeps growth bounded without a background goroutine.
func (t *Tracker) pruneLocked() {
	cutoff := t.clock.Now().Add(-t.ttl)
	for key, times := range t.entries {
		live := times[:0]
		for _, at := range times {
			if at.After(cutoff) {
				live = append(live, at)
			}
		}
		if len(live) == 0 {
			delete(t.entries, key)
		} else {
			t.entries[key] = live
		}
	}
}
