package pending

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var playerA = uuid.MustParse("cccccccc-0000-0000-0000-000000000001")
var playerB = uuid.MustParse("cccccccc-0000-0000-0000-000000000002")

func TestKey_EncodesPlayerAndSignedDelta(t *testing.T) {
	plus := Key(playerA, 5)
	minus := Key(playerA, -5)
	if plus == minus {
		t.Fatalf("expected sign to distinguish keys, both %q", plus)
	}
	if Key(playerA, 5) != plus {
		t.Fatalf("key not deterministic")
	}
	if Key(playerB, 5) == plus {
		t.Fatalf("expected player to distinguish keys")
	}
	if !strings.HasPrefix(plus, playerA.String()) {
		t.Fatalf("key %q does not start with player id", plus)
	}
}

func TestConsume_RemovesExactlyOneEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, DefaultTTL)

	// Two rapid identical deltas: each must reconcile separately.
	key := Key(playerA, 10)
	tr.Record(key)
	tr.Record(key)

	if !tr.Consume(key) {
		t.Fatalf("expected first consume to succeed")
	}
	if !tr.Has(key) {
		t.Fatalf("expected one entry to remain")
	}
	if !tr.Consume(key) {
		t.Fatalf("expected second consume to succeed")
	}
	if tr.Consume(key) {
		t.Fatalf("expected third consume to fail")
	}
}

func TestConsume_MissingKey(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock(), DefaultTTL)
	if tr.Consume(Key(playerA, 1)) {
		t.Fatalf("expected consume of unrecorded key to fail")
	}
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, 10*time.Second)

	key := Key(playerA, 3)
	tr.Record(key)

	clock.Advance(9 * time.Second)
	if !tr.Has(key) {
		t.Fatalf("entry expired early")
	}

	clock.Advance(2 * time.Second)
	if tr.Has(key) {
		t.Fatalf("entry survived past TTL")
	}
	if tr.Len() != 0 {
		t.Fatalf("expected empty tracker, got %d entries", tr.Len())
	}
}

func TestConsumeMatching_TakesOldestFirst(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, DefaultTTL)

	oldKey := Key(playerA, 1)
	tr.Record(oldKey)
	clock.Advance(time.Second)
	newKey := Key(playerB, 1)
	tr.Record(newKey)

	got, ok := tr.ConsumeMatching(func(string) bool { return true })
	if !ok || got != oldKey {
		t.Fatalf("expected oldest key %q, got %q (ok=%v)", oldKey, got, ok)
	}
	if tr.Len() != 1 {
		t.Fatalf("expected one entry left, got %d", tr.Len())
	}
}

func TestReset(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock(), DefaultTTL)
	tr.Record(Key(playerA, 1))
	tr.Record(Key(playerB, 2))

	tr.Reset()
	if tr.Len() != 0 {
		t.Fatalf("expected empty tracker after reset")
	}
}
