package tally

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var playerA = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000001")
var playerB = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")

type change struct {
	playerID uuid.UUID
	tally    *Tally
}

func newTestAggregator(t *testing.T) (*Aggregator, *clockwork.FakeClock, chan change) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	changes := make(chan change, 32)
	agg := NewAggregator(clock, 3*time.Second, func(id uuid.UUID, ta *Tally) {
		changes <- change{playerID: id, tally: ta}
	})
	return agg, clock, changes
}

func waitExpiry(t *testing.T, changes chan change, playerID uuid.UUID) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.playerID == playerID && c.tally == nil {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for tally expiry of %s", playerID)
		}
	}
}

func TestBump_Accumulates(t *testing.T) {
	agg, _, _ := newTestAggregator(t)

	agg.Bump(playerA, 5)
	agg.Bump(playerA, 3)
	agg.Bump(playerA, -2)

	got := agg.Get(playerA)
	if got == nil || got.RunningDelta != 6 {
		t.Fatalf("expected running delta 6, got %+v", got)
	}
}

func TestBump_RoundTripToZeroKeepsTallyAlive(t *testing.T) {
	agg, _, _ := newTestAggregator(t)

	agg.Bump(playerA, 7)
	agg.Bump(playerA, -7)

	got := agg.Get(playerA)
	if got == nil {
		t.Fatalf("expected a live tally at 0 before expiry")
	}
	if got.RunningDelta != 0 {
		t.Fatalf("expected running delta 0, got %d", got.RunningDelta)
	}
}

func TestTally_ExpiresAfterQuietPeriod(t *testing.T) {
	agg, clock, changes := newTestAggregator(t)

	agg.Bump(playerA, 5)
	agg.Bump(playerA, 5)

	clock.Advance(3 * time.Second)
	waitExpiry(t, changes, playerA)

	if got := agg.Get(playerA); got != nil {
		t.Fatalf("expected tally gone after quiet period, got %+v", got)
	}
}

func TestBump_RestartsQuietPeriod(t *testing.T) {
	agg, clock, changes := newTestAggregator(t)

	agg.Bump(playerA, 1)
	clock.Advance(2 * time.Second)

	agg.Bump(playerA, 1)
	clock.Advance(2 * time.Second)

	// 4s since the first bump but only 2s since the last; still alive.
	if got := agg.Get(playerA); got == nil || got.RunningDelta != 2 {
		t.Fatalf("expected live tally of 2, got %+v", got)
	}

	clock.Advance(time.Second)
	waitExpiry(t, changes, playerA)

	if got := agg.Get(playerA); got != nil {
		t.Fatalf("expected expiry 3s after last bump, got %+v", got)
	}
}

func TestExpiry_IsPerPlayer(t *testing.T) {
	agg, clock, changes := newTestAggregator(t)

	agg.Bump(playerA, 4)
	clock.Advance(2 * time.Second)
	agg.Bump(playerB, 9)
	clock.Advance(time.Second)
	waitExpiry(t, changes, playerA)

	if got := agg.Get(playerA); got != nil {
		t.Fatalf("expected player A expired, got %+v", got)
	}
	if got := agg.Get(playerB); got == nil || got.RunningDelta != 9 {
		t.Fatalf("expected player B alive at 9, got %+v", got)
	}
}

func TestBump_AfterExpiryStartsFresh(t *testing.T) {
	agg, clock, changes := newTestAggregator(t)

	agg.Bump(playerA, 50)
	clock.Advance(3 * time.Second)
	waitExpiry(t, changes, playerA)

	agg.Bump(playerA, 2)
	if got := agg.Get(playerA); got == nil || got.RunningDelta != 2 {
		t.Fatalf("expected fresh tally of 2, got %+v", got)
	}
}

func TestReset_DropsEverything(t *testing.T) {
	agg, _, _ := newTestAggregator(t)

	agg.Bump(playerA, 1)
	agg.Bump(playerB, 2)
	agg.Reset()

	if agg.Get(playerA) != nil || agg.Get(playerB) != nil {
		t.Fatalf("expected no tallies after reset")
	}
	if got := agg.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %d entries", len(got))
	}
}
