package tally

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultWindow is how long a tally survives without a new bump.
const DefaultWindow = 3 * time.Second

// Tally is the transient running delta shown next to a player's score.
// It is a rate of recent change, not a value: it is allowed to disagree
// with the authoritative score (e.g. right after a reload) and simply
// starts fresh in that case.
type Tally struct {
	PlayerID      uuid.UUID `json:"player_id"`
	RunningDelta  int       `json:"running_delta"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

type entry struct {
	tally Tally
	timer clockwork.Timer
	done  chan struct{}
}

// Aggregator accumulates per-player deltas and expires them after a fixed
// quiet period. Timer lifecycle lives entirely behind Bump/expire so no
// overlapping closure can corrupt it.
type Aggregator struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	window   time.Duration
	onChange func(uuid.UUID, *Tally)
	entries  map[uuid.UUID]*entry
}

// NewAggregator creates an aggregator. onChange fires after every bump and
// on expiry (with a nil tally); it may be nil.
func NewAggregator(clock clockwork.Clock, window time.Duration, onChange func(uuid.UUID, *Tally)) *Aggregator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Aggregator{
		clock:    clock,
		window:   window,
		onChange: onChange,
		entries:  make(map[uuid.UUID]*entry),
	}
}

// Bump adds delta to the player's running tally, creating it if needed,
// and restarts the inactivity timer.
func (a *Aggregator) Bump(playerID uuid.UUID, delta int) {
	a.mu.Lock()
	now := a.clock.Now()

	e, ok := a.entries[playerID]
	if ok {
		e.tally.RunningDelta += delta
		e.tally.LastUpdatedAt = now
		// If the timer already fired, the waiter re-checks LastUpdatedAt
		// under the lock and re-arms instead of expiring.
		e.timer.Stop()
		e.timer.Reset(a.window)
	} else {
		e = &entry{
			tally: Tally{PlayerID: playerID, RunningDelta: delta, LastUpdatedAt: now},
			timer: a.clock.NewTimer(a.window),
			done:  make(chan struct{}),
		}
		a.entries[playerID] = e
		go a.wait(playerID, e)
	}

	t := e.tally
	a.mu.Unlock()

	if a.onChange != nil {
		a.onChange(playerID, &t)
	}
}

// Get returns a copy of the player's current tally, or nil if none.
func (a *Aggregator) Get(playerID uuid.UUID) *Tally {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[playerID]
	if !ok {
		return nil
	}
	t := e.tally
	return &t
}

// Snapshot returns copies of all live tallies.
func (a *Aggregator) Snapshot() []Tally {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Tally, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.tally)
	}
	return out
}

// Reset drops every tally without firing onChange. Called when the session
// is reloaded and the local overlay no longer means anything.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, e := range a.entries {
		e.timer.Stop()
		close(e.done)
	}
	a.entries = make(map[uuid.UUID]*entry)
}

func (a *Aggregator) wait(playerID uuid.UUID, e *entry) {
	for {
		select {
		case <-e.timer.Chan():
			if a.expire(playerID, e) {
				return
			}
		case <-e.done:
			return
		}
	}
}

// expire removes the tally if its quiet period really elapsed. A bump can
// land between the timer firing and the lock being taken; in that case the
// timer is re-armed for the remainder and the tally survives.
func (a *Aggregator) expire(playerID uuid.UUID, e *entry) bool {
	a.mu.Lock()
	if a.entries[playerID] != e {
		// Reset happened while the timer was in flight.
		a.mu.Unlock()
		return true
	}

	idle := a.clock.Now().Sub(e.tally.LastUpdatedAt)
	if idle < a.window {
		e.timer.Reset(a.window - idle)
		a.mu.Unlock()
		return false
	}

	delete(a.entries, playerID)
	a.mu.Unlock()

	if a.onChange != nil {
		a.onChange(playerID, nil)
	}
	return true
}
