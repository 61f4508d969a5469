package scorestate

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/scorepad/go/internal/models"
)

// ErrInvariantViolation marks events whose contents contradict the known
// player set. The safe recovery is a full session reload, not a patch.
var ErrInvariantViolation = errors.New("state invariant violation")

// Event is the closed set of reductions the store accepts. An event type
// outside this set is a programming error and Apply fails loudly on it;
// silently dropping one would desynchronize clients.
type Event interface {
	isEvent()
}

// SessionLoaded replaces the whole state with an authoritative snapshot.
type SessionLoaded struct {
	Game  models.GameState
	Stats []models.PlayerStat
}

// ScoreDelta shifts exactly one player's score by the signed delta.
// No clamping: the service owns bounds, the client renders what it is given.
type ScoreDelta struct {
	PlayerID uuid.UUID
	Delta    int
}

// StatsSynced replaces the stat values with a canonical list from the
// service, keeping order and dealer untouched. Idempotent by construction.
type StatsSynced struct {
	Stats []models.PlayerStat
}

// OrderSet replaces the player order with an authoritative permutation.
type OrderSet struct {
	Order []uuid.UUID
}

// DealerSet moves the dealer pointer.
type DealerSet struct {
	DealerID uuid.UUID
}

// Finalized marks the game over. Monotonic: there is no event that
// reverts it.
type Finalized struct{}

func (SessionLoaded) isEvent() {}
func (ScoreDelta) isEvent()    {}
func (StatsSynced) isEvent()   {}
func (OrderSet) isEvent()      {}
func (DealerSet) isEvent()     {}
func (Finalized) isEvent()     {}

// State is the local mirror of one session. Values, not pointers: Apply
// never mutates its input, it returns a fresh copy.
type State struct {
	Game   models.GameState
	Stats  []models.PlayerStat
	Loaded bool
}

// Apply reduces one event into a new state. The input state is never
// mutated; every event applies exactly once per call.
func Apply(s State, ev Event) (State, error) {
	switch e := ev.(type) {
	case SessionLoaded:
		next := State{
			Game:   e.Game,
			Stats:  cloneStats(e.Stats),
			Loaded: true,
		}
		next.Game.Order = cloneOrder(e.Game.Order)
		return next, nil

	case ScoreDelta:
		next := clone(s)
		for i := range next.Stats {
			if next.Stats[i].PlayerID == e.PlayerID {
				next.Stats[i].Score += e.Delta
				return next, nil
			}
		}
		return s, fmt.Errorf("%w: score delta for unknown player %s", ErrInvariantViolation, e.PlayerID)

	case StatsSynced:
		next := clone(s)
		next.Stats = cloneStats(e.Stats)
		return next, nil

	case OrderSet:
		if err := validatePermutation(e.Order, s.Stats); err != nil {
			return s, err
		}
		next := clone(s)
		next.Game.Order = cloneOrder(e.Order)
		return next, nil

	case DealerSet:
		if !knownPlayer(e.DealerID, s.Stats) {
			return s, fmt.Errorf("%w: dealer %s is not a session player", ErrInvariantViolation, e.DealerID)
		}
		next := clone(s)
		dealer := e.DealerID
		next.Game.DealerID = &dealer
		return next, nil

	case Finalized:
		next := clone(s)
		next.Game.Finalized = true
		return next, nil

	default:
		return s, fmt.Errorf("unknown state event type %T", ev)
	}
}

func validatePermutation(order []uuid.UUID, stats []models.PlayerStat) error {
	if len(order) != len(stats) {
		return fmt.Errorf("%w: order has %d ids for %d players", ErrInvariantViolation, len(order), len(stats))
	}
	seen := make(map[uuid.UUID]bool, len(order))
	for _, id := range order {
		if seen[id] {
			return fmt.Errorf("%w: duplicate player %s in order", ErrInvariantViolation, id)
		}
		if !knownPlayer(id, stats) {
			return fmt.Errorf("%w: order contains unknown player %s", ErrInvariantViolation, id)
		}
		seen[id] = true
	}
	return nil
}

func knownPlayer(id uuid.UUID, stats []models.PlayerStat) bool {
	for i := range stats {
		if stats[i].PlayerID == id {
			return true
		}
	}
	return false
}

func clone(s State) State {
	next := s
	next.Stats = cloneStats(s.Stats)
	next.Game.Order = cloneOrder(s.Game.Order)
	if s.Game.DealerID != nil {
		dealer := *s.Game.DealerID
		next.Game.DealerID = &dealer
	}
	return next
}

func cloneStats(stats []models.PlayerStat) []models.PlayerStat {
	out := make([]models.PlayerStat, len(stats))
	copy(out, stats)
	return out
}

func cloneOrder(order []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(order))
	copy(out, order)
	return out
}
