package scoresync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/scorepad/go/internal/scorestate"
)

// DealerRotationManager advances the dealer pointer cyclically over the
// authoritative order. Like order changes, the new dealer is proposed to
// the service and only applied locally once confirmed, so two clients
// racing to "next dealer" converge on whatever the service accepted.
type DealerRotationManager struct {
	svc   ScoreService
	store *scorestate.Store
}

func NewDealerRotationManager(svc ScoreService, store *scorestate.Store) *DealerRotationManager {
	return &DealerRotationManager{svc: svc, store: store}
}

// NextDealer returns the player after current in the cyclic order, or the
// first player when there is no current dealer. ok is false for an empty
// order: a game with zero players cannot have a dealer.
func NextDealer(order []uuid.UUID, current *uuid.UUID) (uuid.UUID, bool) {
	if len(order) == 0 {
		return uuid.Nil, false
	}
	if current == nil {
		return order[0], true
	}
	for i, id := range order {
		if id == *current {
			return order[(i+1)%len(order)], true
		}
	}
	// Current dealer fell out of the order; start over.
	return order[0], true
}

// CycleDealer proposes the next dealer to the service. No-op on an empty
// order; no optimistic local apply.
func (d *DealerRotationManager) CycleDealer(ctx context.Context, sessionID uuid.UUID) error {
	st := d.store.State()
	next, ok := NextDealer(st.Game.Order, st.Game.DealerID)
	if !ok {
		return nil
	}
	if _, err := d.svc.SetDealer(ctx, sessionID, next); err != nil {
		return fmt.Errorf("cycle dealer: %w", err)
	}
	return nil
}
