package scoresync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/scorepad/go/internal/scorestate"
)

// OrderReconciler keeps player order convergent across clients: a reorder
// proposal goes to the service and the local order is only ever changed by
// the authoritative result. Two clients dragging concurrently still end up
// with the same order, at the cost of one round-trip of latency.
type OrderReconciler struct {
	svc   ScoreService
	store *scorestate.Store
}

func NewOrderReconciler(svc ScoreService, store *scorestate.Store) *OrderReconciler {
	return &OrderReconciler{svc: svc, store: store}
}

// ProposeOrder sends the new order to the service. It deliberately leaves
// the local order untouched; the confirmed order arrives via broadcast.
func (r *OrderReconciler) ProposeOrder(ctx context.Context, sessionID uuid.UUID, order []uuid.UUID) error {
	if _, err := r.svc.SetOrder(ctx, sessionID, order); err != nil {
		return fmt.Errorf("propose order: %w", err)
	}
	return nil
}

// OnAuthoritativeOrder is the only path that mutates the store's order.
func (r *OrderReconciler) OnAuthoritativeOrder(order []uuid.UUID) error {
	return r.store.Dispatch(scorestate.OrderSet{Order: order})
}
