package scoresync

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mcdev12/scorepad/go/internal/models"
)

// Phase is the per-session lifecycle of the coordinator.
type Phase string

const (
	PhaseUninitialized Phase = "UNINITIALIZED"
	PhaseLoading       Phase = "LOADING"
	PhaseActive        Phase = "ACTIVE"
	PhaseFinalized     Phase = "FINALIZED"
)

// ErrNotActive is returned for mutations attempted outside the ACTIVE phase.
var ErrNotActive = errors.New("session is not active")

// ScoreService defines what the coordinator needs from the authoritative
// service. Every call is a network round-trip and returns canonical state;
// local state stays provisional until one of these confirms it.
type ScoreService interface {
	GetActiveSession(ctx context.Context, code string) (*models.Session, error)
	CreateScoreDelta(ctx context.Context, sessionID, playerID uuid.UUID, delta int) ([]models.PlayerStat, error)
	SetOrder(ctx context.Context, sessionID uuid.UUID, order []uuid.UUID) ([]models.PlayerStat, error)
	SetDealer(ctx context.Context, sessionID, playerID uuid.UUID) (*models.GameState, error)
	Finalize(ctx context.Context, sessionID uuid.UUID) (*models.FinalizeResult, error)
}

// isRejected distinguishes an active service refusal (roll everything back,
// not retryable) from a transient transport failure (roll back state but
// leave the tally for a retry at a higher layer).
func isRejected(err error) bool {
	var re interface{ Rejected() bool }
	return errors.As(err, &re) && re.Rejected()
}
