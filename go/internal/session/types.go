package session

import (
	"errors"

	"github.com/google/uuid"

	"github.com/mcdev12/scorepad/go/internal/models"
)

// Rejection errors: the request itself is invalid and retrying it will
// never succeed. The HTTP layer maps these to 4xx.
var (
	ErrSessionFinalized   = errors.New("session already finalized")
	ErrPlayerNotInSession = errors.New("player does not belong to session")
	ErrInvalidOrder       = errors.New("order must be a permutation of session players")
	ErrSessionNotFound    = errors.New("session not found")
	ErrValidation         = errors.New("validation failed")
)

// CreateSessionRequest creates a new scoring session
type CreateSessionRequest struct {
	WinCondition models.WinCondition `json:"win_condition"`
}

// AddPlayerRequest registers a player in a session
type AddPlayerRequest struct {
	DisplayName string `json:"display_name"`
}

// ScoreDeltaRequest applies a signed delta to a player's score
type ScoreDeltaRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
	Delta    int       `json:"delta"`
}

// SetOrderRequest replaces the player ordering
type SetOrderRequest struct {
	Order []uuid.UUID `json:"order"`
}

// SetDealerRequest assigns the dealer
type SetDealerRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}
