package models

import (
	"time"

	"github.com/google/uuid"
)

// WinConditionType defines how a game ends.
type WinConditionType string

const (
	// WinAtLeast: first player to reach or exceed the threshold wins.
	WinAtLeast WinConditionType = "at-least"
	// WinAtMost: reaching the threshold ends the game and the lowest
	// overall score wins ("first to X loses" mode).
	WinAtMost WinConditionType = "at-most"
)

// WinCondition holds the end-of-game rule for a session.
type WinCondition struct {
	Type      WinConditionType `json:"type"`
	Threshold int              `json:"threshold"`
}

// GameState is the canonical state of one score session.
// Order is always a permutation of the player set; Finalized only ever
// transitions false -> true.
type GameState struct {
	ID           uuid.UUID    `json:"id"`
	Code         string       `json:"code"`
	WinCondition WinCondition `json:"win_condition"`
	Finalized    bool         `json:"finalized"`
	DealerID     *uuid.UUID   `json:"dealer_id,omitempty"`
	Order        []uuid.UUID  `json:"order"`
	CreatedAt    time.Time    `json:"created_at"`
	FinalizedAt  *time.Time   `json:"finalized_at,omitempty"`
}

// PlayerStat is one player's authoritative score. Scores are plain
// integers; any bounds enforcement belongs to the service, never here.
type PlayerStat struct {
	PlayerID    uuid.UUID `json:"player_id"`
	DisplayName string    `json:"display_name"`
	Score       int       `json:"score"`
}

// Winner is the result of evaluating stats against the win condition.
// Live games re-derive it constantly; finalize freezes it.
type Winner struct {
	PlayerID uuid.UUID `json:"player_id"`
	Score    int       `json:"score"`
}

// Session bundles a game with its stat list, as returned by the
// authoritative service. Winner is set only for finalized games, where it
// is the frozen result rather than a live derivation.
type Session struct {
	Game   GameState    `json:"game"`
	Stats  []PlayerStat `json:"stats"`
	Winner *Winner      `json:"winner,omitempty"`
}

// FinalizeResult is the authoritative service's response to a finalize
// request.
type FinalizeResult struct {
	Winner *Winner   `json:"winner,omitempty"`
	Game   GameState `json:"game"`
}
