package scorebus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/scorepad/go/internal/models"
)

// EventType is the closed set of broadcast event types. Anything outside
// this set is rejected at the boundary instead of being passed through.
type EventType string

const (
	EventTypeScoreChanged  EventType = "score-changed"
	EventTypeOrderChanged  EventType = "order-changed"
	EventTypeDealerChanged EventType = "dealer-changed"
	EventTypeGameFinalized EventType = "game-finalized"
)

// Envelope is the wire framing for every broadcast event.
type Envelope struct {
	ID        string          `json:"id"`         // Event UUID
	SessionID uuid.UUID       `json:"session_id"` // Session UUID
	Type      EventType       `json:"type"`       // Event type
	Timestamp time.Time       `json:"timestamp"`  // Event creation time
	Data      json.RawMessage `json:"data"`       // Event-specific payload
}

// ScoreChangedPayload carries one accepted score delta plus the full
// canonical stat list after applying it.
type ScoreChangedPayload struct {
	PlayerID uuid.UUID           `json:"player_id"`
	Delta    int                 `json:"delta"`
	Stats    []models.PlayerStat `json:"stats"`
}

// OrderChangedPayload carries the authoritative player order. MovedPlayerID
// is a hint for a transient highlight only; it has no ordering semantics.
type OrderChangedPayload struct {
	Order         []uuid.UUID         `json:"order"`
	MovedPlayerID *uuid.UUID          `json:"moved_player_id,omitempty"`
	Stats         []models.PlayerStat `json:"stats"`
}

// DealerChangedPayload carries the new dealer.
type DealerChangedPayload struct {
	DealerID uuid.UUID `json:"dealer_id"`
}

// GameFinalizedPayload carries the frozen winner and final game state.
type GameFinalizedPayload struct {
	Winner *models.Winner   `json:"winner,omitempty"`
	Game   models.GameState `json:"game"`
}

// ParsePayload decodes an envelope's data into its typed payload.
// Unknown event types and malformed payloads are errors.
func ParsePayload(env *Envelope) (interface{}, error) {
	switch env.Type {
	case EventTypeScoreChanged:
		var payload ScoreChangedPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal score-changed payload: %w", err)
		}
		if payload.PlayerID == uuid.Nil {
			return nil, fmt.Errorf("score-changed payload missing player_id")
		}
		return payload, nil

	case EventTypeOrderChanged:
		var payload OrderChangedPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal order-changed payload: %w", err)
		}
		if len(payload.Order) == 0 {
			return nil, fmt.Errorf("order-changed payload missing order")
		}
		return payload, nil

	case EventTypeDealerChanged:
		var payload DealerChangedPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal dealer-changed payload: %w", err)
		}
		if payload.DealerID == uuid.Nil {
			return nil, fmt.Errorf("dealer-changed payload missing dealer_id")
		}
		return payload, nil

	case EventTypeGameFinalized:
		var payload GameFinalizedPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal game-finalized payload: %w", err)
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("unknown event type: %s", env.Type)
	}
}

// NewEnvelope wraps a payload for the wire.
func NewEnvelope(sessionID uuid.UUID, eventType EventType, payload interface{}, now time.Time) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: now,
		Data:      data,
	}, nil
}
