package scorebus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/scorepad/go/internal/models"
)

func TestParsePayload_ScoreChanged(t *testing.T) {
	sessionID := uuid.New()
	playerID := uuid.New()

	env, err := NewEnvelope(sessionID, EventTypeScoreChanged, ScoreChangedPayload{
		PlayerID: playerID,
		Delta:    5,
		Stats:    []models.PlayerStat{{PlayerID: playerID, DisplayName: "Ana", Score: 5}},
	}, time.Now())
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}

	payload, err := ParsePayload(env)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	p, ok := payload.(ScoreChangedPayload)
	if !ok {
		t.Fatalf("expected ScoreChangedPayload, got %T", payload)
	}
	if p.PlayerID != playerID || p.Delta != 5 || len(p.Stats) != 1 {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestParsePayload_UnknownTypeRejected(t *testing.T) {
	env := &Envelope{
		ID:        uuid.New().String(),
		SessionID: uuid.New(),
		Type:      "cards-shuffled",
		Data:      json.RawMessage(`{}`),
	}
	if _, err := ParsePayload(env); err == nil {
		t.Fatalf("expected error for unknown event type")
	}
}

func TestParsePayload_MalformedPayloadRejected(t *testing.T) {
	cases := []struct {
		name string
		typ  EventType
		data string
	}{
		{"score-changed bad json", EventTypeScoreChanged, `{"player_id": 12}`},
		{"score-changed missing player", EventTypeScoreChanged, `{"delta": 1, "stats": []}`},
		{"order-changed empty order", EventTypeOrderChanged, `{"order": [], "stats": []}`},
		{"dealer-changed missing dealer", EventTypeDealerChanged, `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := &Envelope{
				ID:        uuid.New().String(),
				SessionID: uuid.New(),
				Type:      tc.typ,
				Data:      json.RawMessage(tc.data),
			}
			if _, err := ParsePayload(env); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestEnvelope_JSONRoundTrip(t *testing.T) {
	env, err := NewEnvelope(uuid.New(), EventTypeGameFinalized, GameFinalizedPayload{
		Game: models.GameState{ID: uuid.New(), Finalized: true},
	}, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ID != env.ID || decoded.SessionID != env.SessionID || decoded.Type != env.Type {
		t.Fatalf("envelope mangled in transit: %+v vs %+v", decoded, env)
	}
	if _, err := ParsePayload(&decoded); err != nil {
		t.Fatalf("ParsePayload after round trip: %v", err)
	}
}
