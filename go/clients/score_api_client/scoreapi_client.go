package score_api_client

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/scorepad/go/clients"
	"github.com/mcdev12/scorepad/go/internal/models"
)

// ScoreApiClient talks to the session API over JSON. It satisfies the sync
// coordinator's service interface; rejection semantics come from
// clients.APIError.
type ScoreApiClient struct {
	*clients.BaseClient
}

func NewScoreApiClient(baseURL string) *ScoreApiClient {
	client := &ScoreApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader("Content-Type", "application/json")

	return client
}

type CreateSessionRequest struct {
	WinCondition models.WinCondition `json:"win_condition"`
}

type AddPlayerRequest struct {
	DisplayName string `json:"display_name"`
}

type ScoreDeltaRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
	Delta    int       `json:"delta"`
}

type SetOrderRequest struct {
	Order []uuid.UUID `json:"order"`
}

type SetDealerRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

type StatsResponse struct {
	Stats []models.PlayerStat `json:"stats"`
}

// CreateSession starts a new session with the given win condition.
func (c *ScoreApiClient) CreateSession(ctx context.Context, cond models.WinCondition) (*models.Session, error) {
	var sess models.Session
	if err := c.PostJSON(ctx, SessionsEndpoint, CreateSessionRequest{WinCondition: cond}, &sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &sess, nil
}

// AddPlayer registers a player in the session.
func (c *ScoreApiClient) AddPlayer(ctx context.Context, sessionID uuid.UUID, displayName string) (*models.PlayerStat, error) {
	endpoint := fmt.Sprintf(SessionPlayersEndpoint, sessionID)
	var stat models.PlayerStat
	if err := c.PostJSON(ctx, endpoint, AddPlayerRequest{DisplayName: displayName}, &stat); err != nil {
		return nil, fmt.Errorf("failed to add player: %w", err)
	}
	return &stat, nil
}

// GetActiveSession fetches the full session for a join code.
func (c *ScoreApiClient) GetActiveSession(ctx context.Context, code string) (*models.Session, error) {
	endpoint := fmt.Sprintf(SessionByCodeEndpoint, code)
	var sess models.Session
	if err := c.GetJSON(ctx, endpoint, &sess); err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &sess, nil
}

// CreateScoreDelta submits a signed score delta and returns the canonical
// stat list after the mutation.
func (c *ScoreApiClient) CreateScoreDelta(ctx context.Context, sessionID uuid.UUID, playerID uuid.UUID, delta int) ([]models.PlayerStat, error) {
	endpoint := fmt.Sprintf(SessionScoresEndpoint, sessionID)
	var resp StatsResponse
	if err := c.PostJSON(ctx, endpoint, ScoreDeltaRequest{PlayerID: playerID, Delta: delta}, &resp); err != nil {
		return nil, fmt.Errorf("failed to create score delta: %w", err)
	}
	return resp.Stats, nil
}

// SetOrder proposes a new player order.
func (c *ScoreApiClient) SetOrder(ctx context.Context, sessionID uuid.UUID, order []uuid.UUID) ([]models.PlayerStat, error) {
	endpoint := fmt.Sprintf(SessionOrderEndpoint, sessionID)
	var resp StatsResponse
	if err := c.PostJSON(ctx, endpoint, SetOrderRequest{Order: order}, &resp); err != nil {
		return nil, fmt.Errorf("failed to set order: %w", err)
	}
	return resp.Stats, nil
}

// SetDealer proposes a new dealer.
func (c *ScoreApiClient) SetDealer(ctx context.Context, sessionID uuid.UUID, playerID uuid.UUID) (*models.GameState, error) {
	endpoint := fmt.Sprintf(SessionDealerEndpoint, sessionID)
	var game models.GameState
	if err := c.PostJSON(ctx, endpoint, SetDealerRequest{PlayerID: playerID}, &game); err != nil {
		return nil, fmt.Errorf("failed to set dealer: %w", err)
	}
	return &game, nil
}

// Finalize ends the game and returns the frozen result.
func (c *ScoreApiClient) Finalize(ctx context.Context, sessionID uuid.UUID) (*models.FinalizeResult, error) {
	endpoint := fmt.Sprintf(SessionFinalizeEndpoint, sessionID)
	var res models.FinalizeResult
	if err := c.PostJSON(ctx, endpoint, nil, &res); err != nil {
		return nil, fmt.Errorf("failed to finalize session: %w", err)
	}
	return &res, nil
}
