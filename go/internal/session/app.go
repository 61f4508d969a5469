package session

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scorepad/go/internal/models"
)

const (
	joinCodeLength  = 6
	joinCodeLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxDisplayNameLength = 64
	maxDeltaMagnitude    = 1000
)

// SessionRepository defines what the app layer needs from the repository
type SessionRepository interface {
	CreateSession(ctx context.Context, code string, cond models.WinCondition) (*models.Session, error)
	GetSessionByCode(ctx context.Context, code string) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	AddPlayer(ctx context.Context, sessionID uuid.UUID, displayName string) (*models.PlayerStat, error)
	ApplyScoreDelta(ctx context.Context, sessionID, playerID uuid.UUID, delta int) ([]models.PlayerStat, error)
	SetOrder(ctx context.Context, sessionID uuid.UUID, order []uuid.UUID) ([]models.PlayerStat, error)
	SetDealer(ctx context.Context, sessionID, playerID uuid.UUID) (*models.GameState, error)
	Finalize(ctx context.Context, sessionID uuid.UUID) (*models.FinalizeResult, error)
}

// App handles session business logic
type App struct {
	repo SessionRepository
}

// NewApp creates a new session App
func NewApp(repo SessionRepository) *App {
	return &App{
		repo: repo,
	}
}

// CreateSession creates a new session with a fresh join code.
func (a *App) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	if err := validateWinCondition(req.WinCondition); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	code := generateJoinCode()
	sess, err := a.repo.CreateSession(ctx, code, req.WinCondition)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("session_id", sess.Game.ID.String()).
		Str("code", code).
		Str("win_condition", string(req.WinCondition.Type)).
		Int("threshold", req.WinCondition.Threshold).
		Msg("created session")
	return sess, nil
}

// GetSessionByCode retrieves the session for a join code.
func (a *App) GetSessionByCode(ctx context.Context, code string) (*models.Session, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrValidation)
	}
	return a.repo.GetSessionByCode(ctx, code)
}

// AddPlayer registers a player in a session.
func (a *App) AddPlayer(ctx context.Context, sessionID uuid.UUID, req AddPlayerRequest) (*models.PlayerStat, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, fmt.Errorf("%w: display_name is required", ErrValidation)
	}
	if len(name) > maxDisplayNameLength {
		return nil, fmt.Errorf("%w: display_name exceeds %d characters", ErrValidation, maxDisplayNameLength)
	}

	stat, err := a.repo.AddPlayer(ctx, sessionID, name)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("player_id", stat.PlayerID.String()).
		Msg("added player")
	return stat, nil
}

// ApplyScoreDelta applies a signed score delta.
func (a *App) ApplyScoreDelta(ctx context.Context, sessionID uuid.UUID, req ScoreDeltaRequest) ([]models.PlayerStat, error) {
	if req.PlayerID == uuid.Nil {
		return nil, fmt.Errorf("%w: player_id is required", ErrValidation)
	}
	if req.Delta == 0 {
		return nil, fmt.Errorf("%w: delta cannot be zero", ErrValidation)
	}
	if req.Delta > maxDeltaMagnitude || req.Delta < -maxDeltaMagnitude {
		return nil, fmt.Errorf("%w: delta magnitude exceeds %d", ErrValidation, maxDeltaMagnitude)
	}

	return a.repo.ApplyScoreDelta(ctx, sessionID, req.PlayerID, req.Delta)
}

// SetOrder replaces the player ordering.
func (a *App) SetOrder(ctx context.Context, sessionID uuid.UUID, req SetOrderRequest) ([]models.PlayerStat, error) {
	if len(req.Order) == 0 {
		return nil, fmt.Errorf("%w: order is required", ErrValidation)
	}
	return a.repo.SetOrder(ctx, sessionID, req.Order)
}

// SetDealer assigns the dealer.
func (a *App) SetDealer(ctx context.Context, sessionID uuid.UUID, req SetDealerRequest) (*models.GameState, error) {
	if req.PlayerID == uuid.Nil {
		return nil, fmt.Errorf("%w: player_id is required", ErrValidation)
	}
	return a.repo.SetDealer(ctx, sessionID, req.PlayerID)
}

// Finalize ends the game and freezes the winner.
func (a *App) Finalize(ctx context.Context, sessionID uuid.UUID) (*models.FinalizeResult, error) {
	res, err := a.repo.Finalize(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	evt := log.Info().Str("session_id", sessionID.String())
	if res.Winner != nil {
		evt = evt.Str("winner_id", res.Winner.PlayerID.String()).Int("winner_score", res.Winner.Score)
	}
	evt.Msg("finalized session")
	return res, nil
}

func validateWinCondition(cond models.WinCondition) error {
	switch cond.Type {
	case models.WinAtLeast, models.WinAtMost:
	default:
		return fmt.Errorf("invalid win condition type: %s", cond.Type)
	}
	if cond.Threshold <= 0 {
		return fmt.Errorf("win threshold must be positive")
	}
	return nil
}

// generateJoinCode builds a short shareable code. The alphabet skips
// characters that read ambiguously on a phone screen.
func generateJoinCode() string {
	var b strings.Builder
	for i := 0; i < joinCodeLength; i++ {
		b.WriteByte(joinCodeLetters[rand.IntN(len(joinCodeLetters))])
	}
	return b.String()
}
