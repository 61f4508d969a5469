package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/scorepad/go/internal/models"
	"github.com/mcdev12/scorepad/go/internal/scorebus"
	"github.com/mcdev12/scorepad/go/internal/session/db"
	"github.com/mcdev12/scorepad/go/internal/sqlutil"
	"github.com/mcdev12/scorepad/go/internal/winner"
)

// Repository implements session data access operations. Every mutation
// writes its broadcast event to the outbox inside the same transaction, so
// a committed change always reaches the event stream eventually.
type Repository struct {
	database *sql.DB
	queries  *db.Queries
}

// NewRepository creates a new session repository
func NewRepository(database *sql.DB) *Repository {
	return &Repository{
		database: database,
		queries:  db.New(database),
	}
}

// CreateSession creates a new session
func (r *Repository) CreateSession(ctx context.Context, code string, cond models.WinCondition) (*models.Session, error) {
	sess, err := r.queries.CreateSession(ctx, db.CreateSessionParams{
		ID:               uuid.New(),
		Code:             code,
		WinConditionType: string(cond.Type),
		WinThreshold:     int32(cond.Threshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return r.dbSessionToModel(sess, nil), nil
}

// GetSessionByCode retrieves the most recent session for a join code.
func (r *Repository) GetSessionByCode(ctx context.Context, code string) (*models.Session, error) {
	sess, err := r.queries.GetSessionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session by code: %w", err)
	}

	players, err := r.queries.ListPlayersBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session players: %w", err)
	}

	return r.dbSessionToModel(sess, players), nil
}

// GetSession retrieves a session by ID
func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, err := r.queries.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	players, err := r.queries.ListPlayersBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list session players: %w", err)
	}

	return r.dbSessionToModel(sess, players), nil
}

// AddPlayer appends a player at the end of the current order.
func (r *Repository) AddPlayer(ctx context.Context, sessionID uuid.UUID, displayName string) (*models.PlayerStat, error) {
	var stat models.PlayerStat
	err := sqlutil.Run(ctx, r.database, r.txQueries, func(q *db.Queries) error {
		sess, err := q.GetSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to get session: %w", err)
		}
		if sess.Finalized {
			return ErrSessionFinalized
		}

		count, err := q.CountPlayersBySession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to count players: %w", err)
		}

		player, err := q.CreatePlayer(ctx, db.CreatePlayerParams{
			ID:          uuid.New(),
			SessionID:   sessionID,
			DisplayName: displayName,
			Position:    int32(count),
		})
		if err != nil {
			return fmt.Errorf("failed to create player: %w", err)
		}

		stat = dbPlayerToStat(player)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

// ApplyScoreDelta mutates a player's score and enqueues the score-changed
// event atomically.
func (r *Repository) ApplyScoreDelta(ctx context.Context, sessionID, playerID uuid.UUID, delta int) ([]models.PlayerStat, error) {
	var stats []models.PlayerStat
	err := sqlutil.Run(ctx, r.database, r.txQueries, func(q *db.Queries) error {
		sess, err := q.GetSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to get session: %w", err)
		}
		if sess.Finalized {
			return ErrSessionFinalized
		}

		player, err := q.UpdatePlayerScore(ctx, db.UpdatePlayerScoreParams{ID: playerID, Delta: int32(delta)})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrPlayerNotInSession
			}
			return fmt.Errorf("failed to update player score: %w", err)
		}
		if player.SessionID != sessionID {
			return ErrPlayerNotInSession
		}

		players, err := q.ListPlayersBySession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to list session players: %w", err)
		}
		stats = dbPlayersToStats(players)

		return insertOutbox(ctx, q, sessionID, scorebus.EventTypeScoreChanged, scorebus.ScoreChangedPayload{
			PlayerID: playerID,
			Delta:    delta,
			Stats:    stats,
		})
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// SetOrder replaces the player ordering. The new order must be a
// permutation of the session's players.
func (r *Repository) SetOrder(ctx context.Context, sessionID uuid.UUID, order []uuid.UUID) ([]models.PlayerStat, error) {
	var stats []models.PlayerStat
	err := sqlutil.Run(ctx, r.database, r.txQueries, func(q *db.Queries) error {
		sess, err := q.GetSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to get session: %w", err)
		}
		if sess.Finalized {
			return ErrSessionFinalized
		}

		players, err := q.ListPlayersBySession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to list session players: %w", err)
		}

		oldOrder := make([]uuid.UUID, len(players))
		for i, p := range players {
			oldOrder[i] = p.ID
		}
		if !isPermutation(order, oldOrder) {
			return ErrInvalidOrder
		}

		for i, id := range order {
			if err := q.UpdatePlayerPosition(ctx, db.UpdatePlayerPositionParams{ID: id, Position: int32(i)}); err != nil {
				return fmt.Errorf("failed to update player position: %w", err)
			}
		}

		players, err = q.ListPlayersBySession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to list session players: %w", err)
		}
		stats = dbPlayersToStats(players)

		return insertOutbox(ctx, q, sessionID, scorebus.EventTypeOrderChanged, scorebus.OrderChangedPayload{
			Order:         order,
			MovedPlayerID: movedPlayer(oldOrder, order),
			Stats:         stats,
		})
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// SetDealer assigns the dealer and enqueues the dealer-changed event.
func (r *Repository) SetDealer(ctx context.Context, sessionID, playerID uuid.UUID) (*models.GameState, error) {
	var game *models.GameState
	err := sqlutil.Run(ctx, r.database, r.txQueries, func(q *db.Queries) error {
		sess, err := q.GetSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to get session: %w", err)
		}
		if sess.Finalized {
			return ErrSessionFinalized
		}

		players, err := q.ListPlayersBySession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to list session players: %w", err)
		}
		found := false
		for _, p := range players {
			if p.ID == playerID {
				found = true
				break
			}
		}
		if !found {
			return ErrPlayerNotInSession
		}

		sess, err = q.SetSessionDealer(ctx, db.SetSessionDealerParams{
			ID:       sessionID,
			DealerID: sqlutil.ToNullUUID(&playerID),
		})
		if err != nil {
			return fmt.Errorf("failed to set dealer: %w", err)
		}

		m := r.dbSessionToModel(sess, players)
		game = &m.Game

		return insertOutbox(ctx, q, sessionID, scorebus.EventTypeDealerChanged, scorebus.DealerChangedPayload{
			DealerID: playerID,
		})
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

// Finalize derives the winner from the current stats, freezes it, and
// enqueues the game-finalized event. Finalizing twice is a rejection.
func (r *Repository) Finalize(ctx context.Context, sessionID uuid.UUID) (*models.FinalizeResult, error) {
	var result *models.FinalizeResult
	err := sqlutil.Run(ctx, r.database, r.txQueries, func(q *db.Queries) error {
		sess, err := q.GetSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to get session: %w", err)
		}
		if sess.Finalized {
			return ErrSessionFinalized
		}

		players, err := q.ListPlayersBySession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to list session players: %w", err)
		}
		stats := dbPlayersToStats(players)

		cond := models.WinCondition{
			Type:      models.WinConditionType(sess.WinConditionType),
			Threshold: int(sess.WinThreshold),
		}
		w, err := winner.Evaluate(stats, cond)
		if err != nil {
			return fmt.Errorf("failed to evaluate winner: %w", err)
		}

		var winnerJSON pqtype.NullRawMessage
		if w != nil {
			raw, err := json.Marshal(w)
			if err != nil {
				return fmt.Errorf("failed to marshal winner: %w", err)
			}
			winnerJSON = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
		}

		sess, err = q.FinalizeSession(ctx, db.FinalizeSessionParams{ID: sessionID, Winner: winnerJSON})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Lost the race to another finalize.
				return ErrSessionFinalized
			}
			return fmt.Errorf("failed to finalize session: %w", err)
		}

		m := r.dbSessionToModel(sess, players)
		result = &models.FinalizeResult{Winner: w, Game: m.Game}

		return insertOutbox(ctx, q, sessionID, scorebus.EventTypeGameFinalized, scorebus.GameFinalizedPayload{
			Winner: w,
			Game:   m.Game,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Repository) txQueries(tx *sql.Tx) *db.Queries {
	return r.queries.WithTx(tx)
}

func insertOutbox(ctx context.Context, q *db.Queries, sessionID uuid.UUID, eventType scorebus.EventType, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	if err := q.InsertOutboxEvent(ctx, db.InsertOutboxEventParams{
		ID:        uuid.New(),
		SessionID: sessionID,
		EventType: string(eventType),
		Payload:   raw,
	}); err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", eventType, err)
	}
	return nil
}

// isPermutation reports whether got contains exactly the same IDs as want.
func isPermutation(got, want []uuid.UUID) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[uuid.UUID]bool, len(want))
	for _, id := range want {
		seen[id] = true
	}
	for _, id := range got {
		if !seen[id] {
			return false
		}
		delete(seen, id)
	}
	return len(seen) == 0
}

// movedPlayer picks the player that shifted the furthest between the two
// orderings, as a highlight hint for clients. Nil when nothing moved.
func movedPlayer(oldOrder, newOrder []uuid.UUID) *uuid.UUID {
	oldIdx := make(map[uuid.UUID]int, len(oldOrder))
	for i, id := range oldOrder {
		oldIdx[id] = i
	}

	var moved *uuid.UUID
	maxShift := 0
	for i := range newOrder {
		id := newOrder[i]
		shift := i - oldIdx[id]
		if shift < 0 {
			shift = -shift
		}
		if shift > maxShift {
			maxShift = shift
			moved = &newOrder[i]
		}
	}
	return moved
}

// dbSessionToModel converts a database session to domain model
func (r *Repository) dbSessionToModel(sess db.Session, players []db.Player) *models.Session {
	game := models.GameState{
		ID:   sess.ID,
		Code: sess.Code,
		WinCondition: models.WinCondition{
			Type:      models.WinConditionType(sess.WinConditionType),
			Threshold: int(sess.WinThreshold),
		},
		Finalized: sess.Finalized,
		DealerID:  sqlutil.FromNullUUID(sess.DealerID),
		CreatedAt: sess.CreatedAt,
	}
	game.FinalizedAt = sqlutil.FromSqlTime(sess.FinalizedAt)
	for _, p := range players {
		game.Order = append(game.Order, p.ID)
	}

	frozen, err := FrozenWinner(sess.Winner)
	if err != nil {
		frozen = nil
	}

	return &models.Session{
		Game:   game,
		Stats:  dbPlayersToStats(players),
		Winner: frozen,
	}
}

func dbPlayerToStat(p db.Player) models.PlayerStat {
	return models.PlayerStat{
		PlayerID:    p.ID,
		DisplayName: p.DisplayName,
		Score:       int(p.Score),
	}
}

func dbPlayersToStats(players []db.Player) []models.PlayerStat {
	stats := make([]models.PlayerStat, len(players))
	for i, p := range players {
		stats[i] = dbPlayerToStat(p)
	}
	return stats
}

// FrozenWinner decodes the stored winner column, if any.
func FrozenWinner(raw pqtype.NullRawMessage) (*models.Winner, error) {
	if !raw.Valid {
		return nil, nil
	}
	var w models.Winner
	if err := json.Unmarshal(raw.RawMessage, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal winner: %w", err)
	}
	return &w, nil
}
