package scoresync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scorepad/go/internal/models"
	"github.com/mcdev12/scorepad/go/internal/pending"
	"github.com/mcdev12/scorepad/go/internal/scorebus"
	"github.com/mcdev12/scorepad/go/internal/scorestate"
	"github.com/mcdev12/scorepad/go/internal/tally"
	"github.com/mcdev12/scorepad/go/internal/winner"
)

// seenEventTTL bounds the redelivery-dedup window for broadcast envelopes.
const seenEventTTL = time.Minute

// Config holds coordinator tuning and UI callbacks. Callbacks run on the
// coordinator's calling goroutine and must not call back into it.
type Config struct {
	Clock       clockwork.Clock
	TallyWindow time.Duration
	PendingTTL  time.Duration

	OnState  func(scorestate.State)
	OnWinner func(*models.Winner)
	OnTally  func(uuid.UUID, *tally.Tally)
	// OnMoved receives the order-changed "moved player" hint. Purely a
	// transient highlight; never affects ordering.
	OnMoved func(uuid.UUID)
}

// DefaultConfig returns production defaults with a real clock.
func DefaultConfig() Config {
	return Config{
		Clock:       clockwork.NewRealClock(),
		TallyWindow: tally.DefaultWindow,
		PendingTTL:  pending.DefaultTTL,
	}
}

// Coordinator is the single reconciliation point between local optimistic
// mutations, authoritative responses, and broadcast events from other
// clients. The UI layer consumes this API and carries no reconciliation
// logic of its own.
type Coordinator struct {
	svc     ScoreService
	store   *scorestate.Store
	tallies *tally.Aggregator
	pend    *pending.Tracker
	orders  *OrderReconciler
	dealers *DealerRotationManager
	clock   clockwork.Clock
	cfg     Config

	mu        sync.Mutex
	phase     Phase
	sessionID uuid.UUID
	code      string
	winner    *models.Winner
	seen      map[string]time.Time
}

// NewCoordinator wires the coordinator and the components it owns.
func NewCoordinator(svc ScoreService, cfg Config) *Coordinator {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	store := scorestate.NewStore()
	c := &Coordinator{
		svc:     svc,
		store:   store,
		pend:    pending.NewTracker(cfg.Clock, cfg.PendingTTL),
		orders:  NewOrderReconciler(svc, store),
		dealers: NewDealerRotationManager(svc, store),
		clock:   cfg.Clock,
		cfg:     cfg,
		phase:   PhaseUninitialized,
		seen:    make(map[string]time.Time),
	}
	c.tallies = tally.NewAggregator(cfg.Clock, cfg.TallyWindow, cfg.OnTally)
	return c
}

// Load fetches the session for a join code and transitions
// UNINITIALIZED/LOADING -> ACTIVE (or FINALIZED for a game that already
// ended). A load failure returns to UNINITIALIZED so the caller can retry.
func (c *Coordinator) Load(ctx context.Context, code string) error {
	c.mu.Lock()
	c.phase = PhaseLoading
	c.mu.Unlock()

	sess, err := c.svc.GetActiveSession(ctx, code)
	if err != nil {
		c.mu.Lock()
		c.phase = PhaseUninitialized
		c.mu.Unlock()
		return fmt.Errorf("load session: %w", err)
	}

	// Validate the win condition up front so later recomputes cannot fail.
	w, err := winner.Evaluate(sess.Stats, sess.Game.WinCondition)
	if err != nil {
		c.mu.Lock()
		c.phase = PhaseUninitialized
		c.mu.Unlock()
		return fmt.Errorf("load session: %w", err)
	}
	// A finished game carries its frozen result; that beats a fresh
	// derivation.
	if sess.Game.Finalized && sess.Winner != nil {
		w = sess.Winner
	}

	if err := c.store.Dispatch(scorestate.SessionLoaded{Game: sess.Game, Stats: sess.Stats}); err != nil {
		c.mu.Lock()
		c.phase = PhaseUninitialized
		c.mu.Unlock()
		return fmt.Errorf("load session: %w", err)
	}

	// Local overlays mean nothing against a fresh snapshot.
	c.tallies.Reset()
	c.pend.Reset()

	c.mu.Lock()
	c.sessionID = sess.Game.ID
	c.code = code
	c.winner = w
	if sess.Game.Finalized {
		c.phase = PhaseFinalized
	} else {
		c.phase = PhaseActive
	}
	c.mu.Unlock()

	log.Info().
		Str("session_id", sess.Game.ID.String()).
		Str("code", code).
		Bool("finalized", sess.Game.Finalized).
		Int("players", len(sess.Stats)).
		Msg("session loaded")

	c.notifyState()
	c.notifyWinner(w)
	return nil
}

// UpdateScore applies a signed delta optimistically, records it as pending
// so its broadcast echo is recognized, and sends it to the service. On
// failure the optimistic apply is reversed; the tally bump is only reversed
// when the service actively rejected the mutation, since a transient error
// may still be fulfilled by a retry above us.
func (c *Coordinator) UpdateScore(ctx context.Context, playerID uuid.UUID, delta int) error {
	c.mu.Lock()
	if c.phase != PhaseActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	sessionID := c.sessionID
	c.mu.Unlock()

	key := pending.Key(playerID, delta)
	c.pend.Record(key)
	c.tallies.Bump(playerID, delta)

	if err := c.store.Dispatch(scorestate.ScoreDelta{PlayerID: playerID, Delta: delta}); err != nil {
		c.pend.Consume(key)
		c.tallies.Bump(playerID, -delta)
		return err
	}
	c.notifyState()
	c.recomputeWinner()

	stats, err := c.svc.CreateScoreDelta(ctx, sessionID, playerID, delta)
	if err != nil {
		// Reverse the optimistic apply; the echo will never come.
		if rbErr := c.store.Dispatch(scorestate.ScoreDelta{PlayerID: playerID, Delta: -delta}); rbErr != nil {
			log.Error().Err(rbErr).Str("player_id", playerID.String()).Msg("failed to roll back optimistic score delta")
		}
		c.pend.Consume(key)
		c.notifyState()
		c.recomputeWinner()

		if isRejected(err) {
			c.tallies.Bump(playerID, -delta)
			return fmt.Errorf("score update rejected: %w", err)
		}
		return fmt.Errorf("score update failed: %w", err)
	}

	// Canonical stat list replaces the optimistic guess.
	if err := c.store.Dispatch(scorestate.StatsSynced{Stats: stats}); err != nil {
		return c.reload(ctx, err)
	}
	c.notifyState()
	c.recomputeWinner()
	return nil
}

// ProposeOrder forwards a reorder to the service. The local order stays
// as-is until the order-changed broadcast confirms it.
func (c *Coordinator) ProposeOrder(ctx context.Context, order []uuid.UUID) error {
	c.mu.Lock()
	if c.phase != PhaseActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	sessionID := c.sessionID
	c.mu.Unlock()

	return c.orders.ProposeOrder(ctx, sessionID, order)
}

// CycleDealer proposes the next dealer in rotation. No-op when the session
// has no players.
func (c *Coordinator) CycleDealer(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	sessionID := c.sessionID
	c.mu.Unlock()

	return c.dealers.CycleDealer(ctx, sessionID)
}

// FinalizeGame is never attempted optimistically: finalize is irreversible,
// so local state only changes after the service confirms.
func (c *Coordinator) FinalizeGame(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	sessionID := c.sessionID
	c.mu.Unlock()

	res, err := c.svc.Finalize(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("finalize game: %w", err)
	}

	c.applyFinalized(res.Winner)
	return nil
}

// HandleBroadcast is invoked for every envelope arriving on the broadcast
// channel. Events for other sessions, redeliveries, and malformed payloads
// are logged and dropped; a harmless unexpected message from a peer is
// never fatal.
func (c *Coordinator) HandleBroadcast(ctx context.Context, env *scorebus.Envelope) error {
	c.mu.Lock()
	if c.sessionID == uuid.Nil || env.SessionID != c.sessionID {
		c.mu.Unlock()
		log.Debug().
			Str("event_session", env.SessionID.String()).
			Str("event_type", string(env.Type)).
			Msg("ignoring broadcast for another session")
		return nil
	}
	if c.seenRecentlyLocked(env.ID) {
		c.mu.Unlock()
		log.Debug().Str("event_id", env.ID).Msg("ignoring redelivered broadcast")
		return nil
	}
	finalized := c.phase == PhaseFinalized
	c.mu.Unlock()

	payload, err := scorebus.ParsePayload(env)
	if err != nil {
		log.Warn().Err(err).Str("event_id", env.ID).Msg("dropping malformed broadcast event")
		return nil
	}

	switch p := payload.(type) {
	case scorebus.ScoreChangedPayload:
		// A pending match means this is our own mutation echoed back:
		// apply the canonical numbers but skip the second tally bump.
		own := c.pend.Consume(pending.Key(p.PlayerID, p.Delta))
		if err := c.store.Dispatch(scorestate.StatsSynced{Stats: p.Stats}); err != nil {
			return c.reload(ctx, err)
		}
		if !own {
			c.tallies.Bump(p.PlayerID, p.Delta)
		}
		c.notifyState()
		if !finalized {
			// A finalized game's winner is fixed; stats still update for
			// historical display.
			c.recomputeWinner()
		}

	case scorebus.OrderChangedPayload:
		if len(p.Stats) > 0 {
			if err := c.store.Dispatch(scorestate.StatsSynced{Stats: p.Stats}); err != nil {
				return c.reload(ctx, err)
			}
		}
		if err := c.orders.OnAuthoritativeOrder(p.Order); err != nil {
			return c.reload(ctx, err)
		}
		if p.MovedPlayerID != nil && c.cfg.OnMoved != nil {
			c.cfg.OnMoved(*p.MovedPlayerID)
		}
		c.notifyState()

	case scorebus.DealerChangedPayload:
		if err := c.store.Dispatch(scorestate.DealerSet{DealerID: p.DealerID}); err != nil {
			return c.reload(ctx, err)
		}
		c.notifyState()

	case scorebus.GameFinalizedPayload:
		c.applyFinalized(p.Winner)
	}

	return nil
}

// Phase returns the current lifecycle phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Snapshot returns a copy of the current local state.
func (c *Coordinator) Snapshot() scorestate.State {
	return c.store.State()
}

// Subscribe registers a listener called after every applied state change.
// The returned func removes the subscription.
func (c *Coordinator) Subscribe(fn func(scorestate.State)) func() {
	return c.store.Subscribe(fn)
}

// Winner returns the currently derived (or, once finalized, frozen) winner.
func (c *Coordinator) Winner() *models.Winner {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.winner == nil {
		return nil
	}
	w := *c.winner
	return &w
}

// Tally returns the transient running delta for a player, if any.
func (c *Coordinator) Tally(playerID uuid.UUID) *tally.Tally {
	return c.tallies.Get(playerID)
}

// applyFinalized freezes the winner and makes the phase terminal. Nothing
// transitions out of FINALIZED.
func (c *Coordinator) applyFinalized(w *models.Winner) {
	if err := c.store.Dispatch(scorestate.Finalized{}); err != nil {
		log.Error().Err(err).Msg("failed to apply finalized event")
		return
	}

	c.mu.Lock()
	c.phase = PhaseFinalized
	c.winner = w
	c.mu.Unlock()

	log.Info().Msg("game finalized")
	c.notifyState()
	c.notifyWinner(w)
}

// reload recovers from an invariant violation (e.g. an order event that is
// not a permutation of the known players) by re-fetching the full session.
// Partial patching is never safe at that point.
func (c *Coordinator) reload(ctx context.Context, cause error) error {
	c.mu.Lock()
	code := c.code
	c.mu.Unlock()

	log.Warn().Err(cause).Str("code", code).Msg("state invariant violated, reloading session")
	if err := c.Load(ctx, code); err != nil {
		return fmt.Errorf("reload after invariant violation: %w", err)
	}
	return nil
}

func (c *Coordinator) recomputeWinner() {
	st := c.store.State()
	w, err := winner.Evaluate(st.Stats, st.Game.WinCondition)
	if err != nil {
		// Win condition was validated at load; this cannot happen without
		// a programming error upstream.
		log.Error().Err(err).Msg("winner evaluation failed")
		return
	}

	c.mu.Lock()
	changed := !sameWinner(c.winner, w)
	c.winner = w
	c.mu.Unlock()

	if changed {
		c.notifyWinner(w)
	}
}

func sameWinner(a, b *models.Winner) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.PlayerID == b.PlayerID && a.Score == b.Score
}

func (c *Coordinator) notifyState() {
	if c.cfg.OnState != nil {
		c.cfg.OnState(c.store.State())
	}
}

func (c *Coordinator) notifyWinner(w *models.Winner) {
	if c.cfg.OnWinner != nil {
		c.cfg.OnWinner(w)
	}
}

// seenRecentlyLocked dedups at-least-once redelivery by envelope id and
// marks the id as seen. Caller holds c.mu.
func (c *Coordinator) seenRecentlyLocked(eventID string) bool {
	now := c.clock.Now()
	cutoff := now.Add(-seenEventTTL)
	for id, at := range c.seen {
		if at.Before(cutoff) {
			delete(c.seen, id)
		}
	}
	if _, ok := c.seen[eventID]; ok {
		return true
	}
	c.seen[eventID] = now
	return false
}
