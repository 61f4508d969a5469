package scoresync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/scorepad/go/internal/models"
	"github.com/mcdev12/scorepad/go/internal/scorebus"
)

var (
	sessionID = uuid.MustParse("dddddddd-0000-0000-0000-00000000000d")
	playerA   = uuid.MustParse("dddddddd-0000-0000-0000-000000000001")
	playerB   = uuid.MustParse("dddddddd-0000-0000-0000-000000000002")
	playerC   = uuid.MustParse("dddddddd-0000-0000-0000-000000000003")
)

type rejectedError struct{ msg string }

func (e rejectedError) Error() string  { return e.msg }
func (e rejectedError) Rejected() bool { return true }

// fakeService scripts the authoritative service for coordinator tests.
type fakeService struct {
	mu sync.Mutex

	session  *models.Session
	loadErr  error
	scoreErr error

	loadCalls   int
	scoreCalls  int
	orderCalls  [][]uuid.UUID
	dealerCalls []uuid.UUID

	finalizeResult *models.FinalizeResult
	finalizeErr    error
}

func (f *fakeService) GetActiveSession(_ context.Context, code string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	sess := *f.session
	return &sess, nil
}

func (f *fakeService) CreateScoreDelta(_ context.Context, _ uuid.UUID, playerID uuid.UUID, delta int) ([]models.PlayerStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoreCalls++
	if f.scoreErr != nil {
		return nil, f.scoreErr
	}
	stats := make([]models.PlayerStat, len(f.session.Stats))
	copy(stats, f.session.Stats)
	for i := range stats {
		if stats[i].PlayerID == playerID {
			stats[i].Score += delta
		}
	}
	f.session.Stats = stats
	return stats, nil
}

func (f *fakeService) SetOrder(_ context.Context, _ uuid.UUID, order []uuid.UUID) ([]models.PlayerStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCalls = append(f.orderCalls, order)
	return f.session.Stats, nil
}

func (f *fakeService) SetDealer(_ context.Context, _ uuid.UUID, playerID uuid.UUID) (*models.GameState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dealerCalls = append(f.dealerCalls, playerID)
	game := f.session.Game
	return &game, nil
}

func (f *fakeService) Finalize(_ context.Context, _ uuid.UUID) (*models.FinalizeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil {
		return nil, f.finalizeErr
	}
	return f.finalizeResult, nil
}

func newFakeService() *fakeService {
	return &fakeService{
		session: &models.Session{
			Game: models.GameState{
				ID:           sessionID,
				Code:         "WXYZ",
				WinCondition: models.WinCondition{Type: models.WinAtLeast, Threshold: 50},
				Order:        []uuid.UUID{playerA, playerB, playerC},
			},
			Stats: []models.PlayerStat{
				{PlayerID: playerA, DisplayName: "Ana", Score: 48},
				{PlayerID: playerB, DisplayName: "Ben", Score: 20},
				{PlayerID: playerC, DisplayName: "Cleo", Score: 10},
			},
		},
	}
}

func newLoadedCoordinator(t *testing.T, svc *fakeService) *Coordinator {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Clock = clockwork.NewFakeClock()
	c := NewCoordinator(svc, cfg)
	if err := c.Load(context.Background(), "WXYZ"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Phase() != PhaseActive {
		t.Fatalf("expected ACTIVE after load, got %s", c.Phase())
	}
	return c
}

func scoreOf(t *testing.T, c *Coordinator, id uuid.UUID) int {
	t.Helper()
	for _, s := range c.Snapshot().Stats {
		if s.PlayerID == id {
			return s.Score
		}
	}
	t.Fatalf("player %s not in snapshot", id)
	return 0
}

func scoreChangedEnvelope(t *testing.T, svc *fakeService, playerID uuid.UUID, delta int) *scorebus.Envelope {
	t.Helper()

	svc.mu.Lock()
	stats := make([]models.PlayerStat, len(svc.session.Stats))
	copy(stats, svc.session.Stats)
	svc.mu.Unlock()

	env, err := scorebus.NewEnvelope(sessionID, scorebus.EventTypeScoreChanged, scorebus.ScoreChangedPayload{
		PlayerID: playerID,
		Delta:    delta,
		Stats:    stats,
	}, time.Now())
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	return env
}

func TestLoad_FailureReturnsToUninitialized(t *testing.T) {
	svc := newFakeService()
	svc.loadErr = errors.New("connection refused")

	cfg := DefaultConfig()
	cfg.Clock = clockwork.NewFakeClock()
	c := NewCoordinator(svc, cfg)

	if err := c.Load(context.Background(), "WXYZ"); err == nil {
		t.Fatalf("expected load error")
	}
	if c.Phase() != PhaseUninitialized {
		t.Fatalf("expected UNINITIALIZED after failed load, got %s", c.Phase())
	}

	// Retry succeeds.
	svc.mu.Lock()
	svc.loadErr = nil
	svc.mu.Unlock()
	if err := c.Load(context.Background(), "WXYZ"); err != nil {
		t.Fatalf("retry Load: %v", err)
	}
	if c.Phase() != PhaseActive {
		t.Fatalf("expected ACTIVE after retry, got %s", c.Phase())
	}
}

func TestUpdateScore_OptimisticThenCanonical(t *testing.T) {
	svc := newFakeService()
	c := newLoadedCoordinator(t, svc)

	if err := c.UpdateScore(context.Background(), playerB, 5); err != nil {
		t.Fatalf("UpdateScore: %v", err)
	}
	if got := scoreOf(t, c, playerB); got != 25 {
		t.Fatalf("expected canonical 25, got %d", got)
	}
	if ta := c.Tally(playerB); ta == nil || ta.RunningDelta != 5 {
		t.Fatalf("expected tally +5, got %+v", ta)
	}
}

func TestUpdateScore_TransientFailureRollsBackScoreKeepsTally(t *testing.T) {
	svc := newFakeService()
	c := newLoadedCoordinator(t, svc)
	svc.scoreErr = errors.New("timeout awaiting response")

	err := c.UpdateScore(context.Background(), playerB, 5)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := scoreOf(t, c, playerB); got != 20 {
		t.Fatalf("expected rollback to 20, got %d", got)
	}
	// Conservative: a retry above us may still fulfill the request, so the
	// badge does not flicker away.
	if ta := c.Tally(playerB); ta == nil || ta.RunningDelta != 5 {
		t.Fatalf("expected tally kept at +5, got %+v", ta)
	}
}

func TestUpdateScore_RejectionRollsBackTallyToo(t *testing.T) {
	svc := newFakeService()
	c := newLoadedCoordinator(t, svc)
	svc.scoreErr = rejectedError{msg: "game already finalized"}

	if err := c.UpdateScore(context.Background(), playerB, 5); err == nil {
		t.Fatalf("expected error")
	}
	if got := scoreOf(t, c, playerB); got != 20 {
		t.Fatalf("expected rollback to 20, got %d", got)
	}
	if ta := c.Tally(playerB); ta != nil && ta.RunningDelta != 0 {
		t.Fatalf("expected tally reversed, got %+v", ta)
	}
}

func TestUpdateScore_RequiresActivePhase(t *testing.T) {
	svc := newFakeService()
	cfg := DefaultConfig()
	cfg.Clock = clockwork.NewFakeClock()
	c := NewCoordinator(svc, cfg)

	if err := c.UpdateScore(context.Background(), playerA, 1); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

// Our own +10 comes back over the broadcast channel. The canonical stats
// apply but the tally must stay at +10, not jump to +20.
func TestHandleBroadcast_OwnEchoSuppressesSecondTallyBump(t *testing.T) {
	svc := newFakeService()
	c := newLoadedCoordinator(t, svc)

	if err := c.UpdateScore(context.Background(), playerA, 10); err != nil {
		t.Fatalf("UpdateScore: %v", err)
	}
	env := scoreChangedEnvelope(t, svc, playerA, 10)
	if err := c.HandleBroadcast(context.Background(), env); err != nil {
		t.Fatalf("HandleBroadcast: %v", err)
	}

	if ta := c.Tally(playerA); ta == nil || ta.RunningDelta != 10 {
		t.Fatalf("expected tally +10 after echo, got %+v", ta)
	}
	if got := scoreOf(t, c, playerA); got != 58 {
		t.Fatalf("expected canonical 58, got %d", got)
	}
}

func TestHandleBroadcast_RemoteChangeBumpsTallyOnce(t *testing.T) {
	svc := newFakeService()
	c := newLoadedCoordinator(t, svc)

	// A peer's mutation: bump the fake's canonical state directly.
	svc.mu.Lock()
	svc.session.Stats[1].Score += 4
	svc.mu.Unlock()

	env := scoreChangedEnvelope(t, svc, playerB, 4)
	if err := c.HandleBroadcast(context.Background(), env); err != nil {
		t.Fatalf("HandleBroadcast: %v", err)
	}
	if ta := c.Tally(playerB); ta == nil || ta.RunningDelta != 4 {
		t.Fatalf("expected tally +4 for remote change, got %+v", ta)
	}
	if got := scoreOf(t, c, playerB); got != 24 {
		t.Fatalf("expected 24, got %d", got)
	}

	// At-least-once transport: the identical envelope may be redelivered.
	if err := c.HandleBroadcast(context.Background(), env); err != nil {
		t.Fatalf("HandleBroadcast redelivery: %v", err)
	}
	if ta := c.Tally(playerB); ta == nil || ta.RunningDelta != 4 {
		t.Fatalf("redelivery double-counted tally: %+v", ta)
	}
	if got := scoreOf(t, c, playerB); got != 24 {
		t.Fatalf("redelivery changed score: %d", got)
	}
}

func TestHandleBroadcast_IgnoresOtherSessions(t *testing.T) {
	svc := newFakeService()
	c := newLoadedCoordinator(t, svc)

	env, err := scorebus.NewEnvelope(uuid.New(), scorebus.EventTypeScoreChanged, scorebus.ScoreChangedPayload{
		PlayerID: playerA,
		Delta:    99,
		Stats:    []models.PlayerStat{{PlayerID: playerA, Score: 147}},
	}, time.Now())
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if err := c.HandleBroadcast(context.Background(), env); err != nil {
		t.Fatalf("HandleBroadcast: %v", err)
	}
	if got := scoreOf(t, c, playerA); got != 48 {
		t.Fatalf("foreign-session event applied: %d", got)
	}
}

func TestHandleBroadcast_MalformedEventIsLoggedAndDropped(t *testing.T) {
	svc := newFakeService()
	c := newLoadedCoordinator(t, svc)

	env := &scorebus.Envelope{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      "hand-dealt",
		Data:      []byte(`{"whatever": true}`),
	}
	if err := c.HandleBroadcast(context.Background(), env); err != nil {
		t.Fatalf("expected malformed event to be swallowed, got %v", err)
	}
}

// A reorder proposal must not touch local order; only the authoritative
// broadcast may.
func TestProposeOrder_LocalOrderUnchangedUntilBroadcast(t *testing.T) {
	svc := newFakeService()
	c := newLoadedCoordinator(t, svc)

	proposed := []uuid.UUID{playerC, playerA, playerB}
	if err := c.ProposeOrder(context.Background(), proposed); err != nil {
		t.Fatalf("ProposeOrder: %v", err)
	}

	got := c.Snapshot().Game.Order
	want := []uuid.UUID{playerA, playerB, playerC}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order changed before broadcast: %v", got)
		}
	}
	if len(svc.orderCalls) != 1 {
		t.Fatalf("expected one SetOrder call, got %d", len(svc.orderCalls))
	}

	moved := playerC
	env, err := scorebus.NewEnvelope(sessionID, scorebus.EventTypeOrderChanged, scorebus.OrderChangedPayload{
		Order:         proposed,
		MovedPlayerID: &moved,
	}, time.Now())
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if err := c.HandleBroadcast(context.Background(), env); err != nil {
		t.Fatalf("HandleBroadcast: %v", err)
	}

	got = c.Snapshot().Game.Order
	for i := range proposed {
		if got[i] != proposed[i] {
			t.Fatalf("order not applied from broadcast: %v", got)
		}
	}
}

func TestHandleBroadcast_InvalidOrderTriggersFullReload(t *testing.T) {
	svc := newFakeService()
	c := newLoadedCoordinator(t, svc)
	loadsBefore := svc.loadCalls

	env, err := scorebus.NewEnvelope(sessionID, scorebus.EventTypeOrderChanged, scorebus.OrderChangedPayload{
		Order: []uuid.UUID{playerA, playerA, playerB},
	}, time.Now())
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if err := c.HandleBroadcast(context.Background(), env); err != nil {
		t.Fatalf("HandleBroadcast: %v", err)
	}
	if svc.loadCalls != loadsBefore+1 {
		t.Fatalf("expected a reload, loads went %d -> %d", loadsBefore, svc.loadCalls)
	}
	if c.Phase() != PhaseActive {
		t.Fatalf("expected ACTIVE after reload, got %s", c.Phase())
	}
}

func TestCycleDealer(t *testing.T) {
	svc := newFakeService()
	c := newLoadedCoordinator(t, svc)

	// No dealer yet: propose the first player in order.
	if err := c.CycleDealer(context.Background()); err != nil {
		t.Fatalf("CycleDealer: %v", err)
	}
	if len(svc.dealerCalls) != 1 || svc.dealerCalls[0] != playerA {
		t.Fatalf("expected first proposal playerA, got %v", svc.dealerCalls)
	}

	// Dealer set via broadcast; next cycle proposes the following player.
	env, err := scorebus.NewEnvelope(sessionID, scorebus.EventTypeDealerChanged, scorebus.DealerChangedPayload{
		DealerID: playerA,
	}, time.Now())
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if err := c.HandleBroadcast(context.Background(), env); err != nil {
		t.Fatalf("HandleBroadcast: %v", err)
	}
	if err := c.CycleDealer(context.Background()); err != nil {
		t.Fatalf("CycleDealer: %v", err)
	}
	if len(svc.dealerCalls) != 2 || svc.dealerCalls[1] != playerB {
		t.Fatalf("expected second proposal playerB, got %v", svc.dealerCalls)
	}

	// No optimistic apply: local dealer is still playerA.
	st := c.Snapshot()
	if st.Game.DealerID == nil || *st.Game.DealerID != playerA {
		t.Fatalf("dealer changed without confirmation: %v", st.Game.DealerID)
	}
}

func TestNextDealer_EmptyOrder(t *testing.T) {
	if _, ok := NextDealer(nil, nil); ok {
		t.Fatalf("expected no dealer for empty order")
	}
}

func TestNextDealer_WrapsAround(t *testing.T) {
	order := []uuid.UUID{playerA, playerB, playerC}
	last := playerC
	next, ok := NextDealer(order, &last)
	if !ok || next != playerA {
		t.Fatalf("expected wrap to playerA, got %v (ok=%v)", next, ok)
	}
}

// Finalize is terminal. Later score broadcasts still update raw stats for
// historical display but never re-derive the winner.
func TestFinalize_IsTerminal(t *testing.T) {
	svc := newFakeService()
	c := newLoadedCoordinator(t, svc)

	frozen := &models.Winner{PlayerID: playerA, Score: 48}
	game := svc.session.Game
	game.Finalized = true
	svc.finalizeResult = &models.FinalizeResult{Winner: frozen, Game: game}

	if err := c.FinalizeGame(context.Background()); err != nil {
		t.Fatalf("FinalizeGame: %v", err)
	}
	if c.Phase() != PhaseFinalized {
		t.Fatalf("expected FINALIZED, got %s", c.Phase())
	}
	if w := c.Winner(); w == nil || w.PlayerID != playerA {
		t.Fatalf("expected frozen winner playerA, got %+v", w)
	}

	// Mutations are refused locally now.
	if err := c.UpdateScore(context.Background(), playerB, 1); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive after finalize, got %v", err)
	}

	// A remote delta that would normally flip the winner: stats update,
	// winner does not.
	svc.mu.Lock()
	svc.session.Stats[1].Score = 120
	svc.mu.Unlock()
	env := scoreChangedEnvelope(t, svc, playerB, 100)
	if err := c.HandleBroadcast(context.Background(), env); err != nil {
		t.Fatalf("HandleBroadcast: %v", err)
	}
	if got := scoreOf(t, c, playerB); got != 120 {
		t.Fatalf("expected historical stats update to 120, got %d", got)
	}
	if w := c.Winner(); w == nil || w.PlayerID != playerA {
		t.Fatalf("winner changed after finalize: %+v", w)
	}
}

func TestFinalize_FailureLeavesStateUntouched(t *testing.T) {
	svc := newFakeService()
	c := newLoadedCoordinator(t, svc)
	svc.finalizeErr = errors.New("not your turn")

	if err := c.FinalizeGame(context.Background()); err == nil {
		t.Fatalf("expected finalize error")
	}
	if c.Phase() != PhaseActive {
		t.Fatalf("expected ACTIVE after failed finalize, got %s", c.Phase())
	}
}

// Winner derivation is non-sticky end to end: crossing the threshold shows
// a winner, the correcting delta makes it disappear again.
func TestWinner_RevertsOnCorrection(t *testing.T) {
	svc := newFakeService()

	var mu sync.Mutex
	var winners []*models.Winner
	cfg := DefaultConfig()
	cfg.Clock = clockwork.NewFakeClock()
	cfg.OnWinner = func(w *models.Winner) {
		mu.Lock()
		winners = append(winners, w)
		mu.Unlock()
	}
	c := NewCoordinator(svc, cfg)
	if err := c.Load(context.Background(), "WXYZ"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// 48 + 4 crosses the at-least 50 threshold.
	if err := c.UpdateScore(context.Background(), playerA, 4); err != nil {
		t.Fatalf("UpdateScore: %v", err)
	}
	if w := c.Winner(); w == nil || w.PlayerID != playerA {
		t.Fatalf("expected playerA as winner, got %+v", w)
	}

	// Correction drops everyone under the threshold again.
	if err := c.UpdateScore(context.Background(), playerA, -5); err != nil {
		t.Fatalf("UpdateScore: %v", err)
	}
	if w := c.Winner(); w != nil {
		t.Fatalf("expected winner to revert to none, got %+v", w)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(winners) < 2 {
		t.Fatalf("expected winner notifications for both transitions, got %d", len(winners))
	}
}
