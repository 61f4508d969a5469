package winner

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mcdev12/scorepad/go/internal/models"
)

var (
	playerA = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	playerB = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
	playerC = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000003")
)

func stats(a, b, c int) []models.PlayerStat {
	return []models.PlayerStat{
		{PlayerID: playerA, DisplayName: "A", Score: a},
		{PlayerID: playerB, DisplayName: "B", Score: b},
		{PlayerID: playerC, DisplayName: "C", Score: c},
	}
}

func TestEvaluate_AtLeast(t *testing.T) {
	cond := models.WinCondition{Type: models.WinAtLeast, Threshold: 50}

	cases := []struct {
		name   string
		stats  []models.PlayerStat
		winner *uuid.UUID
	}{
		{"nobody over threshold", stats(48, 47, 10), nil},
		{"single winner", stats(48, 52, 10), &playerB},
		{"highest among qualifiers", stats(55, 52, 60), &playerC},
		{"exactly at threshold", stats(50, 0, 0), &playerA},
		{"tie breaks to earlier player", stats(55, 55, 10), &playerA},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := Evaluate(tc.stats, cond)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			checkWinner(t, w, tc.winner)
		})
	}
}

func TestEvaluate_AtMost(t *testing.T) {
	cond := models.WinCondition{Type: models.WinAtMost, Threshold: 100}

	cases := []struct {
		name   string
		stats  []models.PlayerStat
		winner *uuid.UUID
	}{
		{"nobody at threshold", stats(95, 99, 60), nil},
		// Crossing triggers evaluation; lowest overall score wins.
		{"lowest overall wins", stats(95, 101, 60), &playerC},
		{"loser can trigger own loss", stats(100, 40, 60), &playerB},
		{"tie breaks to earlier player", stats(101, 30, 30), &playerB},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := Evaluate(tc.stats, cond)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			checkWinner(t, w, tc.winner)
		})
	}
}

// The winner is re-derived from scratch: a correction that drops everyone
// back under the threshold makes a previously displayed winner disappear.
func TestEvaluate_NonSticky(t *testing.T) {
	cond := models.WinCondition{Type: models.WinAtLeast, Threshold: 50}

	w, err := Evaluate(stats(48, 52, 10), cond)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	checkWinner(t, w, &playerB)

	w, err = Evaluate(stats(48, 47, 10), cond)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	checkWinner(t, w, nil)
}

func TestEvaluate_Idempotent(t *testing.T) {
	cond := models.WinCondition{Type: models.WinAtMost, Threshold: 100}
	s := stats(95, 101, 60)

	first, err := Evaluate(s, cond)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	second, err := Evaluate(s, cond)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if first == nil || second == nil || *first != *second {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestEvaluate_EmptyStats(t *testing.T) {
	w, err := Evaluate(nil, models.WinCondition{Type: models.WinAtLeast, Threshold: 1})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if w != nil {
		t.Fatalf("expected no winner for empty stats, got %+v", w)
	}
}

func TestEvaluate_UnknownConditionIsHardError(t *testing.T) {
	if _, err := Evaluate(stats(1, 2, 3), models.WinCondition{Type: "sudden-death", Threshold: 5}); err == nil {
		t.Fatalf("expected error for unknown win condition type")
	}
}

func checkWinner(t *testing.T, got *models.Winner, want *uuid.UUID) {
	t.Helper()
	if want == nil {
		if got != nil {
			t.Fatalf("expected no winner, got %+v", got)
		}
		return
	}
	if got == nil {
		t.Fatalf("expected winner %s, got none", want)
	}
	if got.PlayerID != *want {
		t.Fatalf("expected winner %s, got %s", want, got.PlayerID)
	}
}
