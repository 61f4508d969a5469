package winner

import (
	"fmt"

	"github.com/mcdev12/scorepad/go/internal/models"
)

// Evaluate derives the current winner from scratch on every call; it is
// deliberately non-sticky. A correction that brings every score back under
// the threshold makes a previously displayed winner disappear again, and
// that behavior is part of the contract.
//
// Ties on the deciding score break toward the player listed first in the
// stat list, which the service keeps in authoritative player order.
func Evaluate(stats []models.PlayerStat, cond models.WinCondition) (*models.Winner, error) {
	switch cond.Type {
	case models.WinAtLeast:
		return evaluateAtLeast(stats, cond.Threshold), nil
	case models.WinAtMost:
		return evaluateAtMost(stats, cond.Threshold), nil
	default:
		return nil, fmt.Errorf("unknown win condition type %q", cond.Type)
	}
}

// evaluateAtLeast: among players at or over the threshold, the highest
// score wins. Nobody over the threshold means no winner yet.
func evaluateAtLeast(stats []models.PlayerStat, threshold int) *models.Winner {
	var best *models.Winner
	for i := range stats {
		if stats[i].Score < threshold {
			continue
		}
		if best == nil || stats[i].Score > best.Score {
			best = &models.Winner{PlayerID: stats[i].PlayerID, Score: stats[i].Score}
		}
	}
	return best
}

// evaluateAtMost: any player reaching the threshold triggers evaluation,
// but the winner is whoever has the lowest score among all players.
func evaluateAtMost(stats []models.PlayerStat, threshold int) *models.Winner {
	triggered := false
	for i := range stats {
		if stats[i].Score >= threshold {
			triggered = true
			break
		}
	}
	if !triggered {
		return nil
	}

	var best *models.Winner
	for i := range stats {
		if best == nil || stats[i].Score < best.Score {
			best = &models.Winner{PlayerID: stats[i].PlayerID, Score: stats[i].Score}
		}
	}
	return best
}
