// Package scheduler decides which titles are due for a news refresh.
package scheduler

import (
	"os"
	"time"

	"github.com/nhoad/steamnews/internal/artifact"
	"github.com/nhoad/steamnews/internal/domain"
)

// Staleness gates news refreshes on the age of the published feed artifact.
// The threshold throttles load on the news endpoint independent of any
// rate-limit signal from it: a failing upstream never causes an immediate
// unbounded retry, only one attempt per threshold window.
type Staleness struct {
	dir       string
	threshold time.Duration
}

// NewStaleness builds a scheduler over the artifacts directory.
func NewStaleness(dir string, threshold time.Duration) *Staleness {
	return &Staleness{dir: dir, threshold: threshold}
}

// NeedsRefresh reports whether the game's feed artifact is missing or older
// than the freshness threshold at the given instant. The artifact file is
// the source of truth, not the store: a deleted artifact must be rebuilt
// even if the store says it was published recently.
func (s *Staleness) NeedsRefresh(game domain.Game, now time.Time) bool {
	info, err := os.Stat(artifact.FeedPath(s.dir, game.AppID))
	if err != nil {
		return true
	}
	return now.Sub(info.ModTime()) >= s.threshold
}

// Due filters the games whose artifacts are due for refresh.
func (s *Staleness) Due(games []domain.Game, now time.Time) []domain.Game {
	due := make([]domain.Game, 0, len(games))
	for _, g := range games {
		if s.NeedsRefresh(g, now) {
			due = append(due, g)
		}
	}
	return due
}
