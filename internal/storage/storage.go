package storage

import (
	"time"

	"github.com/nhoad/steamnews/internal/domain"
)

// Package storage provides the durable games table and ignore set. It is
// the single source of truth for dedup: an id present in either the games
// table or the ignore set is never looked up again.

// Store is the persistent keyed table of known games plus the
// permanently-ignored id set.
type Store interface {
	Close() error

	// DiffUnknown returns the entries whose ids are in neither the games
	// table nor the ignore set.
	DiffUnknown(entries []domain.CatalogEntry) ([]domain.CatalogEntry, error)

	// CommitGames durably records resolved games. All-or-none per call.
	CommitGames(games []domain.Game) error

	// Ignore permanently excludes ids from future detail lookups.
	// All-or-none per call.
	Ignore(ids []int) error

	// GamesByKind returns every stored game of the given kind.
	GamesByKind(kind string) ([]domain.Game, error)

	// SetLastPublished stamps the only mutable field of a stored game.
	SetLastPublished(id int, at time.Time) error
}
