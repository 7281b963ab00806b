package domain

import "time"

// Domain contains core models shared across the engine.

// KindGame is the only declared type that earns a place in the store; every
// other type resolved by the detail endpoint lands in the ignore set.
const KindGame = "game"

// CatalogEntry is one id/name pair from the remote catalog. Ephemeral,
// re-fetched every run.
type CatalogEntry struct {
	AppID int    `json:"appid"`
	Name  string `json:"name"`
}

// Game is a resolved title. Created once on first successful detail lookup
// and never mutated afterwards except for LastPublishedAt.
type Game struct {
	AppID           int       `json:"appid"`
	Name            string    `json:"name"`
	Kind            string    `json:"type"`
	Windows         bool      `json:"windows"`
	Mac             bool      `json:"mac"`
	Linux           bool      `json:"linux"`
	EarlyAccess     bool      `json:"early_access"`
	LastPublishedAt time.Time `json:"last_published_at,omitempty"`

	// NewsItems is attached transiently for rendering and never persisted.
	NewsItems []NewsItem `json:"newsitems,omitempty"`
}

// SlimGame is the index projection of a Game: identity and flags only,
// never news bodies.
type SlimGame struct {
	AppID       int    `json:"appid"`
	Name        string `json:"name"`
	Windows     bool   `json:"windows"`
	Mac         bool   `json:"mac"`
	Linux       bool   `json:"linux"`
	EarlyAccess bool   `json:"early_access"`
}

// Slim returns the index projection of the game.
func (g Game) Slim() SlimGame {
	return SlimGame{
		AppID:       g.AppID,
		Name:        g.Name,
		Windows:     g.Windows,
		Mac:         g.Mac,
		Linux:       g.Linux,
		EarlyAccess: g.EarlyAccess,
	}
}

// NewsItem is a dated announcement attached to a title for rendering.
type NewsItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Body        string `json:"contents"`
	PublishedAt int64  `json:"date"`
}

// Published returns the item timestamp as time.Time.
func (n NewsItem) Published() time.Time { return time.Unix(n.PublishedAt, 0) }
