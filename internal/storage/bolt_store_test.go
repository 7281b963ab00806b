package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nhoad/steamnews/internal/domain"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "games.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDiffUnknownExcludesStoredAndIgnored(t *testing.T) {
	store := openTestStore(t)

	if err := store.CommitGames([]domain.Game{
		{AppID: 1, Name: "Foo", Kind: domain.KindGame, Windows: true},
	}); err != nil {
		t.Fatalf("CommitGames: %v", err)
	}
	if err := store.Ignore([]int{2}); err != nil {
		t.Fatalf("Ignore: %v", err)
	}

	entries := []domain.CatalogEntry{
		{AppID: 1, Name: "Foo"},
		{AppID: 2, Name: "Foo Trailer"},
		{AppID: 3, Name: "Bar"},
	}
	unknown, err := store.DiffUnknown(entries)
	if err != nil {
		t.Fatalf("DiffUnknown: %v", err)
	}
	if len(unknown) != 1 || unknown[0].AppID != 3 {
		t.Fatalf("expected only id 3 to be unknown, got %v", unknown)
	}
}

func TestCommitGamesRoundTrip(t *testing.T) {
	store := openTestStore(t)

	games := []domain.Game{
		{AppID: 1, Name: "Foo", Kind: domain.KindGame, Windows: true},
		{AppID: 2, Name: "Tool", Kind: "software"},
	}
	// Transient news must never be persisted.
	games[0].NewsItems = []domain.NewsItem{{Title: "news", Body: "body"}}

	if err := store.CommitGames(games); err != nil {
		t.Fatalf("CommitGames: %v", err)
	}

	stored, err := store.GamesByKind(domain.KindGame)
	if err != nil {
		t.Fatalf("GamesByKind: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 game of kind game, got %d", len(stored))
	}
	g := stored[0]
	if g.AppID != 1 || g.Name != "Foo" || !g.Windows || g.Mac {
		t.Fatalf("unexpected stored game: %+v", g)
	}
	if len(g.NewsItems) != 0 {
		t.Fatalf("news items leaked into the store: %+v", g.NewsItems)
	}
}

func TestSetLastPublished(t *testing.T) {
	store := openTestStore(t)

	if err := store.CommitGames([]domain.Game{{AppID: 1, Name: "Foo", Kind: domain.KindGame}}); err != nil {
		t.Fatalf("CommitGames: %v", err)
	}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SetLastPublished(1, at); err != nil {
		t.Fatalf("SetLastPublished: %v", err)
	}

	stored, err := store.GamesByKind(domain.KindGame)
	if err != nil {
		t.Fatalf("GamesByKind: %v", err)
	}
	if !stored[0].LastPublishedAt.Equal(at) {
		t.Fatalf("LastPublishedAt = %v, want %v", stored[0].LastPublishedAt, at)
	}

	if err := store.SetLastPublished(99, at); err == nil {
		t.Fatal("expected error stamping a game not in the store")
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.CommitGames([]domain.Game{{AppID: 1, Name: "Foo", Kind: domain.KindGame}}); err != nil {
		t.Fatalf("CommitGames: %v", err)
	}
	if err := store.Ignore([]int{2}); err != nil {
		t.Fatalf("Ignore: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	unknown, err := reopened.DiffUnknown([]domain.CatalogEntry{
		{AppID: 1, Name: "Foo"},
		{AppID: 2, Name: "Foo Trailer"},
		{AppID: 3, Name: "Bar"},
	})
	if err != nil {
		t.Fatalf("DiffUnknown: %v", err)
	}
	if len(unknown) != 1 || unknown[0].AppID != 3 {
		t.Fatalf("expected dedup state to survive reopen, got %v", unknown)
	}
}
