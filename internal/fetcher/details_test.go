package fetcher

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nhoad/steamnews/internal/domain"
	"github.com/nhoad/steamnews/internal/steam"
	"github.com/nhoad/steamnews/internal/storage"
)

type fakeDetailClient struct {
	mu      sync.Mutex
	calls   int
	handler func(call int, ids []int) (map[string]steam.AppDetail, error)

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func (f *fakeDetailClient) AppDetails(_ context.Context, ids []int) (map[string]steam.AppDetail, error) {
	cur := f.inFlight.Add(1)
	for {
		max := f.maxInFlight.Load()
		if cur <= max || f.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}
	defer f.inFlight.Add(-1)

	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	time.Sleep(10 * time.Millisecond)
	return f.handler(call, ids)
}

func (f *fakeDetailClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func gameDetails(ids []int) map[string]steam.AppDetail {
	out := make(map[string]steam.AppDetail, len(ids))
	for _, id := range ids {
		out[strconv.Itoa(id)] = steam.AppDetail{
			Success: true,
			Data:    steam.AppDetailData{Type: "game", Platforms: steam.Platforms{Windows: true}},
		}
	}
	return out
}

func entries(n int) []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, n)
	for i := range out {
		out[i] = domain.CatalogEntry{AppID: i + 1, Name: "Game " + strconv.Itoa(i+1)}
	}
	return out
}

func openFetcherStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "games.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestResolveSplitsBatchOutcomes(t *testing.T) {
	client := &fakeDetailClient{handler: func(_ int, ids []int) (map[string]steam.AppDetail, error) {
		return map[string]steam.AppDetail{
			"1": {Success: true, Data: steam.AppDetailData{
				Type:      "game",
				Genres:    []steam.Genre{{ID: 70}},
				Platforms: steam.Platforms{Windows: true, Linux: true},
			}},
			"2": {Success: true, Data: steam.AppDetailData{Type: "dlc"}},
			"3": {Success: false},
			// id 4 intentionally absent: skipped silently.
		}, nil
	}}
	store := openFetcherStore(t)

	d := NewDetails(client, store, nil, DetailsConfig{BatchSize: 4, MaxInFlight: 1}, nil)
	result, err := d.Resolve(context.Background(), entries(4))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Committed != 1 || result.Ignored != 2 || result.RateLimited {
		t.Fatalf("unexpected result: %+v", result)
	}

	games, err := store.GamesByKind(domain.KindGame)
	if err != nil {
		t.Fatalf("GamesByKind: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("expected 1 stored game, got %d", len(games))
	}
	g := games[0]
	if g.AppID != 1 || g.Name != "Game 1" || !g.EarlyAccess || !g.Windows || !g.Linux || g.Mac {
		t.Fatalf("unexpected stored game: %+v", g)
	}

	// Ignored and skipped ids must behave differently on the next diff:
	// 2 and 3 are settled, 4 is still unknown.
	unknown, err := store.DiffUnknown(entries(4))
	if err != nil {
		t.Fatalf("DiffUnknown: %v", err)
	}
	if len(unknown) != 1 || unknown[0].AppID != 4 {
		t.Fatalf("expected only id 4 to remain unknown, got %v", unknown)
	}
}

func TestResolveRateLimitAbortsRemainingBatches(t *testing.T) {
	client := &fakeDetailClient{handler: func(call int, ids []int) (map[string]steam.AppDetail, error) {
		if call == 1 {
			return gameDetails(ids), nil
		}
		return nil, steam.ErrRateLimited
	}}
	store := openFetcherStore(t)

	d := NewDetails(client, store, nil, DetailsConfig{BatchSize: 20, MaxInFlight: 1}, nil)
	result, err := d.Resolve(context.Background(), entries(60))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.RateLimited {
		t.Fatal("expected RateLimited to be set")
	}
	if result.Committed != 20 {
		t.Fatalf("committed = %d, want 20 (batch 1 only)", result.Committed)
	}
	if got := client.callCount(); got != 2 {
		t.Fatalf("batches attempted = %d, want 2 (batch 3 never issued)", got)
	}

	games, err := store.GamesByKind(domain.KindGame)
	if err != nil {
		t.Fatalf("GamesByKind: %v", err)
	}
	if len(games) != 20 {
		t.Fatalf("expected batch 1 commits to survive the abort, got %d", len(games))
	}
}

func TestResolveBoundsInFlightBatches(t *testing.T) {
	client := &fakeDetailClient{handler: func(_ int, ids []int) (map[string]steam.AppDetail, error) {
		return gameDetails(ids), nil
	}}
	store := openFetcherStore(t)

	d := NewDetails(client, store, nil, DetailsConfig{BatchSize: 1, MaxInFlight: 2}, nil)
	if _, err := d.Resolve(context.Background(), entries(10)); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if max := client.maxInFlight.Load(); max > 2 {
		t.Fatalf("observed %d concurrent batches, bound is 2", max)
	}
}

func TestResolveRespectsLookupCap(t *testing.T) {
	client := &fakeDetailClient{handler: func(_ int, ids []int) (map[string]steam.AppDetail, error) {
		return gameDetails(ids), nil
	}}
	store := openFetcherStore(t)

	d := NewDetails(client, store, nil, DetailsConfig{BatchSize: 5, MaxInFlight: 1, MaxLookups: 10}, nil)
	result, err := d.Resolve(context.Background(), entries(30))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Committed != 10 {
		t.Fatalf("committed = %d, want the 10-lookup cap", result.Committed)
	}
}

type failingStore struct {
	storage.Store
	err error
}

func (f failingStore) CommitGames([]domain.Game) error { return f.err }

func TestResolvePersistenceErrorIsFatal(t *testing.T) {
	client := &fakeDetailClient{handler: func(_ int, ids []int) (map[string]steam.AppDetail, error) {
		return gameDetails(ids), nil
	}}
	boom := errors.New("disk full")
	store := failingStore{Store: openFetcherStore(t), err: boom}

	d := NewDetails(client, store, nil, DetailsConfig{BatchSize: 5, MaxInFlight: 1}, nil)
	_, err := d.Resolve(context.Background(), entries(10))
	if !errors.Is(err, boom) {
		t.Fatalf("expected the store error to surface, got %v", err)
	}
	if got := client.callCount(); got > 2 {
		t.Fatalf("expected no further batches after a fatal store error, got %d calls", got)
	}
}
