package fetcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nhoad/steamnews/internal/domain"
	"github.com/nhoad/steamnews/internal/feed"
	"github.com/nhoad/steamnews/internal/logger"
	"github.com/nhoad/steamnews/internal/metrics"
)

// NewsClient is the slice of the Steam client the news refresher needs.
type NewsClient interface {
	NewsForApp(ctx context.Context, id, count int) ([]domain.NewsItem, error)
}

// FeedSink publishes the rendered per-title documents.
type FeedSink interface {
	Publish(game domain.Game, atomDoc, jsonDoc []byte, at time.Time) error
}

// FeedNotifier receives published-feed events. Optional.
type FeedNotifier interface {
	FeedPublished(ctx context.Context, game domain.Game)
}

// NewsConfig bounds the news refresher independently of the detail resolver.
type NewsConfig struct {
	ChunkSize   int
	MaxInFlight int
	PerTitle    int
}

// News refreshes stale titles chunk by chunk with bounded concurrency.
// Failures are isolated per title: one broken lookup never stops the rest
// of the chunk or the chunks after it.
type News struct {
	client   NewsClient
	renderer *feed.Renderer
	sink     FeedSink
	log      logger.Logger
	cfg      NewsConfig
	notifier FeedNotifier
}

// NewNews builds the news refresher.
func NewNews(client NewsClient, renderer *feed.Renderer, sink FeedSink, log logger.Logger, cfg NewsConfig, notifier FeedNotifier) *News {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &News{client: client, renderer: renderer, sink: sink, log: log, cfg: cfg, notifier: notifier}
}

// Refresh fetches news and republishes feeds for the given titles. Every
// member of a chunk is resolved before the next chunk begins. Returns how
// many feeds were published.
func (n *News) Refresh(ctx context.Context, games []domain.Game) (int, error) {
	var published atomic.Int64

	for start := 0; start < len(games); start += n.cfg.ChunkSize {
		if ctx.Err() != nil {
			break
		}
		end := start + n.cfg.ChunkSize
		if end > len(games) {
			end = len(games)
		}

		var wg sync.WaitGroup
		inFlight := make(chan struct{}, n.cfg.MaxInFlight)
		for _, game := range games[start:end] {
			select {
			case inFlight <- struct{}{}:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}

			wg.Add(1)
			go func(game domain.Game) {
				defer wg.Done()
				defer func() { <-inFlight }()
				if n.refreshOne(ctx, game) {
					published.Add(1)
				}
			}(game)
		}
		wg.Wait()
	}

	return int(published.Load()), ctx.Err()
}

// refreshOne fetches, renders, and publishes a single title. Reports whether
// the feed was replaced.
func (n *News) refreshOne(ctx context.Context, game domain.Game) bool {
	items, err := n.client.NewsForApp(ctx, game.AppID, n.cfg.PerTitle)
	if err != nil {
		metrics.NewsErrors.Inc()
		n.log.WarnObj("news lookup failed; skipping title", "news_error", map[string]any{
			"appid": game.AppID,
			"name":  game.Name,
			"error": err.Error(),
		})
		return false
	}
	metrics.NewsFetched.Inc()

	game.NewsItems = items
	now := time.Now()

	atomDoc, err := n.renderer.Atom(game, now)
	if err != nil {
		n.log.ErrorObj("feed render failed", "render_error", map[string]any{
			"appid": game.AppID,
			"error": err.Error(),
		})
		return false
	}
	jsonDoc, err := n.renderer.JSON(game, now)
	if err != nil {
		n.log.ErrorObj("json render failed", "render_error", map[string]any{
			"appid": game.AppID,
			"error": err.Error(),
		})
		return false
	}

	// A publish failure is fatal only for this artifact; the prior valid
	// document is untouched because the replace is the last step.
	if err := n.sink.Publish(game, atomDoc, jsonDoc, now); err != nil {
		n.log.ErrorObj("feed publish failed", "publish_error", map[string]any{
			"appid": game.AppID,
			"error": err.Error(),
		})
		return false
	}
	metrics.FeedsPublished.Inc()

	if n.notifier != nil {
		n.notifier.FeedPublished(ctx, game)
	}
	return true
}
