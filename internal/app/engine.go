package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nhoad/steamnews/internal/artifact"
	"github.com/nhoad/steamnews/internal/classifier"
	"github.com/nhoad/steamnews/internal/config"
	"github.com/nhoad/steamnews/internal/domain"
	"github.com/nhoad/steamnews/internal/feed"
	"github.com/nhoad/steamnews/internal/fetcher"
	"github.com/nhoad/steamnews/internal/logger"
	"github.com/nhoad/steamnews/internal/metrics"
	"github.com/nhoad/steamnews/internal/scheduler"
	"github.com/nhoad/steamnews/internal/steam"
	"github.com/nhoad/steamnews/internal/storage"
	"github.com/nhoad/steamnews/pkg/httpclient"
	"github.com/nhoad/steamnews/pkg/publishers"
)

// Engine is the fetch-and-publish runtime. One Engine owns the store and
// the artifacts directory for the duration of a process; concurrent engine
// instances over the same store are prevented externally.
type Engine struct {
	cfg        *config.Config
	log        logger.Logger
	store      storage.Store
	classifier *classifier.Classifier
	client     *steam.Client
	details    *fetcher.Details
	news       *fetcher.News
	staleness  *scheduler.Staleness
	indexPub   *artifact.IndexPublisher
	fanout     *publishers.Fanout
}

// New wires an Engine from config.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rules, err := classifier.Load(cfg.ClassifierRulesFile)
	if err != nil {
		return nil, fmt.Errorf("load classifier rules: %w", err)
	}
	log.InfoObj("classifier rules loaded", "classifier_meta", map[string]any{
		"file":  cfg.ClassifierRulesFile,
		"rules": rules.Len(),
	})

	store, err := storage.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"path": cfg.StorePath,
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	client := steam.NewClient(httpclient.NewRestyClient(cfg.HTTPTimeout), steam.Endpoints{
		Catalog: cfg.CatalogURL,
		Details: cfg.DetailsURL,
		News:    cfg.NewsURL,
	})

	renderer, err := feed.NewRenderer()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	feedPub, err := artifact.NewFeedPublisher(cfg.ArtifactsDir, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	var indexTemplate []byte
	if cfg.IndexTemplateFile != "" {
		indexTemplate, err = os.ReadFile(cfg.IndexTemplateFile)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("read index template: %w", err)
		}
	}
	indexPub, err := artifact.NewIndexPublisher(cfg.ArtifactsDir, indexTemplate)
	if err != nil {
		store.Close()
		return nil, err
	}

	// A typed-nil notifier must not reach the fetchers as a non-nil interface.
	var detailNotifier fetcher.Notifier
	var feedNotifier fetcher.FeedNotifier
	if n := newFanoutNotifier(fanout, log); n != nil {
		detailNotifier = n
		feedNotifier = n
	}

	details := fetcher.NewDetails(client, store, log, fetcher.DetailsConfig{
		BatchSize:   cfg.DetailBatchSize,
		MaxInFlight: cfg.DetailMaxInFlight,
		MaxLookups:  cfg.MaxLookupsPerRun,
	}, detailNotifier)

	news := fetcher.NewNews(client, renderer, feedPub, log, fetcher.NewsConfig{
		ChunkSize:   cfg.NewsChunkSize,
		MaxInFlight: cfg.NewsMaxInFlight,
		PerTitle:    cfg.NewsPerTitle,
	}, feedNotifier)

	return &Engine{
		cfg:        cfg,
		log:        log,
		store:      store,
		classifier: rules,
		client:     client,
		details:    details,
		news:       news,
		staleness:  scheduler.NewStaleness(cfg.ArtifactsDir, cfg.Freshness),
		indexPub:   indexPub,
		fanout:     fanout,
	}, nil
}

// buildFanout assembles the optional downstream notification fanout. An
// empty path disables notifications entirely.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		return nil, nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubs)
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count": fanout.Size(),
	})
	return fanout, nil
}

// Close releases the store.
func (e *Engine) Close() {
	if e == nil || e.store == nil {
		return
	}
	if err := e.store.Close(); err != nil {
		e.log.ErrorObj("storage close failed", "error", err.Error())
	}
}

// Sync ingests the catalog, drops noise, and resolves unknown ids into the
// store. Returns how many ids were committed and ignored.
func (e *Engine) Sync(ctx context.Context) (int, int, error) {
	entries, err := e.client.AppList(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("catalog ingest: %w", err)
	}
	metrics.CatalogEntries.Add(float64(len(entries)))

	kept := make([]domain.CatalogEntry, 0, len(entries))
	for _, entry := range entries {
		if e.classifier.Drop(entry.Name) {
			metrics.CatalogDropped.Inc()
			continue
		}
		kept = append(kept, entry)
	}

	unknown, err := e.store.DiffUnknown(kept)
	if err != nil {
		return 0, 0, fmt.Errorf("diff unknown ids: %w", err)
	}
	e.log.InfoObj("catalog classified", "catalog_meta", map[string]any{
		"total":   len(entries),
		"kept":    len(kept),
		"unknown": len(unknown),
	})
	if len(unknown) == 0 {
		return 0, 0, nil
	}

	start := time.Now()
	result, err := e.details.Resolve(ctx, unknown)
	if err != nil {
		return result.Committed, result.Ignored, fmt.Errorf("resolve details: %w", err)
	}
	e.log.InfoObj("detail resolution completed", "detail_meta", map[string]any{
		"committed":    result.Committed,
		"ignored":      result.Ignored,
		"rate_limited": result.RateLimited,
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})
	return result.Committed, result.Ignored, nil
}

// RefreshNews republishes feeds for every game whose artifact is stale.
// Returns how many feeds were published.
func (e *Engine) RefreshNews(ctx context.Context) (int, error) {
	games, err := e.store.GamesByKind(domain.KindGame)
	if err != nil {
		return 0, fmt.Errorf("load games: %w", err)
	}

	due := e.staleness.Due(games, time.Now())
	e.log.InfoObj("staleness pass completed", "staleness_meta", map[string]any{
		"games": len(games),
		"due":   len(due),
	})
	if len(due) == 0 {
		return 0, nil
	}

	return e.news.Refresh(ctx, due)
}

// PublishIndex rebuilds and atomically replaces the aggregate index.
func (e *Engine) PublishIndex() error {
	games, err := e.store.GamesByKind(domain.KindGame)
	if err != nil {
		return fmt.Errorf("load games: %w", err)
	}
	if err := e.indexPub.Publish(games); err != nil {
		return err
	}
	metrics.IndexPublished.Inc()
	return nil
}

// RunPass executes one full engine pass under the run deadline: sync,
// refresh, index. Whatever a deadline expiry interrupts stays committed
// and published; there is no rollback.
func (e *Engine) RunPass(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RunDeadline)
	defer cancel()

	start := time.Now()
	committed, ignored, err := e.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	count, err := e.RefreshNews(ctx)
	if err != nil {
		return fmt.Errorf("refresh news: %w", err)
	}

	if err := e.PublishIndex(); err != nil {
		return fmt.Errorf("publish index: %w", err)
	}

	e.log.InfoObj("engine pass completed", "pass_meta", map[string]any{
		"committed":  committed,
		"ignored":    ignored,
		"published":  count,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// Run executes engine passes on the refresh interval until the context is
// cancelled. With RunOnce set a single pass is executed.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.RunPass(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.log.ErrorObj("engine pass failed", "error", err.Error())
		if e.cfg.RunOnce {
			return err
		}
	}
	if e.cfg.RunOnce {
		return nil
	}

	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.InfoObj("engine loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := e.RunPass(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				e.log.ErrorObj("engine pass failed", "error", err.Error())
			}
		}
	}
}
