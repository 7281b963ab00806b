package fetcher

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/nhoad/steamnews/internal/domain"
	"github.com/nhoad/steamnews/internal/logger"
	"github.com/nhoad/steamnews/internal/metrics"
	"github.com/nhoad/steamnews/internal/steam"
	"github.com/nhoad/steamnews/internal/storage"
)

// Package fetcher holds the two concurrency-bounded upstream consumers: the
// detail resolver for unknown ids and the news refresher for stale titles.

const earlyAccessGenreID = 70

// DetailClient is the slice of the Steam client the detail resolver needs.
type DetailClient interface {
	AppDetails(ctx context.Context, ids []int) (map[string]steam.AppDetail, error)
}

// DetailsConfig bounds the detail resolver. None of the bounds are
// correctness constraints, only load tuning.
type DetailsConfig struct {
	BatchSize   int
	MaxInFlight int
	MaxLookups  int
}

// DetailResult summarizes one resolution pass.
type DetailResult struct {
	Committed   int
	Ignored     int
	RateLimited bool
}

// Notifier receives resolved games as they commit. Optional.
type Notifier interface {
	GameDiscovered(ctx context.Context, game domain.Game)
}

// Details resolves unknown catalog ids into stored games, a bounded number
// of batches in flight at a time, committing each batch as it completes.
type Details struct {
	client   DetailClient
	store    storage.Store
	log      logger.Logger
	cfg      DetailsConfig
	notifier Notifier
}

// NewDetails builds the detail resolver.
func NewDetails(client DetailClient, store storage.Store, log logger.Logger, cfg DetailsConfig, notifier Notifier) *Details {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Details{client: client, store: store, log: log, cfg: cfg, notifier: notifier}
}

// Resolve looks up the unknown entries in batches. A rate-limit signal stops
// all batches not yet issued; batches already committed stand. A store write
// failure is fatal and returned. Per-id gaps in a response are skipped
// silently.
func (d *Details) Resolve(ctx context.Context, unknown []domain.CatalogEntry) (DetailResult, error) {
	var result DetailResult
	if len(unknown) == 0 {
		return result, nil
	}

	if d.cfg.MaxLookups > 0 && len(unknown) > d.cfg.MaxLookups {
		d.log.InfoObj("capping detail lookups for this run", "lookup_cap", map[string]any{
			"unknown": len(unknown),
			"cap":     d.cfg.MaxLookups,
		})
		unknown = unknown[:d.cfg.MaxLookups]
	}

	names := make(map[int]string, len(unknown))
	ids := make([]int, 0, len(unknown))
	for _, e := range unknown {
		names[e.AppID] = e.Name
		ids = append(ids, e.AppID)
	}

	var (
		wg        sync.WaitGroup
		aborted   atomic.Bool
		committed atomic.Int64
		ignored   atomic.Int64
		fatalOnce sync.Once
		fatalErr  error
	)
	inFlight := make(chan struct{}, d.cfg.MaxInFlight)

	fatal := func(err error) {
		fatalOnce.Do(func() { fatalErr = err })
		aborted.Store(true)
	}

	for start := 0; start < len(ids); start += d.cfg.BatchSize {
		if aborted.Load() || ctx.Err() != nil {
			break
		}

		end := start + d.cfg.BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		select {
		case inFlight <- struct{}{}:
		case <-ctx.Done():
			break
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(batch []int) {
			defer wg.Done()
			defer func() { <-inFlight }()

			// Recheck after the slot wait: an abort may have landed while
			// this batch was queued behind the semaphore.
			if aborted.Load() || ctx.Err() != nil {
				return
			}

			metrics.DetailBatches.Inc()
			details, err := d.client.AppDetails(ctx, batch)
			if errors.Is(err, steam.ErrRateLimited) {
				metrics.RateLimitHits.Inc()
				aborted.Store(true)
				d.log.WarnObj("detail endpoint rate limited; no further batches this run", "batch_size", len(batch))
				return
			}
			if err != nil {
				d.log.WarnObj("detail batch failed; skipping", "batch_error", map[string]any{
					"batch_size": len(batch),
					"error":      err.Error(),
				})
				return
			}

			games, ignoreIDs := d.splitBatch(batch, names, details)

			// Commit as soon as the batch completes so a later abort
			// does not lose this progress.
			if err := d.store.CommitGames(games); err != nil {
				fatal(err)
				return
			}
			if err := d.store.Ignore(ignoreIDs); err != nil {
				fatal(err)
				return
			}
			committed.Add(int64(len(games)))
			ignored.Add(int64(len(ignoreIDs)))
			metrics.GamesCommitted.Add(float64(len(games)))
			metrics.IdsIgnored.Add(float64(len(ignoreIDs)))

			if d.notifier != nil {
				for _, g := range games {
					d.notifier.GameDiscovered(ctx, g)
				}
			}
		}(batch)
	}

	wg.Wait()

	result.Committed = int(committed.Load())
	result.Ignored = int(ignored.Load())
	result.RateLimited = aborted.Load() && fatalErr == nil && ctx.Err() == nil
	if fatalErr != nil {
		return result, fatalErr
	}
	return result, ctx.Err()
}

// splitBatch derives records from one batch response: real games go to the
// store, everything else resolved (non-game type, reported failure) goes to
// the ignore set, ids the response omitted go nowhere.
func (d *Details) splitBatch(batch []int, names map[int]string, details map[string]steam.AppDetail) ([]domain.Game, []int) {
	var games []domain.Game
	var ignoreIDs []int

	for _, id := range batch {
		detail, ok := details[strconv.Itoa(id)]
		if !ok {
			continue
		}
		if !detail.Success || detail.Data.Type != domain.KindGame {
			ignoreIDs = append(ignoreIDs, id)
			continue
		}

		earlyAccess := false
		for _, genre := range detail.Data.Genres {
			if int(genre.ID) == earlyAccessGenreID {
				earlyAccess = true
				break
			}
		}

		games = append(games, domain.Game{
			AppID:       id,
			Name:        names[id],
			Kind:        detail.Data.Type,
			Windows:     detail.Data.Platforms.Windows,
			Mac:         detail.Data.Platforms.Mac,
			Linux:       detail.Data.Platforms.Linux,
			EarlyAccess: earlyAccess,
		})
	}

	return games, ignoreIDs
}
