// Package metrics exposes pipeline counters on the default prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogEntries tracks how many catalog entries each run saw.
	CatalogEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steamnews_catalog_entries_total",
		Help: "The total number of catalog entries ingested.",
	})
	// CatalogDropped tracks entries the classifier discarded as noise.
	CatalogDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steamnews_catalog_dropped_total",
		Help: "The total number of catalog entries dropped by the classifier.",
	})
	// DetailBatches tracks detail lookup batches issued upstream.
	DetailBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steamnews_detail_batches_total",
		Help: "The total number of detail lookup batches issued.",
	})
	// GamesCommitted tracks games durably added to the store.
	GamesCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steamnews_games_committed_total",
		Help: "The total number of games committed to the store.",
	})
	// IdsIgnored tracks ids routed to the permanent ignore set.
	IdsIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steamnews_ids_ignored_total",
		Help: "The total number of ids added to the ignore set.",
	})
	// RateLimitHits tracks runs aborted early by an upstream 429.
	RateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steamnews_rate_limit_hits_total",
		Help: "The total number of times the detail endpoint rate limited us.",
	})
	// NewsFetched tracks successful per-title news lookups.
	NewsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steamnews_news_fetched_total",
		Help: "The total number of successful news lookups.",
	})
	// NewsErrors tracks per-title news lookup failures (skipped, not fatal).
	NewsErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steamnews_news_errors_total",
		Help: "The total number of failed news lookups.",
	})
	// FeedsPublished tracks per-title feed artifacts atomically replaced.
	FeedsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steamnews_feeds_published_total",
		Help: "The total number of feed artifacts published.",
	})
	// IndexPublished tracks aggregate index publications.
	IndexPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steamnews_index_published_total",
		Help: "The total number of index artifacts published.",
	})
)
