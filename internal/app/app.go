// Package app wires configuration, the ingestion pipeline and the optional
// storage collaborator into runnable entrypoints.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ainews/internal/cache"
	"ainews/internal/config"
	"ainews/internal/logger"
	"ainews/internal/news"
	"ainews/internal/ratelimit"
	"ainews/internal/rss"
	"ainews/internal/scraper"
	"ainews/internal/storage"
)

// BuildPipeline assembles the pipeline from config and the loaded feed list.
func BuildPipeline(cfg *config.Config, feeds *rss.FeedsConfig) *news.Pipeline {
	window := feeds.WindowHours
	if cfg.WindowHours > 0 {
		window = cfg.WindowHours
	}

	sc := scraper.New(cfg.HTTPTimeout, cache.New(cfg.CacheTTL))
	limiter := ratelimit.New(cfg.ExtractRPS, 1)
	matcher := news.NewKeywordMatcher(news.AIKeywords)

	return &news.Pipeline{
		Feeds:       feeds.Feeds,
		WindowHours: window,
		Threshold:   cfg.DupThreshold,
		MaxTextLen:  cfg.MaxTextPerItem,
		Fetcher:     rss.NewFetcher(cfg.HTTPTimeout, cfg.FetchConcurrency),
		Classifier:  news.NewClassifier(matcher, sc.Extract, limiter),
	}
}

// Run executes one pipeline pass, writes the JSON triplet array to stdout
// and, when a store is configured, upserts the records there too.
func Run(ctx context.Context) error {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	feeds, err := rss.LoadFeeds(cfg.FeedsConfigPath)
	if err != nil {
		return fmt.Errorf("load feeds: %w", err)
	}
	if len(feeds.Feeds) == 0 {
		return fmt.Errorf("feed list %s is empty", cfg.FeedsConfigPath)
	}

	pipeline := BuildPipeline(cfg, feeds)
	records := pipeline.Run(ctx)
	logger.Info("pipeline finished", "records", len(records))

	if store := openStore(ctx, cfg); store != nil {
		defer store.Close()
		if _, err := store.UpsertRecords(ctx, records); err != nil {
			logger.Error("store upsert failed", "error", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []news.Record{}
	}
	return enc.Encode(records)
}

// openStore picks the configured record store: Postgres when a DSN is set,
// the JSON file store as a fallback, nil when neither is configured.
func openStore(ctx context.Context, cfg *config.Config) storage.RecordStore {
	if cfg.DatabaseDSN != "" {
		store, err := storage.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			logger.Error("postgres unavailable, records not persisted", "error", err)
			return nil
		}
		return store
	}
	if cfg.StoreFilePath != "" {
		store, err := storage.OpenFile(cfg.StoreFilePath)
		if err != nil {
			logger.Error("file store unavailable, records not persisted", "error", err)
			return nil
		}
		return store
	}
	return nil
}
