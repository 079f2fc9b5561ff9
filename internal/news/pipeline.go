package news

import (
	"context"
	"time"

	"ainews/internal/logger"
	"ainews/internal/metrics"
	"ainews/internal/rss"
)

// Fetcher is the feed-fetching dependency of the pipeline; rss.Fetcher
// satisfies it.
type Fetcher interface {
	FetchAll(ctx context.Context, urls []string) []rss.Entry
}

// Pipeline runs one ingestion pass: fetch feeds, drop stale entries, keep
// on-topic items, suppress near-duplicates, build output records. Nothing in
// a run is fatal: sources that fail are skipped, and an empty result at any
// stage short-circuits to an empty output.
type Pipeline struct {
	Feeds       []string
	WindowHours int
	Threshold   float64 // near-duplicate Jaccard threshold
	MaxTextLen  int     // record text cap, runes

	Fetcher    Fetcher
	Classifier *Classifier

	// Now is the clock used for the window cutoff; defaults to time.Now.
	// Fixed in tests for reproducible runs.
	Now func() time.Time
}

// Run executes the pipeline and returns the ordered record sequence.
func (p *Pipeline) Run(ctx context.Context) []Record {
	start := time.Now()
	defer func() {
		metrics.Global.RecordProcessingTime(time.Since(start))
		metrics.Global.SetLastRun()
	}()

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = DupThreshold
	}
	maxLen := p.MaxTextLen
	if maxLen <= 0 {
		maxLen = MaxTextLen
	}

	entries := p.Fetcher.FetchAll(ctx, p.Feeds)
	if len(entries) == 0 {
		logger.Info("no entries collected")
		return nil
	}

	cutoff := now().Add(-time.Duration(p.WindowHours) * time.Hour)
	fresh := rss.FilterByWindow(entries, cutoff)
	logger.Info("window filter", "collected", len(entries), "fresh", len(fresh))
	if len(fresh) == 0 {
		return nil
	}

	items := p.Classifier.Classify(ctx, fresh)
	logger.Info("topic filter", "fresh", len(fresh), "on_topic", len(items))
	if len(items) == 0 {
		return nil
	}

	unique := Dedup(items, threshold)
	logger.Info("dedup", "on_topic", len(items), "unique", len(unique))

	records := BuildRecords(unique, maxLen)
	metrics.Global.AddRecordsEmitted(len(records))
	return records
}
