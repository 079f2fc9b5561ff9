package rss

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"ainews/internal/logger"
	"ainews/internal/metrics"
	"ainews/internal/scraper"
)

// Entry is one article reference pulled from a feed. Title and Link are
// required; entries missing either are dropped at parse time. Published is
// nil for undated entries — a distinct state from "too old".
type Entry struct {
	Title     string
	Link      string
	Source    string // host component of Link
	Summary   string // cleaned plain text, may be empty
	Published *time.Time
}

// FeedsConfig is the YAML feed list:
//
//	window_hours: 24
//	feeds:
//	  - https://...
type FeedsConfig struct {
	WindowHours int      `yaml:"window_hours"`
	Feeds       []string `yaml:"feeds"`
}

// LoadFeeds reads the feed list from a YAML file.
func LoadFeeds(path string) (*FeedsConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.WindowHours <= 0 {
		cfg.WindowHours = 24
	}
	return &cfg, nil
}

// SaveFeeds writes the feed list back, preserving window_hours. Used by the
// discovery utility to append newly found feeds.
func SaveFeeds(path string, cfg *FeedsConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal feeds: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Fetcher downloads and parses syndication feeds.
type Fetcher struct {
	parser      *gofeed.Parser
	timeout     time.Duration
	concurrency int
}

func NewFetcher(timeout time.Duration, concurrency int) *Fetcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Fetcher{
		parser:      gofeed.NewParser(),
		timeout:     timeout,
		concurrency: concurrency,
	}
}

// FetchAll downloads every feed and returns the collected entries. Feeds are
// independent and fetched concurrently, but entries are flattened in the
// configured feed order so downstream dedup sees a deterministic encounter
// order. A failing feed is logged and skipped, never aborts the run.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []Entry {
	perFeed := make([][]Entry, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, feedURL := range urls {
		i, feedURL := i, feedURL
		g.Go(func() error {
			entries, err := f.fetch(gctx, feedURL)
			if err != nil {
				logger.Warn("feed skipped", "url", feedURL, "error", err)
				metrics.Global.IncrementFeedErrors()
				return nil
			}
			logger.Info("feed loaded", "url", feedURL, "entries", len(entries))
			metrics.Global.IncrementFeedsFetched()
			perFeed[i] = entries
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	var all []Entry
	for _, entries := range perFeed {
		all = append(all, entries...)
	}
	metrics.Global.AddEntriesCollected(len(all))
	return all
}

func (f *Fetcher) fetch(ctx context.Context, feedURL string) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if entry, ok := entryFromItem(item); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// entryFromItem maps a parsed feed item onto an Entry. Items without a title
// or link are dropped silently. The publication time is the first of
// published/updated that parsed; otherwise the entry stays undated.
func entryFromItem(item *gofeed.Item) (Entry, bool) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return Entry{}, false
	}

	var published *time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed
	}

	return Entry{
		Title:     title,
		Link:      link,
		Source:    hostOf(link),
		Summary:   scraper.CleanText(item.Description),
		Published: published,
	}, true
}

func hostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Host
}

// FilterByWindow drops entries published before cutoff. Undated entries are
// always kept: they are assumed potentially current. Recall over precision,
// on purpose.
func FilterByWindow(entries []Entry, cutoff time.Time) []Entry {
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Published != nil && e.Published.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
