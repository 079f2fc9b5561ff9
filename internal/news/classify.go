package news

import (
	"context"
	"strings"

	"ainews/internal/logger"
	"ainews/internal/metrics"
	"ainews/internal/ratelimit"
	"ainews/internal/rss"
)

// Item is an entry that passed topic classification, enriched with the
// extracted article text (possibly empty).
type Item struct {
	rss.Entry
	FullText string
}

// ExtractFunc fetches an article page and returns its cleaned main text, ""
// on any failure. scraper.Scraper.Extract satisfies this.
type ExtractFunc func(ctx context.Context, url string) string

// Classifier decides whether entries are on-topic. The cheap check runs the
// keyword matcher over title+summary; only when that fails is the article
// fetched and the check repeated over title+fulltext.
type Classifier struct {
	matcher *KeywordMatcher
	extract ExtractFunc
	limiter *ratelimit.HostLimiter
}

func NewClassifier(matcher *KeywordMatcher, extract ExtractFunc, limiter *ratelimit.HostLimiter) *Classifier {
	return &Classifier{
		matcher: matcher,
		extract: extract,
		limiter: limiter,
	}
}

// Classify filters entries down to on-topic items, preserving order. Accepted
// items always carry the extracted full text (for record building); the topic
// decision for cheap-check hits is not re-examined against that text.
func (c *Classifier) Classify(ctx context.Context, entries []rss.Entry) []Item {
	items := make([]Item, 0, len(entries))

	for _, entry := range entries {
		basis := strings.TrimSpace(entry.Title + " " + entry.Summary)

		if c.matcher.Matches(basis) {
			items = append(items, Item{
				Entry:    entry,
				FullText: c.fetchText(ctx, entry),
			})
			continue
		}

		// Cheap check failed: the summary may just be thin. Look at the page.
		fullText := c.fetchText(ctx, entry)
		if fullText == "" || !c.matcher.Matches(entry.Title+" "+fullText) {
			logger.Debug("entry off-topic", "title", entry.Title)
			metrics.Global.IncrementOffTopicDropped()
			continue
		}

		items = append(items, Item{Entry: entry, FullText: fullText})
	}

	return items
}

// fetchText extracts the article body, pacing requests per target host.
func (c *Classifier) fetchText(ctx context.Context, entry rss.Entry) string {
	if c.extract == nil {
		return ""
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, entry.Source); err != nil {
			return ""
		}
	}
	return c.extract(ctx, entry.Link)
}
