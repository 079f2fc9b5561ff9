package scraper

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ainews/internal/cache"
	"ainews/internal/logger"
	"ainews/internal/metrics"
)

const userAgent = "ainews/1.0 (+https://example.local)"

var (
	tagExpr   = regexp.MustCompile(`<[^>]+>`)
	spaceExpr = regexp.MustCompile(`\s+`)
)

// CleanText strips markup, decodes HTML entities and collapses whitespace.
// Feed summaries and extracted article bodies go through the same cleaning.
func CleanText(s string) string {
	s = html.UnescapeString(s)
	s = tagExpr.ReplaceAllString(s, " ")
	s = spaceExpr.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Scraper downloads article pages and extracts their main text.
// Every failure yields an empty string; extraction is best-effort enrichment
// and must never abort the run.
type Scraper struct {
	client *http.Client
	cache  *cache.Cache
}

// New builds a scraper with a bounded request timeout. The cache keeps
// already-extracted texts so a URL fetched during classification is not
// fetched again for record building.
func New(timeout time.Duration, c *cache.Cache) *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: timeout},
		cache:  c,
	}
}

// Extract returns the cleaned main text of the page at url, or "" on any
// fetch or parse failure.
func (s *Scraper) Extract(ctx context.Context, url string) string {
	if s.cache != nil {
		if text, ok := s.cache.Get(url); ok {
			return text
		}
	}

	text, err := s.extract(ctx, url)
	if err != nil {
		logger.Debug("article extraction failed", "url", url, "error", err)
		metrics.Global.IncrementExtractionFailures()
		text = ""
	}

	if s.cache != nil {
		s.cache.Set(url, text)
	}
	return text
}

func (s *Scraper) extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	return extractContent(doc), nil
}

// extractContent pulls the article body out of a parsed document. The
// selectors favor recall: a marginal content block is better than losing
// genuine article text. Comments and tabular content are excluded.
func extractContent(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, aside, form, table, iframe").Remove()
	doc.Find(".comments, #comments, .comment, [class*=comment-list]").Remove()

	selectors := []string{
		"article p",
		".article-body p",
		".article p",
		".post-content p",
		".entry-content p",
		".content p",
		"main p",
		"#content p",
		"p",
	}

	var paragraphs []string
	for _, selector := range selectors {
		var found []string
		doc.Find(selector).Each(func(i int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) > 20 {
				found = append(found, text)
			}
		})
		if len(found) >= 3 {
			paragraphs = found
			break
		}
		if len(found) > len(paragraphs) {
			paragraphs = found
		}
	}

	// Last resort: whole body text. Noisy, but recall wins here.
	if len(paragraphs) == 0 {
		if body := strings.TrimSpace(doc.Find("body").Text()); body != "" {
			paragraphs = append(paragraphs, body)
		}
	}

	return CleanText(strings.Join(paragraphs, " "))
}
