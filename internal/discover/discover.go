package discover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"ainews/internal/logger"
	"ainews/internal/rss"
)

const (
	userAgent = "ainews-discover/1.0 (+https://example.local)"

	// discovery needs only the head and the top of the page
	maxHTMLBytes = 200_000
)

// DefaultTryPaths are the common feed locations probed when the page head
// advertises nothing.
var DefaultTryPaths = []string{"/feed", "/rss", "/rss.xml", "/atom.xml", "/blog/rss.xml"}

// Config is the discovery YAML:
//
//	domains:
//	  - https://example.org
//	rules:
//	  try_paths: [/feed, /rss.xml]
//	  min_recent_days: 30
type Config struct {
	Domains []string `yaml:"domains"`
	Rules   struct {
		TryPaths      []string `yaml:"try_paths"`
		MinRecentDays int      `yaml:"min_recent_days"`
	} `yaml:"rules"`
}

// LoadConfig reads the discovery YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cfg.Rules.TryPaths) == 0 {
		cfg.Rules.TryPaths = DefaultTryPaths
	}
	if cfg.Rules.MinRecentDays <= 0 {
		cfg.Rules.MinRecentDays = 30
	}
	return &cfg, nil
}

// Discoverer probes domains for RSS/Atom feed URLs and validates them.
type Discoverer struct {
	client    *http.Client
	parser    *gofeed.Parser
	tryPaths  []string
	minRecent time.Duration
}

func New(timeout time.Duration, tryPaths []string, minRecentDays int) *Discoverer {
	if len(tryPaths) == 0 {
		tryPaths = DefaultTryPaths
	}
	if minRecentDays <= 0 {
		minRecentDays = 30
	}
	return &Discoverer{
		client:    &http.Client{Timeout: timeout},
		parser:    gofeed.NewParser(),
		tryPaths:  tryPaths,
		minRecent: time.Duration(minRecentDays) * 24 * time.Hour,
	}
}

// Run probes every domain and returns the validated feed URLs, deduplicated,
// in discovery order.
func (d *Discoverer) Run(ctx context.Context, domains []string) []string {
	var candidates []string
	for _, domain := range domains {
		base := normalizeHome(domain)
		logger.Info("discovering", "domain", base)

		if links := d.headLinks(ctx, base); len(links) > 0 {
			logger.Info("feeds advertised in head", "domain", base, "count", len(links))
			candidates = append(candidates, links...)
		}
		if links := d.probePaths(ctx, base); len(links) > 0 {
			logger.Info("feeds found at common paths", "domain", base, "count", len(links))
			candidates = append(candidates, links...)
		}
	}

	var valid []string
	for _, candidate := range uniqueURLs(candidates) {
		if err := d.Validate(ctx, candidate); err != nil {
			logger.Warn("candidate rejected", "url", candidate, "reason", err)
			continue
		}
		logger.Info("feed validated", "url", candidate)
		valid = append(valid, candidate)
	}
	return valid
}

// headLinks collects <link rel="alternate" type="application/rss+xml|atom+xml">
// hrefs from the page head, resolved against the page URL.
func (d *Discoverer) headLinks(ctx context.Context, pageURL string) []string {
	body, err := d.get(ctx, pageURL)
	if err != nil {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var found []string
	doc.Find(`link[rel="alternate"]`).Each(func(i int, sel *goquery.Selection) {
		typ, _ := sel.Attr("type")
		typ = strings.ToLower(typ)
		if typ != "application/rss+xml" && typ != "application/atom+xml" {
			return
		}
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		found = append(found, base.ResolveReference(ref).String())
	})
	return found
}

// probePaths tries the typical feed locations under base.
func (d *Discoverer) probePaths(ctx context.Context, base string) []string {
	var found []string
	for _, p := range d.tryPaths {
		probe := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe, nil)
		if err != nil {
			continue
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := d.client.Do(req)
		if err != nil {
			continue
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBytes))
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			continue
		}

		if feedContentType(resp.Header.Get("Content-Type")) || looksLikeXML(string(body)) {
			found = append(found, probe)
		}
	}
	return found
}

// Validate checks that url really is a parseable feed with entries, and that
// at least one recent entry exists. A feed whose entries carry no dates at
// all is accepted: freshness simply cannot be checked.
func (d *Discoverer) Validate(ctx context.Context, feedURL string) error {
	ctx, cancel := context.WithTimeout(ctx, d.client.Timeout)
	defer cancel()

	feed, err := d.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	if len(feed.Items) == 0 {
		return fmt.Errorf("no entries")
	}

	cutoff := time.Now().Add(-d.minRecent)
	checked := feed.Items
	if len(checked) > 10 {
		checked = checked[:10]
	}
	for _, item := range checked {
		t := item.PublishedParsed
		if t == nil {
			t = item.UpdatedParsed
		}
		if t == nil {
			return nil // undated feed, assume valid
		}
		if !t.Before(cutoff) {
			return nil
		}
	}
	return fmt.Errorf("stale: no entry within %s", d.minRecent)
}

// AppendFeeds merges urls into the feeds YAML at path and reports which ones
// were actually new.
func AppendFeeds(path string, urls []string) ([]string, error) {
	cfg, err := rss.LoadFeeds(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &rss.FeedsConfig{WindowHours: 24}
	}

	existing := make(map[string]struct{}, len(cfg.Feeds))
	for _, u := range cfg.Feeds {
		existing[u] = struct{}{}
	}

	var added []string
	for _, u := range urls {
		if _, ok := existing[u]; ok {
			continue
		}
		existing[u] = struct{}{}
		cfg.Feeds = append(cfg.Feeds, u)
		added = append(added, u)
	}
	if len(added) == 0 {
		return nil, nil
	}

	if err := rss.SaveFeeds(path, cfg); err != nil {
		return nil, err
	}
	return added, nil
}

func (d *Discoverer) get(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func feedContentType(ct string) bool {
	ct = strings.ToLower(ct)
	for _, prefix := range []string{"application/rss+xml", "application/atom+xml", "text/xml", "application/xml"} {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}

func looksLikeXML(body string) bool {
	head := strings.ToLower(strings.TrimSpace(body))
	if len(head) > 200 {
		head = head[:200]
	}
	return strings.HasPrefix(head, "<?xml") || strings.Contains(head, "<rss") || strings.Contains(head, "<feed")
}

// normalizeHome reduces a configured domain to scheme://host[/path]; bare
// hosts get https.
func normalizeHome(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	host := u.Host
	path := u.Path
	if host == "" {
		// given without a scheme, the host lands in Path
		host = u.Path
		path = ""
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, path)
}

// uniqueURLs normalizes candidates (drops fragments/query) and removes
// duplicates, preserving order.
func uniqueURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var out []string
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		scheme := u.Scheme
		if scheme == "" {
			scheme = "https"
		}
		normalized := fmt.Sprintf("%s://%s%s", scheme, u.Host, u.Path)
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
