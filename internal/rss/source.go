// Package rss is a feed.Source over a single RSS or Atom feed. It needs no
// API key, which makes it the fallback provider.
package rss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pders01/headlines/internal/config"
	"github.com/pders01/headlines/internal/debuglog"
	"github.com/pders01/headlines/internal/feed"
	"github.com/pders01/headlines/internal/validation"
)

const maxFeedSize = 10 << 20

var imgRegex = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["']`)

// Source serves pages out of one parsed feed. Headlines slices the items
// into fixed-size pages; Search filters them locally.
type Source struct {
	url       string
	pageSize  int
	userAgent string
	ttl       time.Duration
	client    *http.Client
	parser    *gofeed.Parser
	validator *validation.URLValidator
	now       func() time.Time
	log       *debuglog.FieldLogger

	mu        sync.Mutex
	items     []feed.Article
	fetchedAt time.Time
}

type Option func(*Source)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Source) { s.client = hc }
}

// WithValidator replaces the default URL validator, e.g. to allow a local
// test server.
func WithValidator(v *validation.URLValidator) Option {
	return func(s *Source) { s.validator = v }
}

// NewSource validates the configured feed URL. The feed itself is fetched
// lazily, and again whenever page 1 is requested after the cache TTL.
func NewSource(cfg *config.Config, opts ...Option) (*Source, error) {
	s := &Source{
		pageSize:  cfg.API.PageSize,
		userAgent: cfg.API.UserAgent,
		ttl:       cfg.Cache.TTL,
		client:    &http.Client{Timeout: cfg.API.HTTPTimeout},
		parser:    gofeed.NewParser(),
		validator: validation.NewURLValidator(),
		now:       time.Now,
		log:       debuglog.WithFields(map[string]interface{}{"component": "rss"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pageSize <= 0 {
		s.pageSize = 20
	}
	if s.client.Timeout <= 0 {
		s.client.Timeout = 30 * time.Second
	}

	normalized, err := s.validator.Normalize(cfg.API.RSSURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}
	s.url = normalized
	return s, nil
}

func (s *Source) Headlines(ctx context.Context, page int) (feed.Page, error) {
	items, err := s.load(ctx, page == 1)
	if err != nil {
		return feed.Page{}, err
	}

	totalPages := max(1, (len(items)+s.pageSize-1)/s.pageSize)
	start := (page - 1) * s.pageSize
	if page < 1 || start >= len(items) {
		return feed.Page{TotalPages: totalPages}, nil
	}
	end := min(start+s.pageSize, len(items))
	return feed.Page{Articles: items[start:end], TotalPages: totalPages}, nil
}

// Search returns items containing every term of query in the title,
// description or source name, newest first. Results are not paged; any
// page beyond the first is empty.
func (s *Source) Search(ctx context.Context, query string, page int) (feed.Page, error) {
	items, err := s.load(ctx, page == 1)
	if err != nil {
		return feed.Page{}, err
	}
	if page != 1 {
		return feed.Page{TotalPages: 1}, nil
	}

	terms := strings.Fields(strings.ToLower(query))
	var matches []feed.Article
	for _, a := range items {
		if matchesAll(a, terms) {
			matches = append(matches, a)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].PublishedAt.After(matches[j].PublishedAt)
	})
	return feed.Page{Articles: matches, TotalPages: 1}, nil
}

func matchesAll(a feed.Article, terms []string) bool {
	haystack := strings.ToLower(a.Title + " " + a.Description + " " + a.SourceName)
	for _, t := range terms {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

// load returns the cached items, fetching when nothing is cached, when ctx
// asks for fresh data, or when refresh is set and the cache is older than
// the TTL.
func (s *Source) load(ctx context.Context, refresh bool) ([]feed.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached := s.items != nil && !feed.IsFresh(ctx) && (!refresh || s.now().Sub(s.fetchedAt) < s.ttl)
	if cached {
		return s.items, nil
	}

	items, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.items = items
	s.fetchedAt = s.now()
	return items, nil
}

func (s *Source) fetch(ctx context.Context) ([]feed.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	items, err := s.Parse(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, err
	}
	s.log.Debugf("fetched %d items from %s", len(items), s.url)
	return items, nil
}

// Parse converts a feed document into articles in feed order. Items without
// a link are dropped and repeated links keep their first occurrence.
func (s *Source) Parse(r io.Reader) ([]feed.Article, error) {
	parsed, err := s.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	seen := make(map[string]bool, len(parsed.Items))
	articles := make([]feed.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true

		a := feed.Article{
			URL:         link,
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Description),
			Content:     item.Content,
			ImageURL:    imageURL(item),
			SourceName:  parsed.Title,
		}
		switch {
		case item.PublishedParsed != nil:
			a.PublishedAt = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			a.PublishedAt = *item.UpdatedParsed
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func imageURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if m := imgRegex.FindStringSubmatch(item.Content + " " + item.Description); len(m) > 1 {
		return m[1]
	}
	return ""
}
