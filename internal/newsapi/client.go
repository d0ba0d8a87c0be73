// Package newsapi is a feed.Source backed by newsapi.org.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pders01/headlines/internal/config"
	"github.com/pders01/headlines/internal/debuglog"
	"github.com/pders01/headlines/internal/feed"
)

const (
	maxBodySize = 10 << 20

	// removedMarker is how NewsAPI blanks out articles pulled by the
	// publisher.
	removedMarker = "[Removed]"
)

// Cache stores raw response bodies keyed by request path and query. Keys
// never contain the API key.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, body []byte) error
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	country    string
	language   string
	userAgent  string
	pageSize   int
	limiter    *rate.Limiter
	cache      Cache
	log        *debuglog.FieldLogger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithLimiter replaces the limiter built from requests_per_second. A nil
// limiter disables pacing.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func NewClient(cfg *config.Config, opts ...Option) *Client {
	timeout := cfg.API.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.API.BaseURL, "/"),
		apiKey:     cfg.API.Key,
		country:    cfg.API.Country,
		language:   cfg.API.Language,
		userAgent:  cfg.API.UserAgent,
		pageSize:   cfg.API.PageSize,
		log:        debuglog.WithFields(map[string]interface{}{"component": "newsapi"}),
	}
	if c.pageSize <= 0 {
		c.pageSize = 20
	}
	if rps := cfg.API.RequestsPerSecond; rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Headlines fetches one page of top headlines for the configured country.
func (c *Client) Headlines(ctx context.Context, page int) (feed.Page, error) {
	params := url.Values{}
	params.Set("country", c.country)
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	return c.fetch(ctx, "/top-headlines", params)
}

// Search fetches one page of articles matching query, newest first.
func (c *Client) Search(ctx context.Context, query string, page int) (feed.Page, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("sortBy", "publishedAt")
	if c.language != "" {
		params.Set("language", c.language)
	}
	return c.fetch(ctx, "/everything", params)
}

type response struct {
	Status       string       `json:"status"`
	TotalResults int          `json:"totalResults"`
	Articles     []apiArticle `json:"articles"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
}

type apiArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) (feed.Page, error) {
	key := path + "?" + params.Encode()

	// A fresh request skips the cached copy but still replaces it below.
	if c.cache != nil && !feed.IsFresh(ctx) {
		if body, ok := c.cache.Get(key); ok {
			if page, err := c.decode(body); err == nil {
				c.log.Debugf("cache hit %s", key)
				return page, nil
			}
			c.log.Warnf("discarding undecodable cache entry %s", key)
		}
	}

	body, err := c.get(ctx, key)
	if err != nil {
		return feed.Page{}, err
	}

	page, err := c.decode(body)
	if err != nil {
		return feed.Page{}, err
	}

	if c.cache != nil {
		if err := c.cache.Put(key, body); err != nil {
			c.log.Warnf("caching %s: %v", key, err)
		}
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, pathAndQuery string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathAndQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	c.log.Debugf("GET %s -> %d in %s", req.URL.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload response
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.RetryAfter = retryAfter(resp)
		}
		return nil, apiErr
	}
	return body, nil
}

func (c *Client) decode(body []byte) (feed.Page, error) {
	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return feed.Page{}, fmt.Errorf("decoding response: %w", err)
	}
	if payload.Status == "error" {
		return feed.Page{}, &APIError{Status: http.StatusOK, Code: payload.Code, Message: payload.Message}
	}

	articles := make([]feed.Article, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		if a.URL == "" || a.Title == removedMarker {
			continue
		}
		articles = append(articles, toArticle(a))
	}

	totalPages := 0
	if payload.TotalResults > 0 {
		totalPages = (payload.TotalResults + c.pageSize - 1) / c.pageSize
	}
	return feed.Page{Articles: articles, TotalPages: totalPages}, nil
}

func toArticle(a apiArticle) feed.Article {
	published, err := time.Parse(time.RFC3339, a.PublishedAt)
	if err != nil {
		published = time.Time{}
	}
	return feed.Article{
		URL:         a.URL,
		Title:       strings.TrimSpace(a.Title),
		Description: strings.TrimSpace(a.Description),
		Content:     strings.TrimSpace(a.Content),
		ImageURL:    a.URLToImage,
		PublishedAt: published,
		SourceName:  a.Source.Name,
	}
}
