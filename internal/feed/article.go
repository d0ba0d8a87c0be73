// Package feed owns the article list shown by the reader: which mode it is
// in, how far it has paged, and which fetch (if any) is in flight.
package feed

import (
	"context"
	"time"
)

// Article is one news item. Its identity is URL; two articles with the same
// URL are the same article.
type Article struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	SourceName  string    `json:"source_name,omitempty"`
}

// ID returns the article's unique key.
func (a Article) ID() string { return a.URL }

// Page is one page of results from a Source. TotalPages is zero when the
// source does not know how many pages exist.
type Page struct {
	Articles   []Article
	TotalPages int
}

// Source is the remote the controller reads from. Both calls are
// idempotent reads.
type Source interface {
	Headlines(ctx context.Context, page int) (Page, error)
	Search(ctx context.Context, query string, page int) (Page, error)
}

// appendUnique appends the articles of src whose URL is not yet in dst,
// keeping the first occurrence. Articles without a URL have no identity
// and are dropped.
func appendUnique(dst []Article, src []Article) []Article {
	seen := make(map[string]struct{}, len(dst)+len(src))
	for _, a := range dst {
		seen[a.URL] = struct{}{}
	}
	for _, a := range src {
		if a.URL == "" {
			continue
		}
		if _, dup := seen[a.URL]; dup {
			continue
		}
		seen[a.URL] = struct{}{}
		dst = append(dst, a)
	}
	return dst
}
