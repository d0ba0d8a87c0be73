package storage

import (
	"time"

	"github.com/pders01/headlines/internal/feed"
)

// CachedPage is a raw API response body.
type CachedPage struct {
	Key       string    `json:"key"`
	FetchedAt time.Time `json:"fetched_at"`
	Body      []byte    `json:"body"`
}

// StoredArticle is an article the reader has seen, with local metadata.
type StoredArticle struct {
	feed.Article
	FirstSeen time.Time `json:"first_seen"`
	Read      bool      `json:"read"`
}
