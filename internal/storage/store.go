// Package storage is the on-disk cache: API response pages with a TTL, and
// every article the reader has displayed.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pders01/headlines/internal/debuglog"
	"github.com/pders01/headlines/internal/feed"
)

var (
	pagesBucket    = []byte("pages")
	articlesBucket = []byte("articles")
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// NewStore opens (creating if needed) the cache at dbPath. Pages older than
// ttl are treated as missing; a zero ttl disables page caching.
func NewStore(dbPath string, ttl time.Duration) (*Store, error) {
	return Open(dbPath, ttl, time.Second)
}

// Open is NewStore with an explicit lock timeout. bbolt holds an exclusive
// file lock, so a second instance waits at most timeout.
func Open(dbPath string, ttl, timeout time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{pagesBucket, articlesBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns a cached page body younger than the TTL.
func (s *Store) Get(key string) ([]byte, bool) {
	if s.ttl <= 0 {
		return nil, false
	}

	var page CachedPage
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(pagesBucket).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &page)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			debuglog.Warnf("cache read %s: %v", key, err)
		}
		return nil, false
	}
	if s.now().Sub(page.FetchedAt) >= s.ttl {
		return nil, false
	}
	return page.Body, true
}

func (s *Store) Put(key string, body []byte) error {
	if s.ttl <= 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(CachedPage{Key: key, FetchedAt: s.now(), Body: body})
		if err != nil {
			return err
		}
		return tx.Bucket(pagesBucket).Put([]byte(key), data)
	})
}

// SaveArticles records articles by URL. An article seen before keeps its
// FirstSeen time and read flag; its content is updated.
func (s *Store) SaveArticles(articles []feed.Article) error {
	now := s.now()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		for _, article := range articles {
			if article.URL == "" {
				continue
			}
			record := StoredArticle{Article: article, FirstSeen: now}
			if existing := b.Get([]byte(article.URL)); existing != nil {
				var prev StoredArticle
				if err := json.Unmarshal(existing, &prev); err == nil {
					record.FirstSeen = prev.FirstSeen
					record.Read = prev.Read
				}
			}
			data, err := json.Marshal(record)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(article.URL), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetArticle(url string) (*StoredArticle, error) {
	var article StoredArticle
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(articlesBucket).Get([]byte(url))
		if data == nil {
			return fmt.Errorf("article %s: %w", url, ErrNotFound)
		}
		return json.Unmarshal(data, &article)
	})
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// GetArticles returns stored articles, newest publication first.
func (s *Store) GetArticles(limit int) ([]*StoredArticle, error) {
	var articles []*StoredArticle
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(articlesBucket).ForEach(func(_ []byte, v []byte) error {
			var article StoredArticle
			if err := json.Unmarshal(v, &article); err != nil {
				return nil
			}
			articles = append(articles, &article)
			return nil
		})
	})
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, err
}

func (s *Store) MarkArticleRead(url string, read bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		data := b.Get([]byte(url))
		if data == nil {
			return fmt.Errorf("article %s: %w", url, ErrNotFound)
		}

		var article StoredArticle
		if err := json.Unmarshal(data, &article); err != nil {
			return err
		}
		article.Read = read

		data, err := json.Marshal(article)
		if err != nil {
			return err
		}
		return b.Put([]byte(url), data)
	})
}

// Prune deletes expired pages and articles first seen more than
// articleAge ago. A zero articleAge keeps all articles.
func (s *Store) Prune(articleAge time.Duration) (pages, articles int, err error) {
	now := s.now()
	err = s.db.Update(func(tx *bolt.Tx) error {
		n, err := deleteWhere(tx.Bucket(pagesBucket), func(v []byte) bool {
			var page CachedPage
			return json.Unmarshal(v, &page) != nil || now.Sub(page.FetchedAt) >= s.ttl
		})
		if err != nil {
			return err
		}
		pages = n

		if articleAge <= 0 {
			return nil
		}
		n, err = deleteWhere(tx.Bucket(articlesBucket), func(v []byte) bool {
			var article StoredArticle
			return json.Unmarshal(v, &article) != nil || now.Sub(article.FirstSeen) > articleAge
		})
		articles = n
		return err
	})
	return pages, articles, err
}

// deleteWhere removes every key whose value matches. Keys are collected
// first; deleting under a live cursor skips entries.
func deleteWhere(b *bolt.Bucket, match func(v []byte) bool) (int, error) {
	var doomed [][]byte
	err := b.ForEach(func(k, v []byte) error {
		if match(v) {
			doomed = append(doomed, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, k := range doomed {
		if err := b.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(doomed), nil
}
