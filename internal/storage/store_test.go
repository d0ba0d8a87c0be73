package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pders01/headlines/internal/feed"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	tmpDir, err := os.MkdirTemp("", "store-test-*")
	if err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(tmpDir, "cache", "test.db")
	store, err := NewStore(dbPath, 5*time.Minute)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatal(err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

// clock pins the store's notion of now.
func clock(s *Store, at time.Time) *time.Time {
	now := at
	s.now = func() time.Time { return now }
	return &now
}

func TestStore_PutAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	now := clock(store, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))

	if _, ok := store.Get("/top-headlines?page=1"); ok {
		t.Fatal("expected miss on empty cache")
	}

	body := []byte(`{"status":"ok"}`)
	if err := store.Put("/top-headlines?page=1", body); err != nil {
		t.Fatalf("failed to put page: %v", err)
	}

	got, ok := store.Get("/top-headlines?page=1")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != string(body) {
		t.Errorf("expected body %s, got %s", body, got)
	}

	*now = now.Add(5 * time.Minute)
	if _, ok := store.Get("/top-headlines?page=1"); ok {
		t.Error("expected entry to expire after the TTL")
	}
}

func TestStore_ZeroTTLDisablesPages(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nottl.db")
	store, err := NewStore(dbPath, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.Put("k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := store.Get("k"); ok {
		t.Error("expected no caching with zero TTL")
	}
}

func TestStore_SaveAndGetArticles(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	articles := []feed.Article{
		{URL: "https://news.example.org/old", Title: "Old", PublishedAt: base},
		{URL: "https://news.example.org/new", Title: "New", PublishedAt: base.Add(2 * time.Hour)},
		{URL: "https://news.example.org/mid", Title: "Mid", PublishedAt: base.Add(time.Hour)},
		{URL: "", Title: "No URL"},
	}
	if err := store.SaveArticles(articles); err != nil {
		t.Fatalf("failed to save articles: %v", err)
	}

	got, err := store.GetArticles(0)
	if err != nil {
		t.Fatalf("failed to get articles: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(got))
	}
	want := []string{"New", "Mid", "Old"}
	for i, title := range want {
		if got[i].Title != title {
			t.Errorf("position %d: expected %s, got %s", i, title, got[i].Title)
		}
	}

	limited, err := store.GetArticles(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 articles with limit, got %d", len(limited))
	}
}

func TestStore_SaveArticlesKeepsLocalState(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := clock(store, first)

	url := "https://news.example.org/story"
	if err := store.SaveArticles([]feed.Article{{URL: url, Title: "Draft"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkArticleRead(url, true); err != nil {
		t.Fatalf("failed to mark read: %v", err)
	}

	*now = first.Add(time.Hour)
	if err := store.SaveArticles([]feed.Article{{URL: url, Title: "Final"}}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetArticle(url)
	if err != nil {
		t.Fatalf("failed to get article: %v", err)
	}
	if got.Title != "Final" {
		t.Errorf("expected updated title, got %s", got.Title)
	}
	if !got.Read {
		t.Error("expected read flag to survive re-save")
	}
	if !got.FirstSeen.Equal(first) {
		t.Errorf("expected FirstSeen %v, got %v", first, got.FirstSeen)
	}
}

func TestStore_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	if _, err := store.GetArticle("https://missing.example.org"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.MarkArticleRead("https://missing.example.org", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Prune(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := clock(store, start)

	for i := 0; i < 3; i++ {
		if err := store.Put(fmt.Sprintf("old-%d", i), []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.SaveArticles([]feed.Article{{URL: "https://news.example.org/a"}}); err != nil {
		t.Fatal(err)
	}

	*now = start.Add(10 * time.Minute)
	if err := store.Put("fresh", []byte("y")); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveArticles([]feed.Article{{URL: "https://news.example.org/b"}}); err != nil {
		t.Fatal(err)
	}

	pages, articles, err := store.Prune(0)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if pages != 3 || articles != 0 {
		t.Errorf("expected 3 pages and 0 articles pruned, got %d and %d", pages, articles)
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Error("fresh page should survive")
	}

	_, articles, err = store.Prune(5 * time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if articles != 1 {
		t.Errorf("expected 1 article pruned, got %d", articles)
	}
	remaining, _ := store.GetArticles(0)
	if len(remaining) != 1 || remaining[0].URL != "https://news.example.org/b" {
		t.Errorf("unexpected remaining articles: %+v", remaining)
	}
}
