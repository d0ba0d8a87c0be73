package search

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/headlines/internal/feed"
	"github.com/pders01/headlines/internal/storage"
)

var testArticles = []feed.Article{
	{
		URL:         "https://news.example.org/1",
		Title:       "Hello World",
		Description: "greeting article",
		SourceName:  "Daily Planet",
		PublishedAt: time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC),
	},
	{
		URL:         "https://news.example.org/2",
		Title:       "Golang Tips",
		Description: "bleve and search",
		Content:     "Using bleve for full text search",
		ImageURL:    "https://news.example.org/2.png",
	},
}

func TestIndex_AddAndSearch(t *testing.T) {
	dir := t.TempDir()
	idxPath := filepath.Join(dir, "nested", "index.bleve")

	idx, err := Open(idxPath)
	require.NoError(t, err)
	require.NoError(t, idx.Add(testArticles))

	res, err := idx.Search("Golang", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "https://news.example.org/2", res[0].Article.URL)
	assert.Equal(t, "Golang Tips", res[0].Article.Title)
	assert.Equal(t, "https://news.example.org/2.png", res[0].Article.ImageURL)

	res, err = idx.Search("gree", 10)
	require.NoError(t, err, "prefix match")
	require.Len(t, res, 1)
	assert.Equal(t, "Daily Planet", res[0].Article.SourceName)
	assert.Equal(t, testArticles[0].PublishedAt, res[0].Article.PublishedAt)

	res, err = idx.Search("full text", 10)
	require.NoError(t, err, "content is searchable")
	require.NotEmpty(t, res)

	fi, err := os.Stat(idxPath)
	require.NoError(t, err)
	require.True(t, fi.IsDir())

	require.NoError(t, idx.Close())

	reopened, err := Open(idxPath)
	require.NoError(t, err)
	defer reopened.Close()
	n, err := reopened.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIndex_ReplacesByURL(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Add(testArticles))
	updated := testArticles[0]
	updated.Title = "Goodbye World"
	require.NoError(t, idx.Add([]feed.Article{updated, {Title: "no url"}}))

	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := idx.Search("goodbye", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, updated.URL, res[0].Article.URL)
}

func TestIndex_ShortQueries(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.Add(testArticles))

	for _, q := range []string{"", " ", "a", "- !"} {
		res, err := idx.Search(q, 10)
		require.NoError(t, err)
		assert.Empty(t, res, "query %q", q)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"a b cd", []string{"cd"}},
		{"Go1.24 release", []string{"go1", "24", "release"}},
		{"Zürich news", []string{"zürich", "news"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tokenize(tt.input), tt.input)
	}
}

type countingSaver struct {
	mu    sync.Mutex
	calls int
	urls  []string
}

func (c *countingSaver) SaveArticles(articles []feed.Article) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	for _, a := range articles {
		c.urls = append(c.urls, a.URL)
	}
	return nil
}

func TestRecorder_RecordsEachArticleOnce(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	defer idx.Close()

	saver := &countingSaver{}
	rec := NewRecorder(saver, idx)

	rec.OnStateChange(feed.State{Items: testArticles[:1]})
	rec.OnStateChange(feed.State{Items: testArticles})
	rec.OnStateChange(feed.State{Items: testArticles})
	rec.OnError(assert.AnError)
	rec.OnShakeRefreshed()
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())

	assert.Equal(t, 2, saver.calls)
	assert.Equal(t, []string{testArticles[0].URL, testArticles[1].URL}, saver.urls)

	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec.OnStateChange(feed.State{Items: []feed.Article{{URL: "https://late.example.org"}}})
	assert.Equal(t, 2, saver.calls, "closed recorder ignores states")
}

func TestRecorder_WithStore(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "cache.db"), time.Minute)
	require.NoError(t, err)
	defer store.Close()

	rec := NewRecorder(store, nil)
	rec.OnStateChange(feed.State{Items: testArticles})
	require.NoError(t, rec.Close())

	got, err := store.GetArticles(0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
