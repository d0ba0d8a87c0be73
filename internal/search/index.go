// Package search keeps a full-text index of every article the reader has
// shown, so past headlines can be found again offline.
package search

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/headlines/internal/feed"
)

// Result is one index hit, reconstructed from stored fields.
type Result struct {
	Article feed.Article
	Score   float64
}

type Index struct {
	idx bleve.Index
}

// Open opens the index at path, creating it when missing. An empty path
// gives an in-memory index.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating memory index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("creating index directory: %w", mkErr)
		}
		idx, err = bleve.New(path, buildIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", path, err)
	}
	return &Index{idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = true

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = false

	source := bleve.NewTextFieldMapping()
	source.Analyzer = standard.Name
	source.Store = true

	// Stored only, for rebuilding results.
	storedOnly := func() *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Index = false
		f.Store = true
		f.IncludeInAll = false
		return f
	}

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("content", content)
	dm.AddFieldMappingsAt("source", source)
	dm.AddFieldMappingsAt("url", storedOnly())
	dm.AddFieldMappingsAt("image_url", storedOnly())
	dm.AddFieldMappingsAt("published", storedOnly())

	im.DefaultMapping = dm
	return im
}

// Add indexes articles, replacing earlier versions with the same URL.
func (i *Index) Add(articles []feed.Article) error {
	batch := i.idx.NewBatch()
	for _, a := range articles {
		if a.URL == "" {
			continue
		}
		doc := map[string]any{
			"title":       a.Title,
			"description": a.Description,
			"content":     a.Content,
			"source":      a.SourceName,
			"url":         a.URL,
			"image_url":   a.ImageURL,
		}
		if !a.PublishedAt.IsZero() {
			doc["published"] = a.PublishedAt.UTC().Format(time.RFC3339)
		}
		if err := batch.Index(a.URL, doc); err != nil {
			return fmt.Errorf("indexing %s: %w", a.URL, err)
		}
	}
	if batch.Size() == 0 {
		return nil
	}
	return i.idx.Batch(batch)
}

// Search runs a boosted disjunction of per-term match and prefix queries.
// Queries with no term of two or more characters return nothing.
func (i *Index) Search(query string, limit int) ([]*Result, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	boosts := []struct {
		field string
		match float64
	}{
		{"title", 4.0},
		{"description", 2.0},
		{"content", 1.0},
		{"source", 1.0},
	}

	var qs []bleveQuery.Query
	for _, term := range terms {
		for _, b := range boosts {
			mq := bleve.NewMatchQuery(term)
			mq.SetField(b.field)
			mq.SetBoost(b.match)
			qs = append(qs, mq)

			pq := bleve.NewPrefixQuery(term)
			pq.SetField(b.field)
			pq.SetBoost(b.match * 0.8)
			qs = append(qs, pq)
		}
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"title", "description", "source", "url", "image_url", "published"}
	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		a := feed.Article{URL: h.ID}
		a.Title, _ = h.Fields["title"].(string)
		a.Description, _ = h.Fields["description"].(string)
		a.SourceName, _ = h.Fields["source"].(string)
		a.ImageURL, _ = h.Fields["image_url"].(string)
		if p, ok := h.Fields["published"].(string); ok {
			a.PublishedAt, _ = time.Parse(time.RFC3339, p)
		}
		out = append(out, &Result{Article: a, Score: h.Score})
	}
	return out, nil
}

// DocCount reports total documents in the index.
func (i *Index) DocCount() (int, error) {
	n, err := i.idx.DocCount()
	return int(n), err
}

func (i *Index) Close() error {
	return i.idx.Close()
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit, dropping single characters.
func tokenize(text string) []string {
	var terms []string
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len([]rune(f)) > 1 {
			terms = append(terms, f)
		}
	}
	return terms
}
