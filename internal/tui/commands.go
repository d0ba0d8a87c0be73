package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/headlines/internal/feed"
)

const (
	cardDateLayout   = "Jan 2, 2006"
	detailDateLayout = "January 2, 2006 15:04"
	unknownSource    = "Unknown Source"
)

// control runs a controller operation off the update loop. Its outcome
// arrives as events; the returned error only matters for input the
// controller rejected.
func (a *App) control(op string, fn func(context.Context) error) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (a *App) loadInitial() tea.Cmd {
	return a.control("load", a.ctrl.LoadInitial)
}

func (a *App) loadMore() tea.Cmd {
	return a.control("load more", a.ctrl.LoadMore)
}

func (a *App) refresh() tea.Cmd {
	return a.control("refresh", a.ctrl.Refresh)
}

func (a *App) shake() tea.Cmd {
	return a.control("shake", a.ctrl.OnShakeEvent)
}

func (a *App) search(query string) tea.Cmd {
	return a.control("search", func(ctx context.Context) error {
		return a.ctrl.Search(ctx, query)
	})
}

// maybeLoadMore asks for the next page once the cursor is within the
// configured distance of the end of the list.
func (a *App) maybeLoadMore() tea.Cmd {
	n := len(a.list.Items())
	threshold := max(a.config.Feed.LoadMoreThreshold, 1)
	if n == 0 || a.list.Index() < n-threshold {
		return nil
	}
	s := a.state
	if s.IsLoading() || !s.HasMore() || !s.Mode.IsHeadlines() {
		return nil
	}
	return a.loadMore()
}

// articleMarkdown lays out the detail view before glamour renders it.
func articleMarkdown(article feed.Article) string {
	var content strings.Builder
	content.WriteString(fmt.Sprintf("# %s\n\n", article.Title))

	source := strings.TrimSpace(article.SourceName)
	if source == "" {
		source = unknownSource
	}
	byline := "**" + source + "**"
	if !article.PublishedAt.IsZero() {
		byline += " · *" + article.PublishedAt.Format(detailDateLayout) + "*"
	}
	content.WriteString(byline + "\n\n")

	if article.Description != "" {
		content.WriteString(article.Description + "\n\n")
	}

	content.WriteString("---\n\n")

	if article.Content != "" && article.Content != article.Description {
		content.WriteString(article.Content + "\n\n")
	}

	if article.ImageURL != "" {
		content.WriteString(fmt.Sprintf("Image: %s\n\n", article.ImageURL))
	}
	if article.URL != "" {
		content.WriteString(fmt.Sprintf("[Read the full story](%s)\n", article.URL))
	}

	return content.String()
}

func (a *App) renderArticle(article feed.Article) tea.Cmd {
	return func() tea.Msg {
		r, err := a.getRenderer()
		if err != nil {
			return articleRenderedMsg{url: article.URL, content: "Error initializing renderer: " + err.Error()}
		}

		rendered, err := r.Render(articleMarkdown(article))
		if err != nil {
			// Still deliver a message so the loading flag is cleared.
			return articleRenderedMsg{url: article.URL, content: fmt.Sprintf("Failed to render article: %s\n\nPress Escape to go back.", err)}
		}
		return articleRenderedMsg{url: article.URL, content: rendered}
	}
}

func (a *App) markArticleRead(article feed.Article) tea.Cmd {
	if a.store == nil || article.URL == "" {
		return nil
	}
	store := a.store
	return func() tea.Msg {
		err := retryOperation(func() error { return store.MarkArticleRead(article.URL, true) })
		if err != nil {
			return errorMsg{err: wrapErr("marking article read", err)}
		}
		return nil
	}
}

func (a *App) openURL(kind, target string) tea.Cmd {
	launcher := a.launcher
	return func() tea.Msg {
		var err error
		if kind == "image" {
			err = launcher.OpenImage(target)
		} else {
			err = launcher.Open(target)
		}
		if err != nil {
			return errorMsg{err: wrapErr("open "+kind, err)}
		}
		return statusMsg{text: MsgOpening(kind, truncateMiddle(target, 48)), kind: StatusInfo}
	}
}

// retryOperation retries a database operation up to 3 times with exponential backoff
func retryOperation(operation func() error) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := operation(); err != nil {
			lastErr = err
			if i < maxRetries-1 {
				time.Sleep(baseDelay * time.Duration(1<<i))
			}
			continue
		}
		return nil
	}
	return lastErr
}
