package tui

import (
	"fmt"
	"strings"

	"github.com/pders01/headlines/internal/feed"
)

// Canonical short status messages used across the app.
const (
	MsgLoading        = "Loading news…"
	MsgLoadingMore    = "Loading more…"
	MsgRefreshing     = "Refreshing…"
	MsgSearching      = "Searching…"
	MsgLoadingArticle = "Loading article…"
	MsgShakeDetected  = "Shake detected"
	MsgNewsRefreshed  = "News refreshed!"
	MsgNoHeadlines    = "No headlines right now"
	MsgEndOfFeed      = "You're all caught up"
)

func MsgNoResults(query string) string {
	return fmt.Sprintf("No results for '%s'", strings.TrimSpace(query))
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgOpening(kind, target string) string {
	return fmt.Sprintf("Opening %s %s", kind, target)
}

// loadingMessage describes the load in flight, or "" when idle.
func loadingMessage(s feed.State) string {
	switch s.Loading {
	case feed.LoadInitial:
		if s.Mode.IsSearch() {
			return MsgSearching
		}
		return MsgLoading
	case feed.LoadMore:
		return MsgLoadingMore
	case feed.LoadRefresh:
		return MsgRefreshing
	default:
		return ""
	}
}

// pageSummary renders the paging position shown in the header.
func pageSummary(s feed.State) string {
	if s.Mode.IsSearch() {
		return MsgResultsCount(len(s.Items))
	}
	if s.Page == 0 {
		return ""
	}
	summary := fmt.Sprintf("%d articles • page %d/%d", len(s.Items), s.Page, s.TotalPages)
	if !s.HasMore() && len(s.Items) > 0 {
		summary += " • " + MsgEndOfFeed
	}
	return summary
}
