package tui

import (
	"testing"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/pders01/headlines/internal/feed"
)

func TestFeedHeader(t *testing.T) {
	tests := []struct {
		name  string
		state feed.State
		want  []string
		rows  int
	}{
		{"before first load", feed.State{Mode: feed.HeadlinesMode(), TotalPages: 1}, []string{"top headlines"}, 1},
		{"paged headlines", feed.State{Mode: feed.HeadlinesMode(), Items: make([]feed.Article, 2), Page: 1, TotalPages: 3}, []string{"top headlines", "page 1/3"}, 2},
		{"search", feed.State{Mode: feed.SearchMode("golang"), Items: make([]feed.Article, 1), Page: 1, TotalPages: 1}, []string{"search: golang"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := feedHeader(tt.state, 80)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			assert.Equal(t, tt.rows, lipgloss.Height(got))
		})
	}
}

func TestEmptyFeed(t *testing.T) {
	assert.Contains(t, emptyFeed(feed.State{Mode: feed.SearchMode("quasar")}, "ctrl+r"), MsgNoResults("quasar"))

	got := emptyFeed(feed.State{Mode: feed.HeadlinesMode()}, "alt+r")
	assert.Contains(t, got, MsgNoHeadlines)
	assert.Contains(t, got, "alt+r to refresh")
}

func TestSearchBoxWidth(t *testing.T) {
	in := textinput.New()
	in.Width = 30
	assert.Equal(t, 36, lipgloss.Width(searchBox(in)), "input plus padding and border")
}

func TestShakeModal(t *testing.T) {
	got := shakeModal("Enter")
	assert.Contains(t, got, MsgShakeDetected)
	assert.Contains(t, got, MsgNewsRefreshed)
	assert.Contains(t, got, "Enter: OK")
}
