package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/headlines/internal/feed"
)

// feedHeader names the current mode with the paging summary beneath it.
func feedHeader(s feed.State, width int) string {
	title := "› top headlines"
	if s.Mode.IsSearch() {
		title = "› search: " + s.Mode.Query
	}
	rows := []string{HeaderStyle.Render(truncateEnd(title, width-2))}
	if summary := pageSummary(s); summary != "" {
		rows = append(rows, muted(truncateEnd(summary, width-2)))
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

// searchBox frames the query input, highlighted while it has focus.
func searchBox(input textinput.Model) string {
	border := MutedColor
	if input.Focused() {
		border = AccentColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(input.Width + 4).
		Render(input.View())
}

// emptyFeed is shown in place of the list when there is nothing to list.
func emptyFeed(s feed.State, refreshKey string) string {
	if s.Mode.IsSearch() {
		return muted(MsgNoResults(s.Mode.Query))
	}
	return GetCompactBanner(MsgNoHeadlines + " • " + refreshKey + " to refresh")
}

func shakeModal(confirmKey string) string {
	return ModalBoxStyle.Render(lipgloss.JoinVertical(
		lipgloss.Center,
		ModalTitleStyle.Render("⟲ "+MsgShakeDetected),
		"",
		ModalTextStyle.Render(MsgNewsRefreshed),
		"",
		HelpStyle.Render(confirmKey+": OK"),
	))
}

func centered(width, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func muted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}
