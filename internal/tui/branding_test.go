package tui

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/headlines/internal/config"
)

func TestShowBanner(t *testing.T) {
	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	ShowBanner("1.0.0-test")

	w.Close()
	os.Stdout = old
	out := <-outC

	if !strings.Contains(out, "Top stories in your terminal") {
		t.Errorf("Expected banner to contain tagline, got: %s", out)
	}
	if !strings.Contains(out, "╔") || !strings.Contains(out, "╝") {
		t.Errorf("Expected banner to contain border characters, got: %s", out)
	}
	if !strings.Contains(out, "◆") {
		t.Errorf("Expected banner to contain separator symbols, got: %s", out)
	}
	if !strings.Contains(out, "v1.0.0-test") {
		t.Errorf("Expected banner to contain version 'v1.0.0-test', got: %s", out)
	}
}

func TestRenderBannerDevVersion(t *testing.T) {
	out := RenderBanner("dev")
	if strings.Contains(out, "dev") {
		t.Errorf("Expected dev builds to omit the version, got: %s", out)
	}
	if !strings.Contains(RenderBanner("v2.1.0"), "v2.1.0") || strings.Contains(RenderBanner("v2.1.0"), "vv2") {
		t.Errorf("Expected an existing v prefix to be kept as is")
	}
}

func TestGetCompactBanner(t *testing.T) {
	message := "Test message"
	result := GetCompactBanner(message)

	if !strings.Contains(result, message) {
		t.Errorf("Expected compact banner to contain '%s', got: %s", message, result)
	}
	if !strings.Contains(result, "█▀▀█") {
		t.Errorf("Expected compact banner to contain logo elements, got: %s", result)
	}
}

func TestLogoConstants(t *testing.T) {
	if len(LogoLines) != 3 {
		t.Errorf("Expected 3 logo lines, got %d", len(LogoLines))
	}
	width := lipgloss.Width(LogoLines[0])
	for i, line := range LogoLines {
		if lipgloss.Width(line) != width {
			t.Errorf("Logo line %d has width %d, want %d", i, lipgloss.Width(line), width)
		}
	}
	if len(BannerColors) != 3 {
		t.Errorf("Expected 3 banner colors, got %d", len(BannerColors))
	}
}

func TestApplyTheme(t *testing.T) {
	saved := []lipgloss.Color{PrimaryColor, AccentColor, TextColor, ErrorColor}
	defer func() {
		PrimaryColor, AccentColor, TextColor, ErrorColor = saved[0], saved[1], saved[2], saved[3]
		UnreadColor = TextColor
		buildStyles()
	}()

	ApplyTheme(config.UIColors{Primary: "#123456", Text: "#ABCDEF"})

	if PrimaryColor != lipgloss.Color("#123456") {
		t.Errorf("PrimaryColor = %v, want #123456", PrimaryColor)
	}
	if AccentColor != saved[1] {
		t.Errorf("empty accent should keep %v, got %v", saved[1], AccentColor)
	}
	if UnreadColor != lipgloss.Color("#ABCDEF") {
		t.Errorf("UnreadColor should follow the text color, got %v", UnreadColor)
	}
	if LogoStyle.GetForeground() != lipgloss.Color("#123456") {
		t.Errorf("styles were not rebuilt")
	}
}
