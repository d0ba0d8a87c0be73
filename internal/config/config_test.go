package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestGetDefaultOpener(t *testing.T) {
	expected := map[string]string{
		"darwin":  "open",
		"linux":   "xdg-open",
		"windows": "start",
	}

	opener := getDefaultOpener()

	if expectedOpener, ok := expected[runtime.GOOS]; ok {
		if opener != expectedOpener {
			t.Errorf("getDefaultOpener() = %s, want %s for %s", opener, expectedOpener, runtime.GOOS)
		}
	} else if opener != "open" {
		t.Errorf("getDefaultOpener() = %s, want 'open' for unknown OS", opener)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.API.Provider != ProviderNewsAPI {
		t.Errorf("API.Provider = %s, want %s", cfg.API.Provider, ProviderNewsAPI)
	}
	if cfg.API.BaseURL != "https://newsapi.org/v2" {
		t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
	}
	if cfg.API.PageSize != 20 {
		t.Errorf("API.PageSize = %d, want 20", cfg.API.PageSize)
	}
	if cfg.API.HTTPTimeout != 30*time.Second {
		t.Errorf("API.HTTPTimeout = %v, want 30s", cfg.API.HTTPTimeout)
	}
	if cfg.API.UserAgent == "" {
		t.Error("API.UserAgent should not be empty")
	}

	if cfg.Feed.MinQueryLength != 3 {
		t.Errorf("Feed.MinQueryLength = %d, want 3", cfg.Feed.MinQueryLength)
	}
	if cfg.Feed.FallbackTotalPages != 5 {
		t.Errorf("Feed.FallbackTotalPages = %d, want 5", cfg.Feed.FallbackTotalPages)
	}

	if cfg.Shake.Threshold != 3.0 {
		t.Errorf("Shake.Threshold = %v, want 3.0", cfg.Shake.Threshold)
	}
	if cfg.Shake.Interval != 100*time.Millisecond {
		t.Errorf("Shake.Interval = %v, want 100ms", cfg.Shake.Interval)
	}

	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}

	if cfg.Media.DefaultOpener == "" {
		t.Error("Media.DefaultOpener should not be empty")
	}

	if cfg.Keys.Modifier != "ctrl" {
		t.Errorf("Keys.Modifier = %s, want 'ctrl'", cfg.Keys.Modifier)
	}
	if cfg.Keys.Bindings.Refresh != "r" {
		t.Errorf("Keys.Bindings.Refresh = %s, want 'r'", cfg.Keys.Bindings.Refresh)
	}
}

func TestLoad_DefaultConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Feed.MinQueryLength != 3 {
		t.Errorf("Feed.MinQueryLength = %d, want 3", cfg.Feed.MinQueryLength)
	}
	if cfg.Shake.Interval != 100*time.Millisecond {
		t.Errorf("Shake.Interval = %v, want 100ms", cfg.Shake.Interval)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "test-config.toml")
	configContent := `
[api]
key = "from-file"
page_size = 50
http_timeout = "60s"

[cache]
path = "/tmp/test-cache.db"

[ui.colors]
primary = "#FF0000"
`

	if writeErr := os.WriteFile(configPath, []byte(configContent), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Key != "from-file" {
		t.Errorf("API.Key = %s, want 'from-file'", cfg.API.Key)
	}
	if cfg.API.PageSize != 50 {
		t.Errorf("API.PageSize = %d, want 50", cfg.API.PageSize)
	}
	if cfg.API.HTTPTimeout != 60*time.Second {
		t.Errorf("API.HTTPTimeout = %v, want 60s", cfg.API.HTTPTimeout)
	}
	// Keys absent from the file keep their defaults.
	if cfg.API.Country != "us" {
		t.Errorf("API.Country = %s, want 'us'", cfg.API.Country)
	}
	if cfg.Cache.Path != "/tmp/test-cache.db" {
		t.Errorf("Cache.Path = %s, want '/tmp/test-cache.db'", cfg.Cache.Path)
	}
	if cfg.UI.Colors.Primary != "#FF0000" {
		t.Errorf("UI.Colors.Primary = %s, want '#FF0000'", cfg.UI.Colors.Primary)
	}
	if cfg.UI.Colors.Muted != "#94A3B8" {
		t.Errorf("UI.Colors.Muted = %s, want default", cfg.UI.Colors.Muted)
	}
}

func TestLoad_EnvOverridesKey(t *testing.T) {
	t.Setenv("HEADLINES_API_KEY", "from-env")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[api]\ncountry = \"gb\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Key != "from-env" {
		t.Errorf("API.Key = %s, want 'from-env'", cfg.API.Key)
	}
	if cfg.API.Country != "gb" {
		t.Errorf("API.Country = %s, want 'gb'", cfg.API.Country)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := defaultConfig()
	cfg.API.Key = "saved-key"
	cfg.API.UserAgent = "test-save-agent"
	cfg.Feed.MinQueryLength = 4
	cfg.Keys.Modifier = "alt"
	cfg.Keys.Bindings.OpenLink = "l"
	cfg.Cache.TTL = 10 * time.Minute

	savePath := filepath.Join(tmpDir, "saved-config.toml")
	if saveErr := Save(cfg, savePath); saveErr != nil {
		t.Fatalf("Save() error = %v", saveErr)
	}

	if _, statErr := os.Stat(savePath); os.IsNotExist(statErr) {
		t.Fatal("Save() did not create config file")
	}

	loaded, err := Load(savePath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.API.Key != cfg.API.Key {
		t.Errorf("Loaded API.Key = %s, want %s", loaded.API.Key, cfg.API.Key)
	}
	if loaded.API.UserAgent != cfg.API.UserAgent {
		t.Errorf("Loaded API.UserAgent = %s, want %s", loaded.API.UserAgent, cfg.API.UserAgent)
	}
	if loaded.Feed.MinQueryLength != 4 {
		t.Errorf("Loaded Feed.MinQueryLength = %d, want 4", loaded.Feed.MinQueryLength)
	}
	if loaded.Keys.Modifier != "alt" {
		t.Errorf("Loaded Keys.Modifier = %s, want alt", loaded.Keys.Modifier)
	}
	if loaded.Keys.Bindings.OpenLink != "l" {
		t.Errorf("Loaded Keys.Bindings.OpenLink = %s, want l", loaded.Keys.Bindings.OpenLink)
	}
	if loaded.Cache.TTL != 10*time.Minute {
		t.Errorf("Loaded Cache.TTL = %v, want 10m", loaded.Cache.TTL)
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "generated.toml")
	if genErr := GenerateDefaultConfig(configPath); genErr != nil {
		t.Fatalf("GenerateDefaultConfig() error = %v", genErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}

	if cfg.Keys.Modifier != "ctrl" {
		t.Errorf("Generated config has Keys.Modifier = %s, want 'ctrl'", cfg.Keys.Modifier)
	}
	if cfg.Feed.FallbackTotalPages != 5 {
		t.Errorf("Generated config has Feed.FallbackTotalPages = %d, want 5", cfg.Feed.FallbackTotalPages)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"test config is valid", func(*Config) {}, false},
		{"newsapi without key", func(c *Config) { c.API.Key = "  " }, true},
		{"rss without key is fine", func(c *Config) {
			c.API.Provider = ProviderRSS
			c.API.Key = ""
			c.API.RSSURL = "https://news.ycombinator.com/rss"
		}, false},
		{"rss without url", func(c *Config) {
			c.API.Provider = ProviderRSS
			c.API.RSSURL = ""
		}, true},
		{"unknown provider", func(c *Config) { c.API.Provider = "gopher" }, true},
		{"page size too large", func(c *Config) { c.API.PageSize = 101 }, true},
		{"zero min query length", func(c *Config) { c.Feed.MinQueryLength = 0 }, true},
		{"zero fallback pages", func(c *Config) { c.Feed.FallbackTotalPages = 0 }, true},
		{"negative shake threshold", func(c *Config) { c.Shake.Threshold = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := TestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	if cfg == nil {
		t.Fatal("TestConfig() returned nil")
	}
	if cfg.Cache.Enabled {
		t.Error("TestConfig should disable the cache")
	}
	if cfg.API.UserAgent != "headlines-test/1.0" {
		t.Errorf("TestConfig API.UserAgent = %s, want 'headlines-test/1.0'", cfg.API.UserAgent)
	}
}
