package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Providers understood by API.Provider.
const (
	ProviderNewsAPI = "newsapi"
	ProviderRSS     = "rss"
)

type Config struct {
	API   APIConfig   `mapstructure:"api"`
	Feed  FeedConfig  `mapstructure:"feed"`
	Shake ShakeConfig `mapstructure:"shake"`
	Cache CacheConfig `mapstructure:"cache"`
	UI    UIConfig    `mapstructure:"ui"`
	Media MediaConfig `mapstructure:"media"`
	Keys  KeyConfig   `mapstructure:"keys"`
	Log   LogConfig   `mapstructure:"log"`
}

type APIConfig struct {
	Provider          string        `mapstructure:"provider"`
	BaseURL           string        `mapstructure:"base_url"`
	Key               string        `mapstructure:"key"`
	Country           string        `mapstructure:"country"`
	Language          string        `mapstructure:"language"`
	PageSize          int           `mapstructure:"page_size"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	RSSURL            string        `mapstructure:"rss_url"`
}

type FeedConfig struct {
	MinQueryLength     int `mapstructure:"min_query_length"`
	FallbackTotalPages int `mapstructure:"fallback_total_pages"`
	LoadMoreThreshold  int `mapstructure:"load_more_threshold"`
}

type ShakeConfig struct {
	Threshold  float64       `mapstructure:"threshold"`
	Interval   time.Duration `mapstructure:"interval"`
	SensorPath string        `mapstructure:"sensor_path"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"`
	Timeout time.Duration `mapstructure:"timeout"`
	Index   string        `mapstructure:"index"`
}

type UIConfig struct {
	Colors  UIColors      `mapstructure:"colors"`
	Article ArticleConfig `mapstructure:"article"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type ArticleConfig struct {
	MaxDescriptionLength int `mapstructure:"max_description_length"`
	WordWrapMaxWidth     int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth     int `mapstructure:"word_wrap_min_width"`
}

type MediaConfig struct {
	Darwin        MediaViewers `mapstructure:"darwin"`
	Linux         MediaViewers `mapstructure:"linux"`
	Windows       MediaViewers `mapstructure:"windows"`
	DefaultOpener string       `mapstructure:"default_opener"`
}

type MediaViewers struct {
	Image []string `mapstructure:"image"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit      string `mapstructure:"quit"`
	Search    string `mapstructure:"search"`
	Refresh   string `mapstructure:"refresh"`
	Shake     string `mapstructure:"shake"`
	OpenLink  string `mapstructure:"open_link"`
	OpenImage string `mapstructure:"open_image"`
	Back      string `mapstructure:"back"`
	Help      string `mapstructure:"help"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".headlines")

	return &Config{
		API: APIConfig{
			Provider:          ProviderNewsAPI,
			BaseURL:           "https://newsapi.org/v2",
			Country:           "us",
			Language:          "en",
			PageSize:          20,
			HTTPTimeout:       30 * time.Second,
			UserAgent:         "headlines/1.0 (https://github.com/pders01/headlines)",
			RequestsPerSecond: 1,
			RSSURL:            "https://feeds.bbci.co.uk/news/rss.xml",
		},
		Feed: FeedConfig{
			MinQueryLength:     3,
			FallbackTotalPages: 5,
			LoadMoreThreshold:  3,
		},
		Shake: ShakeConfig{
			Threshold: 3.0,
			Interval:  100 * time.Millisecond,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir, "cache.db"),
			TTL:     5 * time.Minute,
			Timeout: 1 * time.Second,
			Index:   filepath.Join(dataDir, "index.bleve"),
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#0288D1",
				Secondary:  "#4ECDC4",
				Accent:     "#FFCA28",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			Article: ArticleConfig{
				MaxDescriptionLength: 150,
				WordWrapMaxWidth:     120,
				WordWrapMinWidth:     40,
			},
		},
		Media: MediaConfig{
			Darwin: MediaViewers{
				Image: []string{"qlmanage", "open"},
			},
			Linux: MediaViewers{
				Image: []string{"sxiv", "feh", "eog", "xdg-open"},
			},
			Windows: MediaViewers{
				Image: []string{"start"},
			},
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:      "q",
				Search:    "s",
				Refresh:   "r",
				Shake:     "k",
				OpenLink:  "o",
				OpenImage: "p",
				Back:      "esc",
				Help:      "?",
			},
		},
		Log: LogConfig{
			Level:      "off",
			File:       filepath.Join(dataDir, "headlines.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v, "", settings(defaultConfig()))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "headlines")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HEADLINES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	return &config, nil
}

// Validate reports settings that would make the client unusable.
func (c *Config) Validate() error {
	switch c.API.Provider {
	case ProviderNewsAPI:
		if strings.TrimSpace(c.API.Key) == "" {
			return fmt.Errorf("api.key is required for the %s provider (set HEADLINES_API_KEY)", ProviderNewsAPI)
		}
		if c.API.BaseURL == "" {
			return fmt.Errorf("api.base_url cannot be empty")
		}
	case ProviderRSS:
		if c.API.RSSURL == "" {
			return fmt.Errorf("api.rss_url cannot be empty for the %s provider", ProviderRSS)
		}
	default:
		return fmt.Errorf("unknown api.provider %q", c.API.Provider)
	}
	if c.API.PageSize <= 0 || c.API.PageSize > 100 {
		return fmt.Errorf("api.page_size must be between 1 and 100, got %d", c.API.PageSize)
	}
	if c.Feed.MinQueryLength < 1 {
		return fmt.Errorf("feed.min_query_length must be positive")
	}
	if c.Feed.FallbackTotalPages < 1 {
		return fmt.Errorf("feed.fallback_total_pages must be positive")
	}
	if c.Shake.Threshold <= 0 {
		return fmt.Errorf("shake.threshold must be positive")
	}
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Cache.Path = expandPath(cfg.Cache.Path)
	cfg.Cache.Index = expandPath(cfg.Cache.Index)
	cfg.Log.File = expandPath(cfg.Log.File)
	// "-" reads sensor samples from stdin
	if cfg.Shake.SensorPath != "-" {
		cfg.Shake.SensorPath = expandPath(cfg.Shake.SensorPath)
	}
}

func Save(config *Config, path string) error {
	v := viper.New()
	for section, values := range settings(config) {
		v.Set(section, values)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

// setDefaults registers every leaf of m individually so a config file that
// only sets some keys of a section keeps the defaults for the rest.
func setDefaults(v *viper.Viper, prefix string, m map[string]interface{}) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]interface{}); ok {
			setDefaults(v, key, nested)
			continue
		}
		v.SetDefault(key, val)
	}
}

// settings flattens the config into the nested key layout used on disk.
// Durations are rendered as strings for TOML readability.
func settings(config *Config) map[string]interface{} {
	apiCfg := map[string]interface{}{
		"provider":            config.API.Provider,
		"base_url":            config.API.BaseURL,
		"key":                 config.API.Key,
		"country":             config.API.Country,
		"language":            config.API.Language,
		"page_size":           config.API.PageSize,
		"http_timeout":        config.API.HTTPTimeout.String(),
		"user_agent":          config.API.UserAgent,
		"requests_per_second": config.API.RequestsPerSecond,
		"rss_url":             config.API.RSSURL,
	}

	shakeCfg := map[string]interface{}{
		"threshold":   config.Shake.Threshold,
		"interval":    config.Shake.Interval.String(),
		"sensor_path": config.Shake.SensorPath,
	}

	cacheCfg := map[string]interface{}{
		"enabled": config.Cache.Enabled,
		"path":    config.Cache.Path,
		"ttl":     config.Cache.TTL.String(),
		"timeout": config.Cache.Timeout.String(),
		"index":   config.Cache.Index,
	}

	feedCfg := map[string]interface{}{
		"min_query_length":     config.Feed.MinQueryLength,
		"fallback_total_pages": config.Feed.FallbackTotalPages,
		"load_more_threshold":  config.Feed.LoadMoreThreshold,
	}

	uiCfg := map[string]interface{}{
		"colors": map[string]interface{}{
			"primary":    config.UI.Colors.Primary,
			"secondary":  config.UI.Colors.Secondary,
			"accent":     config.UI.Colors.Accent,
			"background": config.UI.Colors.Background,
			"surface":    config.UI.Colors.Surface,
			"text":       config.UI.Colors.Text,
			"muted":      config.UI.Colors.Muted,
			"error":      config.UI.Colors.Error,
			"success":    config.UI.Colors.Success,
		},
		"article": map[string]interface{}{
			"max_description_length": config.UI.Article.MaxDescriptionLength,
			"word_wrap_max_width":    config.UI.Article.WordWrapMaxWidth,
			"word_wrap_min_width":    config.UI.Article.WordWrapMinWidth,
		},
	}

	mediaCfg := map[string]interface{}{
		"darwin":         map[string]interface{}{"image": config.Media.Darwin.Image},
		"linux":          map[string]interface{}{"image": config.Media.Linux.Image},
		"windows":        map[string]interface{}{"image": config.Media.Windows.Image},
		"default_opener": config.Media.DefaultOpener,
	}

	b := config.Keys.Bindings
	keysCfg := map[string]interface{}{
		"modifier": config.Keys.Modifier,
		"bindings": map[string]interface{}{
			"quit":       b.Quit,
			"search":     b.Search,
			"refresh":    b.Refresh,
			"shake":      b.Shake,
			"open_link":  b.OpenLink,
			"open_image": b.OpenImage,
			"back":       b.Back,
			"help":       b.Help,
		},
	}

	logCfg := map[string]interface{}{
		"level":        config.Log.Level,
		"file":         config.Log.File,
		"max_size_mb":  config.Log.MaxSizeMB,
		"max_backups":  config.Log.MaxBackups,
		"max_age_days": config.Log.MaxAgeDays,
	}

	return map[string]interface{}{
		"api":   apiCfg,
		"feed":  feedCfg,
		"shake": shakeCfg,
		"cache": cacheCfg,
		"ui":    uiCfg,
		"media": mediaCfg,
		"keys":  keysCfg,
		"log":   logCfg,
	}
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
