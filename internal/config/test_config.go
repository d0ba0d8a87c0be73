package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	d := defaultConfig()
	return &Config{
		API: APIConfig{
			Provider:          ProviderNewsAPI,
			BaseURL:           "http://127.0.0.1:0",
			Key:               "test-key",
			Country:           "us",
			Language:          "en",
			PageSize:          20,
			HTTPTimeout:       5 * time.Second,
			UserAgent:         "headlines-test/1.0",
			RequestsPerSecond: 0, // unlimited
		},
		Feed: d.Feed,
		Shake: ShakeConfig{
			Threshold: 3.0,
			Interval:  100 * time.Millisecond,
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     time.Minute,
			Timeout: 1 * time.Second,
		},
		UI:    d.UI,
		Media: d.Media,
		Keys:  d.Keys,
		Log:   LogConfig{Level: "off"},
	}
}
