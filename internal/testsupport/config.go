package testsupport

import (
	"path/filepath"
	"testing"

	"cratesync/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test
// and one "red" test site.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Plex.URL = "http://127.0.0.1:32400"
	cfg.Plex.Token = "test-token"
	cfg.Sites = map[string]config.Site{
		"red": {
			BaseURL:          "https://red.test",
			APIKey:           "test-key",
			RateLimitCalls:   100,
			RateLimitSeconds: 1,
			MaxRetries:       2,
			RequestTimeout:   5,
			RetryBaseSeconds: 1,
		},
	}
	return &cfg
}
