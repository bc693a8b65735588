// Package config loads and validates the cratesync TOML configuration.
//
// Configuration resolution order: explicit --config flag, then
// ~/.config/cratesync/config.toml, then ./cratesync.toml. Missing files
// fall back to defaults; per-site rate limit and retry settings default
// to values safe for Gazelle trackers (10 calls per 10 seconds).
package config
