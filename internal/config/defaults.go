package config

const (
	defaultDataDir            = "~/.local/share/cratesync"
	defaultLogDir             = "~/.local/share/cratesync/logs"
	defaultPlexURL            = "http://localhost:32400"
	defaultPlexSection        = "Music"
	defaultPlexTimeoutSeconds = 1200
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultRateLimitCalls     = 10
	defaultRateLimitSeconds   = 10
	defaultMaxRetries         = 3
	defaultRequestTimeout     = 10
	defaultRetryBaseSeconds   = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Plex: Plex{
			URL:            defaultPlexURL,
			SectionName:    defaultPlexSection,
			TimeoutSeconds: defaultPlexTimeoutSeconds,
		},
		Sites: map[string]Site{},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
