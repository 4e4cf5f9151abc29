package config

import (
	"os"
	"time"
)

// Default values for configuration.
const (
	DefaultInterval       = 5 * time.Second
	DefaultServerTimezone = "UTC"
	DefaultOCRBinary      = "tesseract"
	DefaultOCRLanguage    = "eng"
	DefaultMaxEntries     = 1000
	DefaultDedupTTL       = 6 * time.Hour
	DefaultWebhookTimeout = 10 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Environment variable names.
const (
	EnvScreenshotPath = "MVPWATCH_SCREENSHOT_PATH"
	EnvTimezone       = "MVPWATCH_TIMEZONE"
	EnvLogLevel       = "MVPWATCH_LOG_LEVEL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval:       DefaultInterval,
		ServerTimezone: DefaultServerTimezone,
		OCR: OCRConfig{
			Engine:   OCREngineCommand,
			Binary:   DefaultOCRBinary,
			Language: DefaultOCRLanguage,
		},
		Dedup: DedupConfig{
			MaxEntries: DefaultMaxEntries,
			TTL:        DefaultDedupTTL,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if path := os.Getenv(EnvScreenshotPath); path != "" {
		c.ScreenshotPath = path
	}
	if tz := os.Getenv(EnvTimezone); tz != "" {
		c.ServerTimezone = tz
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}
