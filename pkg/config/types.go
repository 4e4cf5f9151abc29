// Package config provides configuration loading and validation for mvpwatch.
package config

import (
	"time"

	"github.com/mvpwatch/mvpwatch/pkg/mvp"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// ScreenshotPath is the chat-pane image refreshed by an external
	// capture tool. Required by the watch command.
	ScreenshotPath string `yaml:"screenshot_path"`

	// Interval is the delay between watch cycles.
	Interval time.Duration `yaml:"interval,omitempty"`

	// ServerTimezone is the IANA zone of the game server clock that stamps
	// chat lines.
	ServerTimezone string `yaml:"server_timezone,omitempty"`

	Filter    FilterConfig     `yaml:"filter,omitempty"`
	OCR       OCRConfig        `yaml:"ocr,omitempty"`
	Dedup     DedupConfig      `yaml:"dedup,omitempty"`
	Locations []LocationConfig `yaml:"locations,omitempty"`
	Webhooks  []WebhookConfig  `yaml:"webhooks,omitempty"`
	Log       LogConfig        `yaml:"log,omitempty"`

	// MetricsAddr enables a Prometheus /metrics listener when set.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`

	// zone is the loaded ServerTimezone (populated during validation).
	zone *time.Location
}

// Zone returns the loaded server time zone.
func (c *Config) Zone() *time.Location {
	if c.zone == nil {
		return time.UTC
	}
	return c.zone
}

// LocationRules converts the configured location table into parser rules.
// It returns nil when no table is configured.
func (c *Config) LocationRules() []mvp.KeywordRule {
	if len(c.Locations) == 0 {
		return nil
	}
	rules := make([]mvp.KeywordRule, len(c.Locations))
	for i, l := range c.Locations {
		rules[i] = mvp.KeywordRule{Keywords: l.Keywords, Value: l.Name}
	}
	return rules
}

// ParserOptions returns the mvp.Parser options described by the config.
func (c *Config) ParserOptions() []mvp.Option {
	opts := []mvp.Option{
		mvp.WithZone(c.Zone()),
		mvp.WithLocations(c.LocationRules()),
	}
	if c.Filter.Loose {
		opts = append(opts, mvp.WithLooseFilter())
	}
	return opts
}

// FilterConfig tunes the MVP relevance filter.
type FilterConfig struct {
	// Loose accepts lines with a single MVP indicator.
	Loose bool `yaml:"loose,omitempty"`
}

// OCREngine names an OCR backend.
type OCREngine string

const (
	// OCREngineCommand runs the tesseract CLI.
	OCREngineCommand OCREngine = "command"
	// OCREngineLibrary binds libtesseract (requires the gosseract build tag).
	OCREngineLibrary OCREngine = "library"
	// OCREngineText reads an already recognized .txt file.
	OCREngineText OCREngine = "text"
)

// OCRConfig selects and configures the OCR backend.
type OCRConfig struct {
	Engine OCREngine `yaml:"engine,omitempty"`

	// Binary is the executable for the command engine.
	Binary string `yaml:"binary,omitempty"`

	// Args are extra arguments for the command engine.
	Args []string `yaml:"args,omitempty"`

	// Language is the tesseract language code.
	Language string `yaml:"language,omitempty"`
}

// DedupConfig bounds the seen-entry cache.
type DedupConfig struct {
	MaxEntries int           `yaml:"max_entries,omitempty"`
	TTL        time.Duration `yaml:"ttl,omitempty"`
}

// LocationConfig is one row of the ordered location table.
type LocationConfig struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// WebhookFormat selects the payload shape posted to a webhook.
type WebhookFormat string

const (
	// WebhookFormatJSON posts the entry as plain JSON (default).
	WebhookFormatJSON WebhookFormat = "json"
	// WebhookFormatDiscord posts a Discord webhook message with an embed.
	WebhookFormatDiscord WebhookFormat = "discord"
)

// WebhookConfig defines a webhook endpoint that receives new entries.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Format selects the payload. Defaults to "json".
	Format WebhookFormat `yaml:"format,omitempty"`

	// Mention is prepended to Discord messages, e.g. "<@&1234>".
	Mention string `yaml:"mention,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text, json
}
