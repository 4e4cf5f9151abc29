package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors, fills defaults and loads the
// server time zone.
func Validate(cfg *Config) error {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	if cfg.ServerTimezone == "" {
		cfg.ServerTimezone = DefaultServerTimezone
	}
	zone, err := time.LoadLocation(cfg.ServerTimezone)
	if err != nil {
		return fmt.Errorf("server_timezone: %w", err)
	}
	cfg.zone = zone

	if err := validateOCR(&cfg.OCR); err != nil {
		return fmt.Errorf("ocr: %w", err)
	}

	if cfg.Dedup.MaxEntries <= 0 {
		cfg.Dedup.MaxEntries = DefaultMaxEntries
	}
	if cfg.Dedup.TTL <= 0 {
		cfg.Dedup.TTL = DefaultDedupTTL
	}

	for i := range cfg.Locations {
		if err := validateLocation(&cfg.Locations[i]); err != nil {
			return fmt.Errorf("locations[%d] (%s): %w", i, cfg.Locations[i].Name, err)
		}
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	return nil
}

// RequireScreenshot reports an error when no screenshot path is configured.
func (c *Config) RequireScreenshot() error {
	if c.ScreenshotPath == "" {
		return fmt.Errorf("screenshot_path is required (or set %s)", EnvScreenshotPath)
	}
	return nil
}

func validateOCR(o *OCRConfig) error {
	if o.Engine == "" {
		o.Engine = OCREngineCommand
	}

	switch o.Engine {
	case OCREngineCommand, OCREngineLibrary, OCREngineText:
	default:
		return fmt.Errorf("invalid engine %q (must be command, library, or text)", o.Engine)
	}

	if o.Binary == "" {
		o.Binary = DefaultOCRBinary
	}
	if o.Language == "" {
		o.Language = DefaultOCRLanguage
	}

	return nil
}

func validateLocation(l *LocationConfig) error {
	if l.Name == "" {
		return errors.New("name is required")
	}

	keywords := l.Keywords[:0]
	for _, kw := range l.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) == 0 {
		return errors.New("at least one keyword is required")
	}
	l.Keywords = keywords

	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	// Validate URL format
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token and mention
	wh.Token = expandEnvVar(wh.Token)
	wh.Mention = expandEnvVar(wh.Mention)

	switch wh.Format {
	case "":
		wh.Format = WebhookFormatJSON
	case WebhookFormatJSON, WebhookFormatDiscord:
	default:
		return fmt.Errorf("invalid format %q (must be json or discord)", wh.Format)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

func validateLog(l *LogConfig) error {
	l.Level = strings.ToLower(l.Level)
	switch l.Level {
	case "":
		l.Level = DefaultLogLevel
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid level %q (must be debug, info, warn, or error)", l.Level)
	}

	l.Format = strings.ToLower(l.Format)
	switch l.Format {
	case "":
		l.Format = DefaultLogFormat
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q (must be text or json)", l.Format)
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}

	return s
}
