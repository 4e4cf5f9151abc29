package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvpwatch/mvpwatch/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate an mvpwatch configuration file without watching.

Checks:
  - YAML syntax
  - Server time zone
  - OCR engine selection
  - Location table entries
  - Webhook URLs and payload formats
  - Screenshot existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Server timezone: %s\n", cfg.Zone())
	fmt.Fprintf(out, "  Interval:        %s\n", cfg.Interval)
	fmt.Fprintf(out, "  OCR engine:      %s\n", cfg.OCR.Engine)
	fmt.Fprintf(out, "  Filter:          %s\n", filterMode(cfg.Filter.Loose))
	fmt.Fprintf(out, "  Dedup:           %d entries, %s\n", cfg.Dedup.MaxEntries, cfg.Dedup.TTL)
	fmt.Fprintf(out, "  Webhooks:        %d\n", len(cfg.Webhooks))

	if len(cfg.Locations) > 0 {
		fmt.Fprintf(out, "\nLocations:\n")
		for i, l := range cfg.Locations {
			fmt.Fprintf(out, "  %d. %s %v\n", i+1, l.Name, l.Keywords)
		}
	} else {
		fmt.Fprintf(out, "\nLocations: built-in table\n")
	}

	for i, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}
		fmt.Fprintf(out, "\nWebhook %d: %s (%s, timeout %s)\n", i+1, name, wh.Format, wh.Timeout)
	}

	// Missing screenshots are not fatal: the capture tool may not be running yet
	if cfg.ScreenshotPath == "" {
		fmt.Fprintf(out, "\nWarning: screenshot_path not set; watch will fail\n")
	} else if status, ok := screenshotStatus(cfg.ScreenshotPath); !ok {
		fmt.Fprintf(out, "\nWarning: screenshot %s %s\n", cfg.ScreenshotPath, status)
	} else {
		fmt.Fprintf(out, "\nScreenshot: %s (%s)\n", cfg.ScreenshotPath, status)
	}

	return nil
}

func filterMode(loose bool) string {
	if loose {
		return "loose"
	}
	return "strict"
}
