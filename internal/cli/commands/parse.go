package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvpwatch/mvpwatch/pkg/chat"
	"github.com/mvpwatch/mvpwatch/pkg/config"
	"github.com/mvpwatch/mvpwatch/pkg/mvp"
	"github.com/mvpwatch/mvpwatch/pkg/output"
	"github.com/mvpwatch/mvpwatch/pkg/seen"
	"github.com/mvpwatch/mvpwatch/pkg/telemetry"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	Output   string
	Config   string
	Timezone string
	LogLevel string
	Loose    bool
	Flatten  bool
	Dedup    bool
	Verbose  bool
	Quiet    bool
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [text-file...]",
		Short: "Extract MVP timers from recognized chat text",
		Long: `Extract MVP spawn timers from chat text that has already been run
through OCR. Reads the file arguments (glob patterns allowed), or stdin
when the argument is "-" or absent. Files are processed in sorted order.

Use --flatten for raw OCR output with one chat row per line; rows are
trimmed and joined before messages are segmented on their [HH:MM] stamps.
Use --dedup when replaying successive captures of the same chat pane to
report each timer once, the way watch would notify it.

Exit codes:
  0 - At least one timer found
  1 - No timers found
  2 - Input or runtime error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "Config file for time zone, filter and location table")
	cmd.Flags().StringVar(&opts.Timezone, "timezone", "", "IANA time zone of the server clock (overrides config)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "warn", "Log level for parser diagnostics (debug|info|warn|error)")
	cmd.Flags().BoolVar(&opts.Loose, "loose", false, "Accept lines with a single MVP indicator")
	cmd.Flags().BoolVar(&opts.Flatten, "flatten", false, "Join raw OCR rows before segmenting")
	cmd.Flags().BoolVar(&opts.Dedup, "dedup", false, "Report each timer once across all inputs")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show the original chat line of each timer")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter, ok := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if !ok {
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}

	sources, err := expandInputs(args)
	if err != nil {
		return err
	}

	logger := telemetry.NewLogger(cmd.ErrOrStderr(), opts.LogLevel, "text")
	parserOpts, err := parseParserOptions(ctx, opts)
	if err != nil {
		return err
	}
	parser := mvp.NewParser(append(parserOpts, mvp.WithLogger(logger))...)

	var cache *seen.Cache
	if opts.Dedup {
		cache = seen.New(seen.DefaultMaxEntries, seen.DefaultTTL)
	}

	var entries []mvp.Entry
	segmented := 0
	for _, source := range sources {
		text, err := readInput(cmd.InOrStdin(), source)
		if err != nil {
			return err
		}
		if opts.Flatten {
			text = chat.Flatten(text)
		}

		lines := chat.Lines(text)
		segmented += len(lines)
		for e := range parser.EntriesFrom(slices.Values(lines)) {
			if cache != nil && !cache.Add(e.Key()) {
				continue
			}
			entries = append(entries, e)
		}
	}

	report := output.NewReport(entries, segmented, output.Metadata{
		Source:         strings.Join(sources, ", "),
		ServerTimezone: parser.Zone().String(),
		ParsedAt:       time.Now(),
	})

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if !report.HasEntries() {
		ExitCode = 1
	}

	return nil
}

// parseParserOptions merges the optional config file with flag overrides.
func parseParserOptions(ctx context.Context, opts *ParseOptions) ([]mvp.Option, error) {
	var parserOpts []mvp.Option

	if opts.Config != "" {
		cfg, err := config.Load(ctx, opts.Config)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		parserOpts = cfg.ParserOptions()
	}

	if opts.Timezone != "" {
		zone, err := time.LoadLocation(opts.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", opts.Timezone, err)
		}
		parserOpts = append(parserOpts, mvp.WithZone(zone))
	}

	if opts.Loose {
		parserOpts = append(parserOpts, mvp.WithLooseFilter())
	}

	return parserOpts, nil
}

// readInput reads source, or stdin when source is "-".
func readInput(stdin io.Reader, source string) (string, error) {
	if source == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(source) // #nosec G304 -- user-provided input path is expected
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}
