package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvpwatch/mvpwatch/pkg/chat"
	"github.com/mvpwatch/mvpwatch/pkg/mvp"
)

// ExplainOptions holds command-line options for the explain command.
type ExplainOptions struct {
	Output  string
	Loose   bool
	Flatten bool
	All     bool
}

// LineVerdict records what the pipeline decided for one chat line.
type LineVerdict struct {
	Line      string     `json:"line"`
	Hits      int        `json:"indicator_hits"`
	Noisy     bool       `json:"noise_marker"`
	Qualified bool       `json:"qualified"`
	Reason    string     `json:"reason"`
	Entry     *mvp.Entry `json:"entry,omitempty"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand() *cobra.Command {
	opts := &ExplainOptions{}

	cmd := &cobra.Command{
		Use:   "explain [text-file]",
		Short: "Show why each chat line was kept or dropped",
		Long: `Run recognized chat text through the pipeline and report, line by line,
how many MVP indicators matched, whether the noise marker was present, and
why the line did or did not become a timer.

Useful for tuning the filter and location table against real OCR output.

Example:
  mvpwatch explain --flatten ocr.txt
  mvpwatch explain --all -o json ocr.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVar(&opts.Loose, "loose", false, "Accept lines with a single MVP indicator")
	cmd.Flags().BoolVar(&opts.Flatten, "flatten", false, "Join raw OCR rows before segmenting")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Include lines without any indicator")

	return cmd
}

func runExplain(cmd *cobra.Command, args []string, opts *ExplainOptions) error {
	source := "-"
	if len(args) == 1 {
		source = args[0]
	}
	text, err := readInput(cmd.InOrStdin(), source)
	if err != nil {
		return err
	}
	if opts.Flatten {
		text = chat.Flatten(text)
	}

	verdicts := explainLines(chat.Lines(text), opts.Loose)
	if !opts.All {
		kept := verdicts[:0]
		for _, v := range verdicts {
			if v.Hits > 0 {
				kept = append(kept, v)
			}
		}
		verdicts = kept
	}

	switch opts.Output {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(verdicts)
	case "text":
		return writeVerdicts(cmd.OutOrStdout(), verdicts)
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
}

// explainLines evaluates each line the way the parser does.
func explainLines(lines []string, loose bool) []LineVerdict {
	filter := mvp.NewFilter(loose)
	parserOpts := []mvp.Option{mvp.WithLogger(slog.New(slog.DiscardHandler))}
	if loose {
		parserOpts = append(parserOpts, mvp.WithLooseFilter())
	}
	parser := mvp.NewParser(parserOpts...)

	verdicts := make([]LineVerdict, 0, len(lines))
	for _, line := range lines {
		v := LineVerdict{
			Line:  line,
			Hits:  filter.Hits(line),
			Noisy: mvp.Noisy(line),
		}
		v.Qualified = filter.Match(line)

		switch {
		case v.Noisy:
			v.Reason = "noise marker present"
		case !v.Qualified:
			v.Reason = fmt.Sprintf("too few indicators (%d < %d)", v.Hits, filter.MinHits())
		default:
			v.Reason = explainCandidate(parser, line, &v)
		}
		verdicts = append(verdicts, v)
	}
	return verdicts
}

func explainCandidate(parser *mvp.Parser, line string, v *LineVerdict) string {
	if _, _, err := mvp.ParsePosted(strings.ToLower(line)); err != nil {
		return "bad time marker"
	}

	e, ok := parser.Entry(line)
	if !ok {
		return "no masked time or extension"
	}
	v.Entry = &e

	switch {
	case e.Spawn != nil:
		return "timer"
	case e.SpawnToken != "":
		return fmt.Sprintf("timer, spawn %q unresolved", e.SpawnToken)
	default:
		return "timer, extension without time"
	}
}

func writeVerdicts(w io.Writer, verdicts []LineVerdict) error {
	var sb strings.Builder
	sb.WriteString("=== Line Verdicts ===\n\n")

	timers := 0
	for _, v := range verdicts {
		mark := "DROP"
		if v.Entry != nil {
			mark = "KEEP"
			timers++
		}
		fmt.Fprintf(&sb, "[%s] %s\n", mark, strings.TrimSpace(v.Line))
		fmt.Fprintf(&sb, "    hits: %d  reason: %s\n", v.Hits, v.Reason)
		if v.Entry != nil {
			fmt.Fprintf(&sb, "    spawn: %s  location: %s  channel: %s\n",
				v.Entry.SpawnText(), v.Entry.Location, v.Entry.Channel)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "Summary: %d lines shown, %d timers\n", len(verdicts), timers)

	_, err := io.WriteString(w, sb.String())
	return err
}
