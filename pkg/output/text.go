package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mvpwatch/mvpwatch/pkg/mvp"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		_, err := fmt.Fprintf(w, "mvpwatch: %d lines, %d entries, %d without spawn time\n",
			report.Summary.LinesSegmented,
			report.Summary.Entries,
			report.Summary.UnknownSpawn)
		return err
	}

	var sb strings.Builder
	sb.WriteString("=== MVP Timers ===\n\n")

	if len(report.Entries) == 0 {
		sb.WriteString("No MVP timers found\n\n")
	}
	for i := range report.Entries {
		f.formatEntry(&sb, &report.Entries[i])
	}

	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "Summary: %d lines segmented, %d entries, %d without spawn time\n",
		report.Summary.LinesSegmented,
		report.Summary.Entries,
		report.Summary.UnknownSpawn)

	if f.opts.Verbose && report.Metadata.ServerTimezone != "" {
		fmt.Fprintf(&sb, "Server timezone: %s\n", report.Metadata.ServerTimezone)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// formatEntry writes the same fields a notification shows.
func (f *TextFormatter) formatEntry(sb *strings.Builder, e *mvp.Entry) {
	fmt.Fprintf(sb, "[%s] MVP time: %s\n", e.Posted, e.SpawnText())
	fmt.Fprintf(sb, "  Location: %s\n", e.Location)
	fmt.Fprintf(sb, "  Channel:  %s\n", e.Channel)
	if f.opts.Verbose {
		fmt.Fprintf(sb, "  Message:  %s\n", strings.TrimSpace(e.Message))
		if e.SpawnToken != "" && e.Spawn == nil {
			fmt.Fprintf(sb, "  Unresolved token: %s\n", e.SpawnToken)
		}
	}
	sb.WriteString("\n")
}
