// Package cli provides the command-line interface for mvpwatch.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvpwatch/mvpwatch/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mvpwatch",
		Short: "Turn in-game chat screenshots into MVP spawn alerts",
		Long: `mvpwatch reads MVP announcements from a chat-pane screenshot and
announces each new spawn timer once.

A chat line like

  [13:05] come help mvp at xx:00 ch05 kerning city

becomes a timer posted at 13:05 for 14:00 in Kerning City, channel 5. The
masked hour "xx" is filled in from the time the line was posted.

Commands:
  watch     Poll a screenshot and send new timers to webhooks
  parse     Extract timers from already recognized text
  explain   Show why each chat line was kept or dropped
  diagnose  Check the config, OCR engine and screenshot
  validate  Validate a configuration file`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewExplainCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
