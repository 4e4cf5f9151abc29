package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvpwatch/mvpwatch/pkg/chat"
	"github.com/mvpwatch/mvpwatch/pkg/config"
	"github.com/mvpwatch/mvpwatch/pkg/mvp"
	"github.com/mvpwatch/mvpwatch/pkg/ocr"
)

// staleAfter is how many intervals a screenshot may go unmodified before
// the capture tool is suspected to have stopped.
const staleAfter = 12

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common setup issues",
		Long: `Diagnose common setup issues.

This command checks your configuration and environment for common problems:
- Config file syntax and structure
- Screenshot existence and freshness
- OCR engine availability
- Location table overlaps
- Webhook configuration

With --verbose it also runs one OCR pass over the screenshot and probes
each webhook endpoint.

Example:
  mvpwatch diagnose config.yaml
  mvpwatch diagnose -v config.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDiagnose(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Screenshot written by the capture tool
	shot := checkScreenshot(cfg, time.Now())
	results = append(results, shot)

	// 4. OCR engine
	engineResult, engine := checkOCREngine(cfg)
	results = append(results, engineResult)

	// 5. Location table
	results = append(results, checkLocations(cfg))

	// 6. Webhooks
	results = append(results, checkWebhooks(cfg, opts)...)

	// 7. One real pass over the screenshot
	if opts.Verbose && shot.Status != "error" && engine != nil {
		results = append(results, checkRecognition(ctx, cfg, engine))
	}

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"At minimum set screenshot_path and one webhook",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		if strings.Contains(err.Error(), "server_timezone") {
			result.Suggests = append(result.Suggests, "Use an IANA zone name such as America/New_York")
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Server timezone: %s (now %s)", cfg.Zone(), time.Now().In(cfg.Zone()).Format("15:04")),
		fmt.Sprintf("Interval: %s", cfg.Interval),
		fmt.Sprintf("Filter: %s", filterMode(cfg.Filter.Loose)),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	return cfg, result
}

func checkScreenshot(cfg *config.Config, now time.Time) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Screenshot",
	}

	if cfg.ScreenshotPath == "" {
		result.Status = "error"
		result.Message = "No screenshot_path configured"
		result.Suggests = []string{
			fmt.Sprintf("Set screenshot_path in the config or %s in the environment", config.EnvScreenshotPath),
		}
		return result
	}

	info, err := os.Stat(cfg.ScreenshotPath)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Not found: %s", cfg.ScreenshotPath)
		result.Suggests = []string{
			"Start the capture tool that writes the chat-pane screenshot",
			"watch skips cycles until the file appears",
		}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "screenshot_path is a directory, not a file"
		return result
	}

	age := now.Sub(info.ModTime())
	if age > staleAfter*cfg.Interval {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Last modified %s ago", age.Round(time.Second))
		result.Suggests = []string{"The capture tool may have stopped refreshing the screenshot"}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", cfg.ScreenshotPath, info.Size())
	return result
}

func checkOCREngine(cfg *config.Config) (DiagnosticResult, ocr.Engine) {
	result := DiagnosticResult{
		Check: fmt.Sprintf("OCR Engine: %s", cfg.OCR.Engine),
	}

	if cfg.OCR.Engine == config.OCREngineCommand {
		if _, err := exec.LookPath(cfg.OCR.Binary); err != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("%s not found in PATH", cfg.OCR.Binary)
			result.Suggests = []string{
				"Install tesseract (e.g. apt install tesseract-ocr)",
				"Or set ocr.binary to the full path of the executable",
			}
			return result, nil
		}
	}

	engine, err := ocr.New(ocr.Options{
		Engine:   string(cfg.OCR.Engine),
		Binary:   cfg.OCR.Binary,
		Args:     cfg.OCR.Args,
		Language: cfg.OCR.Language,
	})
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot create engine: %v", err)
		if errors.Is(err, ocr.ErrUnavailable) {
			result.Suggests = []string{
				"Rebuild with -tags gosseract, or use engine: command",
			}
		}
		return result, nil
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Ready (language %s)", cfg.OCR.Language)
	if cfg.OCR.Engine == config.OCREngineText {
		result.Message = "Replaying .txt sidecars next to the screenshot"
	}
	return result, engine
}

func checkLocations(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Locations",
	}

	rules := cfg.LocationRules()
	if rules == nil {
		rules = mvp.DefaultLocations
		result.Message = fmt.Sprintf("Built-in table (%d locations)", len(rules))
	} else {
		result.Message = fmt.Sprintf("Custom table (%d locations)", len(rules))
	}

	// A keyword that also matches a later rule's keyword shadows it.
	owner := map[string]string{}
	for _, r := range rules {
		for _, kw := range r.Keywords {
			kw = strings.ToLower(kw)
			if prev, ok := owner[kw]; ok && prev != r.Value {
				result.Details = append(result.Details,
					fmt.Sprintf("Keyword %q is listed for %s and %s; %s wins", kw, prev, r.Value, prev))
				continue
			}
			owner[kw] = r.Value
		}
	}

	if len(result.Details) > 0 {
		result.Status = "warning"
		result.Suggests = []string{"Order locations so the most specific keywords come first"}
		return result
	}

	result.Status = "ok"
	return result
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		results = append(results, DiagnosticResult{
			Check:    "Webhooks",
			Status:   "warning",
			Message:  "No webhooks configured",
			Suggests: []string{"New timers will only be logged"},
		})
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		warnings := []string{}
		if wh.Format == config.WebhookFormatDiscord && !strings.Contains(wh.URL, "/api/webhooks/") {
			warnings = append(warnings, "Format is discord but the URL does not look like a Discord webhook")
		}
		if wh.Mention != "" && wh.Format != config.WebhookFormatDiscord {
			warnings = append(warnings, "mention is only used by the discord format")
		}

		if len(warnings) > 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Format: %s", wh.Format)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", truncate(wh.URL, 60)),
					fmt.Sprintf("Timeout: %s", wh.Timeout),
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

// checkRecognition runs one OCR and parse pass without notifying.
func checkRecognition(ctx context.Context, cfg *config.Config, engine ocr.Engine) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Recognition",
	}

	text, err := engine.Recognize(ctx, cfg.ScreenshotPath)
	if errors.Is(err, ocr.ErrNoText) {
		result.Status = "warning"
		result.Message = "OCR returned no text"
		result.Suggests = []string{"Check that the screenshot covers the chat pane"}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("OCR failed: %v", err)
		return result
	}

	flat := chat.Flatten(text)
	lines := chat.Lines(flat)
	parser := mvp.NewParser(append(cfg.ParserOptions(), mvp.WithLogger(slog.New(slog.DiscardHandler)))...)

	result.Status = "ok"
	result.Message = fmt.Sprintf("%d chat lines recognized", len(lines))
	if len(lines) == 0 {
		result.Status = "warning"
		result.Suggests = []string{"No [HH:MM] stamps were recognized; check the capture region"}
	}
	for e := range parser.Entries(flat) {
		result.Details = append(result.Details, fmt.Sprintf("[%s] MVP time %s, %s ch %s",
			e.Posted, e.SpawnText(), e.Location, e.Channel))
	}
	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== mvpwatch Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before watching.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nSetup is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nSetup looks good!")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
