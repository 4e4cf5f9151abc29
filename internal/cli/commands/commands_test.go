package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/mvpwatch/mvpwatch/pkg/config"
)

const sampleChat = `[13:04] anyone selling arrows
[13:05] come help mvp at xx:00 ch05 kerning city mvp
[13:07] mvp xx:30 ch 3 hene
[10:02] mvp extend extend
`

// runCommand executes cmd with args and stdin, returning stdout.
func runCommand(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	ExitCode = 0
	t.Cleanup(func() { ExitCode = 0 })

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create %s: %v", name, err)
	}
	return path
}

func TestNewParseCommand(t *testing.T) {
	cmd := NewParseCommand()

	if cmd.Use != "parse [text-file...]" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	flags := []string{"output", "config", "timezone", "loose", "flatten", "dedup", "verbose", "quiet"}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	if cmd.Use != "validate <config-file>" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	if !strings.Contains(cmd.Long, "Validate") {
		t.Error("Missing description in Long")
	}
}

func TestNewVersionCommand(t *testing.T) {
	out, err := runCommand(t, NewVersionCommand(), "")
	if err != nil {
		t.Fatal(err)
	}
	if out != "mvpwatch dev\n" {
		t.Errorf("version output = %q", out)
	}
}

func TestRunParse_Stdin(t *testing.T) {
	out, err := runCommand(t, NewParseCommand(), sampleChat)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	checks := []string{
		"[13:05] MVP time: 14:00",
		"Location: Kerning City",
		"[13:07] MVP time: 13:30",
		"Location: Henesys",
		"[10:02] MVP time: Unknown",
		"Summary: 4 lines segmented, 3 entries, 1 without spawn time",
	}
	for _, c := range checks {
		if !strings.Contains(out, c) {
			t.Errorf("output missing %q:\n%s", c, out)
		}
	}
	if strings.Contains(out, "arrows") {
		t.Error("unrelated chat should be filtered")
	}
	if ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", ExitCode)
	}
}

func TestRunParse_JSONFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "chat.txt", "[13:05] come help mvp at xx:00 ch05 kerning city mvp")

	out, err := runCommand(t, NewParseCommand(), "", "-o", "json", path)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	var report struct {
		Entries []struct {
			Posted   string `json:"posted_time"`
			Spawn    string `json:"spawn_time"`
			Location string `json:"location"`
			Channel  string `json:"channel"`
		} `json:"entries"`
		Metadata struct {
			Source string `json:"source"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(report.Entries) != 1 {
		t.Fatalf("entries = %+v, want 1", report.Entries)
	}
	e := report.Entries[0]
	if e.Posted != "13:05" || e.Spawn != "14:00" || e.Location != "Kerning City" || e.Channel != "5" {
		t.Errorf("entry = %+v", e)
	}
	if report.Metadata.Source != path {
		t.Errorf("source = %q, want %q", report.Metadata.Source, path)
	}
}

func TestRunParse_Flatten(t *testing.T) {
	// OCR wraps one chat message over two rows.
	raw := "[13:05] come help mvp at\n  xx:00 ch05 kerning city\n\n"

	out, err := runCommand(t, NewParseCommand(), raw, "--flatten")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !strings.Contains(out, "[13:05] MVP time: 14:00") {
		t.Errorf("flattened message not parsed:\n%s", out)
	}
}

func TestRunParse_LooseFilter(t *testing.T) {
	line := "[09:10] boss at x:45 ch 2"

	if _, err := runCommand(t, NewParseCommand(), line); err != nil {
		t.Fatal(err)
	}
	if ExitCode != 1 {
		t.Errorf("strict ExitCode = %d, want 1", ExitCode)
	}

	out, err := runCommand(t, NewParseCommand(), line, "--loose")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "[09:10] MVP time: 09:45") {
		t.Errorf("loose output:\n%s", out)
	}
}

func TestRunParse_NoEntries(t *testing.T) {
	out, err := runCommand(t, NewParseCommand(), "no markers here mvp mvp")
	if err != nil {
		t.Fatal(err)
	}
	if ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", ExitCode)
	}
	if !strings.Contains(out, "No MVP timers found") {
		t.Errorf("output = %q", out)
	}
}

func TestRunParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"/nonexistent/chat.txt"}, "reading input"},
		{"bad output", []string{"-o", "xml"}, "unknown output format"},
		{"bad timezone", []string{"--timezone", "Mars/Olympus"}, "invalid timezone"},
		{"bad config", []string{"--config", "/nonexistent/config.yaml"}, "loading config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, NewParseCommand(), sampleChat, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRunParse_MultipleFilesDedup(t *testing.T) {
	dir := t.TempDir()
	line := "[13:05] come help mvp at xx:00 ch05 kerning city mvp\n"
	writeFile(t, dir, "capture-01.txt", line)
	writeFile(t, dir, "capture-02.txt", line+"[13:07] mvp xx:30 ch 3 hene\n")
	pattern := filepath.Join(dir, "capture-*.txt")

	out, err := runCommand(t, NewParseCommand(), "", pattern)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !strings.Contains(out, "Summary: 3 lines segmented, 3 entries, 0 without spawn time") {
		t.Errorf("without dedup:\n%s", out)
	}

	out, err = runCommand(t, NewParseCommand(), "", "--dedup", pattern)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !strings.Contains(out, "Summary: 3 lines segmented, 2 entries, 0 without spawn time") {
		t.Errorf("with dedup:\n%s", out)
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "")
	b := writeFile(t, dir, "b.txt", "")
	missing := filepath.Join(dir, "missing.txt")

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{"none means stdin", nil, []string{"-"}},
		{"stdin", []string{"-"}, []string{"-"}},
		{"glob", []string{filepath.Join(dir, "*.txt")}, []string{a, b}},
		{"overlap", []string{b, filepath.Join(dir, "*.txt")}, []string{a, b}},
		{"unmatched kept", []string{missing}, []string{missing}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandInputs(tt.patterns)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("expandInputs(%v) = %v, want %v", tt.patterns, got, tt.want)
			}
		})
	}

	if _, err := expandInputs([]string{"[bad"}); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestRunParse_ConfigLocations(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", `server_timezone: Asia/Seoul
locations:
  - name: Ardentmill
    keywords: [ardent]
`)

	out, err := runCommand(t, NewParseCommand(), "[11:00] mvp xx:20 ardent ch9", "-v", "--config", cfg)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	for _, c := range []string{"Location: Ardentmill", "Channel:  9", "Server timezone: Asia/Seoul"} {
		if !strings.Contains(out, c) {
			t.Errorf("output missing %q:\n%s", c, out)
		}
	}
}

func TestRunValidate_Success(t *testing.T) {
	dir := t.TempDir()
	shot := writeFile(t, dir, "chat.png", "png")
	configPath := writeFile(t, dir, "config.yaml", `screenshot_path: `+shot+`
webhooks:
  - name: alerts
    url: https://example.com/hook
`)

	out, err := runCommand(t, NewValidateCommand(), "", configPath)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	for _, c := range []string{"Configuration valid!", "Webhook 1: alerts (json", "Screenshot: " + shot} {
		if !strings.Contains(out, c) {
			t.Errorf("output missing %q:\n%s", c, out)
		}
	}
}

func TestRunValidate_MissingScreenshotWarns(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yaml", "screenshot_path: "+filepath.Join(dir, "none.png")+"\n")

	out, err := runCommand(t, NewValidateCommand(), "", configPath)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !strings.Contains(out, "Warning: screenshot") {
		t.Errorf("expected screenshot warning:\n%s", out)
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "invalid.yaml", "invalid: yaml: content")

	if _, err := runCommand(t, NewValidateCommand(), "", configPath); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	if _, err := runCommand(t, NewValidateCommand(), "", "/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestRunExplain(t *testing.T) {
	input := sampleChat + "[13:09] tempest mvp mvp\n[27:99] mvp xx:00\n"

	out, err := runCommand(t, NewExplainCommand(), input, "-o", "json")
	if err != nil {
		t.Fatalf("explain failed: %v", err)
	}

	var verdicts []LineVerdict
	if err := json.Unmarshal([]byte(out), &verdicts); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}

	reasons := map[string]string{}
	for _, v := range verdicts {
		reasons[strings.TrimSpace(v.Line)[:7]] = v.Reason
	}

	want := map[string]string{
		"[13:05]": "timer",
		"[10:02]": "timer, extension without time",
		"[13:09]": "noise marker present",
		"[27:99]": "bad time marker",
	}
	for k, v := range want {
		if reasons[k] != v {
			t.Errorf("reason for %s = %q, want %q", k, reasons[k], v)
		}
	}
	if _, ok := reasons["[13:04]"]; ok {
		t.Error("lines without indicators should be hidden without --all")
	}
}

func TestRunExplain_Text(t *testing.T) {
	out, err := runCommand(t, NewExplainCommand(), "[10:00] hello\n[10:01] mvp only", "--all")
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []string{"[DROP] [10:00] hello", "too few indicators (1 < 2)", "Summary: 2 lines shown, 0 timers"} {
		if !strings.Contains(out, c) {
			t.Errorf("output missing %q:\n%s", c, out)
		}
	}
}

func TestRunWatch_Once(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	dir := t.TempDir()
	shot := writeFile(t, dir, "chat.png", "png")
	writeFile(t, dir, "chat.txt", "[13:05] come help mvp at xx:00\nch05 kerning city mvp\n")
	configPath := writeFile(t, dir, "config.yaml", `screenshot_path: `+shot+`
ocr:
  engine: text
log:
  level: error
webhooks:
  - name: test
    url: `+server.URL+`
`)

	out, err := runCommand(t, NewWatchCommand(), "", "--once", configPath)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	if !strings.Contains(out, "1 parsed, 1 notified, 0 failed") {
		t.Errorf("output = %q", out)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 {
		t.Fatalf("webhook received %d requests, want 1", len(bodies))
	}
	if bodies[0]["spawn_time"] != "14:00" || bodies[0]["location"] != "Kerning City" {
		t.Errorf("payload = %v", bodies[0])
	}
}

func TestRunWatch_RequiresScreenshot(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "config.yaml", "interval: 1s\n")
	t.Setenv("MVPWATCH_SCREENSHOT_PATH", "")

	_, err := runCommand(t, NewWatchCommand(), "", "--once", configPath)
	if err == nil || !strings.Contains(err.Error(), "screenshot_path is required") {
		t.Errorf("error = %v", err)
	}
}

func TestWebhookTargets(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yaml", `webhooks:
  - url: https://example.com/a
  - name: discord
    url: https://discord.com/api/webhooks/1/x
    format: discord
    mention: "<@&1>"
`)
	cfg, err := config.Load(context.Background(), configPath)
	if err != nil {
		t.Fatal(err)
	}

	targets := webhookTargets(cfg)
	if len(targets) != 2 {
		t.Fatalf("targets = %+v", targets)
	}
	if targets[0].Format != "json" || targets[0].Timeout == 0 {
		t.Errorf("first target = %+v", targets[0])
	}
	if targets[1].Name != "discord" || targets[1].Format != "discord" || targets[1].Mention != "<@&1>" {
		t.Errorf("second target = %+v", targets[1])
	}
}
