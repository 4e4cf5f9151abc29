package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mvpwatch/mvpwatch/pkg/mvp"
	"github.com/mvpwatch/mvpwatch/pkg/ocr"
	"github.com/mvpwatch/mvpwatch/pkg/seen"
	"github.com/mvpwatch/mvpwatch/pkg/telemetry"
)

const chatText = `[13:05] come help mvp at xx:00 ch05
kerning city mvp
[13:06] hello
[13:20] mvp xx:30 ch 3 hene
`

type fakeEngine struct {
	text  string
	err   error
	calls int
}

func (f *fakeEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	f.calls++
	return f.text, f.err
}

type recordingNotifier struct {
	mu      sync.Mutex
	entries []mvp.Entry
	fail    bool
}

func (n *recordingNotifier) Notify(ctx context.Context, e mvp.Entry) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("endpoint down")
	}
	n.entries = append(n.entries, e)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newScreenshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.png")
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestWatcher(path string, engine ocr.Engine, n *recordingNotifier, m *telemetry.Metrics) *Watcher {
	logger := quietLogger()
	return New(path, engine, mvp.NewParser(mvp.WithLogger(logger)), seen.New(100, time.Hour), n,
		WithMetrics(m), WithLogger(logger), WithInterval(10*time.Millisecond))
}

func TestCycle_NotifiesNewEntriesOnce(t *testing.T) {
	engine := &fakeEngine{text: chatText}
	n := &recordingNotifier{}
	m := telemetry.NewMetrics(prometheus.NewRegistry())
	w := newTestWatcher(newScreenshot(t), engine, n, m)

	res, err := w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}
	if res.ID == "" {
		t.Error("cycle should carry a correlation id")
	}
	if res.Parsed != 2 || res.Notified != 2 {
		t.Errorf("result = %+v, want 2 parsed and notified", res)
	}

	first := n.entries[0]
	if first.Posted.String() != "13:05" || first.SpawnText() != "14:00" || first.Location != "Kerning City" || first.Channel != "5" {
		t.Errorf("first entry = %+v", first)
	}
	second := n.entries[1]
	if second.SpawnText() != "13:30" || second.Location != "Henesys" || second.Channel != "3" {
		t.Errorf("second entry = %+v", second)
	}

	res, err = w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}
	if res.Parsed != 2 || res.Notified != 0 {
		t.Errorf("second cycle = %+v, want nothing new", res)
	}
	if n.count() != 2 {
		t.Errorf("notified %d entries, want 2", n.count())
	}

	if got := testutil.ToFloat64(m.Cycles); got != 2 {
		t.Errorf("cycles = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.EntriesNotified); got != 2 {
		t.Errorf("entries notified = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SeenEntriesGauge); got != 2 {
		t.Errorf("seen gauge = %v, want 2", got)
	}
}

func TestCycle_FailedDeliveryIsRetried(t *testing.T) {
	engine := &fakeEngine{text: chatText}
	n := &recordingNotifier{fail: true}
	m := telemetry.NewMetrics(prometheus.NewRegistry())
	w := newTestWatcher(newScreenshot(t), engine, n, m)

	res, err := w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}
	if res.Failed != 2 || res.Notified != 0 {
		t.Errorf("result = %+v, want 2 failures", res)
	}
	if got := testutil.ToFloat64(m.NotifyFailures); got != 2 {
		t.Errorf("notify failures = %v, want 2", got)
	}

	n.fail = false
	res, err = w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}
	if res.Notified != 2 {
		t.Errorf("retry cycle = %+v, want 2 notified", res)
	}
}

func TestCycle_MissingScreenshotSkips(t *testing.T) {
	engine := &fakeEngine{text: chatText}
	w := newTestWatcher(filepath.Join(t.TempDir(), "missing.png"), engine, &recordingNotifier{}, nil)

	res, err := w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}
	if !res.Skipped {
		t.Error("expected skipped cycle")
	}
	if engine.calls != 0 {
		t.Errorf("engine called %d times, want 0", engine.calls)
	}
}

func TestCycle_NoText(t *testing.T) {
	engine := &fakeEngine{err: ocr.ErrNoText}
	n := &recordingNotifier{}
	w := newTestWatcher(newScreenshot(t), engine, n, nil)

	res, err := w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}
	if res.Parsed != 0 || n.count() != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestCycle_EngineError(t *testing.T) {
	engine := &fakeEngine{err: errors.New("tesseract crashed")}
	w := newTestWatcher(newScreenshot(t), engine, &recordingNotifier{}, nil)

	if _, err := w.Cycle(context.Background()); err == nil {
		t.Error("expected error from engine failure")
	}
}

func TestCycle_UnresolvedSpawnCounted(t *testing.T) {
	engine := &fakeEngine{text: "[23:10] mvp xx:00 ch2"}
	n := &recordingNotifier{}
	m := telemetry.NewMetrics(prometheus.NewRegistry())
	w := newTestWatcher(newScreenshot(t), engine, n, m)

	if _, err := w.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}
	if got := testutil.ToFloat64(m.SpawnUnresolved); got != 1 {
		t.Errorf("spawn unresolved = %v, want 1", got)
	}
	if n.count() != 1 || n.entries[0].Spawn != nil {
		t.Errorf("entries = %+v, want one with unknown spawn", n.entries)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := &fakeEngine{err: errors.New("flaky")}
	m := telemetry.NewMetrics(prometheus.NewRegistry())
	w := newTestWatcher(newScreenshot(t), engine, &recordingNotifier{}, m)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Errors never stop the loop: wait for a few failing cycles.
	deadline := time.After(2 * time.Second)
	for testutil.ToFloat64(m.CycleErrors) < 3 {
		select {
		case <-deadline:
			t.Fatal("loop did not keep cycling after errors")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
