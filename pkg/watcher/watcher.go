// Package watcher runs the capture, recognize, parse and notify loop.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mvpwatch/mvpwatch/pkg/chat"
	"github.com/mvpwatch/mvpwatch/pkg/mvp"
	"github.com/mvpwatch/mvpwatch/pkg/ocr"
	"github.com/mvpwatch/mvpwatch/pkg/seen"
	"github.com/mvpwatch/mvpwatch/pkg/telemetry"
	"github.com/mvpwatch/mvpwatch/pkg/webhook"
)

// DefaultInterval is the delay between cycles.
const DefaultInterval = 5 * time.Second

// Watcher polls a screenshot for new MVP announcements.
type Watcher struct {
	screenshot string
	interval   time.Duration
	engine     ocr.Engine
	parser     *mvp.Parser
	seen       *seen.Cache
	notifier   webhook.Notifier
	metrics    *telemetry.Metrics
	logger     *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the delay between cycles.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithMetrics records cycle metrics on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(w *Watcher) {
		if m != nil {
			w.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Watcher. The seen cache is owned by the caller and may be
// shared between watchers.
func New(screenshot string, engine ocr.Engine, parser *mvp.Parser, cache *seen.Cache, notifier webhook.Notifier, opts ...Option) *Watcher {
	w := &Watcher{
		screenshot: screenshot,
		interval:   DefaultInterval,
		engine:     engine,
		parser:     parser,
		seen:       cache,
		notifier:   notifier,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.metrics == nil {
		w.metrics = telemetry.NewMetrics(nil)
	}
	return w
}

// CycleResult summarizes one cycle.
type CycleResult struct {
	ID       string
	Skipped  bool // screenshot missing
	Parsed   int
	Notified int
	Failed   int
}

// Run executes a cycle immediately and then every interval until ctx is
// done. Cycle errors are logged and never stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watcher starting",
		slog.String("screenshot", w.screenshot),
		slog.Duration("interval", w.interval))

	w.runCycle(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return nil
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

func (w *Watcher) runCycle(ctx context.Context) {
	res, err := w.Cycle(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.metrics.CycleErrors.Inc()
		w.logger.Warn("cycle failed", slog.String("cycle", res.ID), slog.Any("err", err))
	}
}

// Cycle runs a single recognize, parse and notify pass. Entries already in
// the seen cache are skipped; an entry is marked seen only after the
// notifier accepted it, so failed deliveries are retried next cycle.
func (w *Watcher) Cycle(ctx context.Context) (CycleResult, error) {
	res := CycleResult{ID: uuid.NewString()}
	log := w.logger.With(slog.String("cycle", res.ID))

	start := time.Now()
	w.metrics.Cycles.Inc()
	defer w.metrics.ObserveCycle(start)

	if _, err := os.Stat(w.screenshot); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("screenshot not found, skipping cycle", slog.String("path", w.screenshot))
			res.Skipped = true
			return res, nil
		}
		return res, fmt.Errorf("checking screenshot: %w", err)
	}

	text, err := w.engine.Recognize(ctx, w.screenshot)
	if errors.Is(err, ocr.ErrNoText) {
		log.Debug("no text recognized")
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("recognizing screenshot: %w", err)
	}

	for e := range w.parser.Entries(chat.Flatten(text)) {
		res.Parsed++
		w.metrics.EntriesParsed.Inc()
		if e.Spawn == nil && e.SpawnToken != "" {
			w.metrics.SpawnUnresolved.Inc()
		}

		key := e.Key()
		if w.seen.Contains(key) {
			continue
		}

		log.Info("new MVP timer",
			slog.String("posted", e.Posted.String()),
			slog.String("spawn", e.SpawnText()),
			slog.String("location", e.Location),
			slog.String("channel", e.Channel))

		if err := w.notifier.Notify(ctx, e); err != nil {
			res.Failed++
			w.metrics.NotifyFailures.Inc()
			log.Warn("notification failed, will retry", slog.String("entry", key.String()), slog.Any("err", err))
			continue
		}

		if w.seen.Add(key) {
			res.Notified++
			w.metrics.EntriesNotified.Inc()
		}
	}

	w.metrics.SeenEntriesGauge.Set(float64(w.seen.Len()))
	log.Debug("cycle complete",
		slog.Int("parsed", res.Parsed),
		slog.Int("notified", res.Notified),
		slog.Int("failed", res.Failed),
		slog.Duration("duration", time.Since(start)))

	return res, nil
}
