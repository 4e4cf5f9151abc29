package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mvpwatch/mvpwatch/pkg/config"
	"github.com/mvpwatch/mvpwatch/pkg/mvp"
	"github.com/mvpwatch/mvpwatch/pkg/ocr"
	"github.com/mvpwatch/mvpwatch/pkg/seen"
	"github.com/mvpwatch/mvpwatch/pkg/telemetry"
	"github.com/mvpwatch/mvpwatch/pkg/watcher"
	"github.com/mvpwatch/mvpwatch/pkg/webhook"
)

// WatchOptions holds command-line options for the watch command.
type WatchOptions struct {
	Once        bool
	MetricsAddr string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <config-file>",
		Short: "Watch a chat screenshot and announce new MVP timers",
		Long: `Watch the chat-pane screenshot named in the configuration file.

Every interval the screenshot is run through OCR, MVP announcements are
extracted, and timers not seen before are sent to the configured webhooks.
A timer whose delivery fails is retried on the next cycle.

The screenshot itself is produced by an external capture tool; a missing
file skips the cycle. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Once, "once", false, "Run a single cycle and exit")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides config)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string, opts *WatchOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.RequireScreenshot(); err != nil {
		return err
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}

	logger := telemetry.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

	engine, err := ocr.New(ocr.Options{
		Engine:   string(cfg.OCR.Engine),
		Binary:   cfg.OCR.Binary,
		Args:     cfg.OCR.Args,
		Language: cfg.OCR.Language,
	})
	if err != nil {
		return fmt.Errorf("creating ocr engine: %w", err)
	}

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	w := watcher.New(
		cfg.ScreenshotPath,
		engine,
		mvp.NewParser(append(cfg.ParserOptions(), mvp.WithLogger(logger))...),
		seen.New(cfg.Dedup.MaxEntries, cfg.Dedup.TTL),
		webhook.NewDispatcher(webhook.NewClient(), webhookTargets(cfg), logger),
		watcher.WithInterval(cfg.Interval),
		watcher.WithMetrics(metrics),
		watcher.WithLogger(logger),
	)

	if len(cfg.Webhooks) == 0 {
		logger.Warn("no webhooks configured, new timers are only logged")
	}

	if opts.Once {
		res, err := w.Cycle(ctx)
		if err != nil {
			return fmt.Errorf("cycle failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cycle %s: %d parsed, %d notified, %d failed\n",
			res.ID, res.Parsed, res.Notified, res.Failed)
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddr, metrics, logger)
		})
	}

	return g.Wait()
}

// webhookTargets converts configured webhooks into dispatcher targets.
func webhookTargets(cfg *config.Config) []webhook.Target {
	targets := make([]webhook.Target, 0, len(cfg.Webhooks))
	for _, wh := range cfg.Webhooks {
		targets = append(targets, webhook.Target{
			Name: wh.Name,
			SendOptions: webhook.SendOptions{
				URL:     wh.URL,
				Token:   wh.Token,
				Format:  string(wh.Format),
				Mention: wh.Mention,
				Timeout: wh.Timeout,
			},
		})
	}
	return targets
}

// serveMetrics runs the /metrics listener until ctx is done.
func serveMetrics(ctx context.Context, addr string, m *telemetry.Metrics, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// screenshotStatus describes the configured screenshot for validate and
// diagnose output.
func screenshotStatus(path string) (string, bool) {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return fmt.Sprintf("not found (%v)", err), false
	case info.IsDir():
		return "is a directory", false
	default:
		return fmt.Sprintf("%d bytes, modified %s", info.Size(), info.ModTime().Format(time.RFC3339)), true
	}
}
