package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mvpwatch/mvpwatch/pkg/mvp"
)

// Notifier delivers a new spawn entry somewhere.
type Notifier interface {
	Notify(ctx context.Context, entry mvp.Entry) error
}

// Target is a named webhook endpoint.
type Target struct {
	Name string
	SendOptions
}

// Dispatcher fans an entry out to every target.
type Dispatcher struct {
	client  *Client
	targets []Target
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil logger uses slog.Default().
func NewDispatcher(client *Client, targets []Target, logger *slog.Logger) *Dispatcher {
	if client == nil {
		client = NewClient()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{client: client, targets: targets, logger: logger}
}

// Notify sends entry to all targets. It returns the joined errors of the
// targets that failed; the entry counts as delivered only when all succeed.
func (d *Dispatcher) Notify(ctx context.Context, entry mvp.Entry) error {
	var errs []error
	for _, t := range d.targets {
		name := t.Name
		if name == "" {
			name = t.URL
		}

		resp := d.client.Send(ctx, entry, t.SendOptions)
		if !resp.Success() {
			d.logger.Warn("webhook failed",
				slog.String("webhook", name),
				slog.Int("status", resp.StatusCode),
				slog.Any("err", resp.Error))
			errs = append(errs, fmt.Errorf("webhook %s: %w", name, resp.Error))
			continue
		}

		d.logger.Info("webhook sent",
			slog.String("webhook", name),
			slog.String("entry", entry.Key().String()),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", resp.Duration))
	}
	return errors.Join(errs...)
}
