// Package notify fans user-facing alerts out to recipients.
//
// Dispatch is best-effort and fire-and-forget relative to the state
// transition that triggered it: transport failures are retried a bounded
// number of times, then logged and dropped. Correctness of task state
// never depends on notification delivery.
package notify

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
)

// Transport delivers a single notification to a recipient. It is an
// external collaborator and may fail; the dispatcher swallows failures.
type Transport interface {
	Send(ctx context.Context, recipientID, message string, metadata map[string]string) error
}

// Config bounds the dispatcher's redelivery behaviour.
type Config struct {
	// MaxRetries is how many times a failed send is retried before the
	// notification is dropped.
	MaxRetries int

	// Backoff is the pause between retries.
	Backoff time.Duration
}

// Dispatcher persists notification records and pushes them through the
// transport.
type Dispatcher struct {
	store     store.Store
	transport Transport
	logger    *slog.Logger
	cfg       Config
}

// NewDispatcher creates a Dispatcher. A nil transport disables delivery;
// records are still persisted for in-app consumption.
func NewDispatcher(st store.Store, transport Transport, logger *slog.Logger, cfg Config) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Dispatcher{store: st, transport: transport, logger: logger, cfg: cfg}
}

// Dispatch fans one message out to the given recipients. Recipients are
// deduplicated; empty ids are skipped. Every failure, whether persisting
// the record or delivering it, is logged and swallowed so the originating
// state transition is never rolled back or failed.
func (d *Dispatcher) Dispatch(ctx context.Context, recipientIDs []string, ntype, message string, metadata map[string]string) {
	for _, recipient := range dedup(recipientIDs) {
		n := model.Notification{
			RecipientID: recipient,
			Type:        ntype,
			Message:     message,
			Metadata:    metadata,
			CreatedAt:   time.Now().UTC(),
		}
		if err := d.store.CreateNotification(ctx, n); err != nil {
			d.logger.Warn("persisting notification failed",
				"recipient", recipient, "type", ntype, "error", err)
		}

		if d.transport == nil {
			continue
		}
		d.deliver(ctx, recipient, message, metadata, ntype)
	}
}

// deliver attempts a send with bounded retries, then gives up.
func (d *Dispatcher) deliver(ctx context.Context, recipient, message string, metadata map[string]string, ntype string) {
	var err error
	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// Cancellation is checked before the backoff wait so a dead
			// context never buys another send attempt.
			if ctx.Err() != nil {
				d.logger.Warn("notification delivery abandoned",
					"recipient", recipient, "type", ntype, "error", ctx.Err())
				return
			}
			if d.cfg.Backoff > 0 {
				select {
				case <-ctx.Done():
					d.logger.Warn("notification delivery abandoned",
						"recipient", recipient, "type", ntype, "error", ctx.Err())
					return
				case <-time.After(d.cfg.Backoff):
				}
			}
		}
		if err = d.transport.Send(ctx, recipient, message, metadata); err == nil {
			return
		}
	}
	d.logger.Warn("notification delivery failed, dropping",
		"recipient", recipient, "type", ntype,
		"attempts", d.cfg.MaxRetries+1, "error", err)
}

// dedup returns recipients in first-seen order with duplicates and empty
// ids removed.
func dedup(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
