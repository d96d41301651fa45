package artifacts

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically removes artifacts older than the retention window.
type Sweeper struct {
	store    *Store
	interval time.Duration
	// OnSweep, when set, observes every completed cycle.
	OnSweep func(removed int64, err error)
}

// NewSweeper creates a sweeper over store running every interval.
func NewSweeper(store *Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{store: store, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// It always returns nil; a failed cycle is logged and retried next tick.
func (w *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("artifact sweeper starting",
		"interval", w.interval.String(),
		"retention", w.store.Retention().String(),
	)

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("artifact sweeper stopped")
			return nil
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep cycle.
func (w *Sweeper) RunOnce(ctx context.Context) int64 {
	cutoff := w.store.now().Add(-w.store.Retention())
	n, err := w.store.Sweep(ctx, cutoff)
	if w.OnSweep != nil {
		w.OnSweep(n, err)
	}
	if err != nil {
		slog.Warn("artifact sweep failed", "error", err)
		return 0
	}
	if n > 0 {
		slog.Info("artifact sweep completed", "removed", n, "cutoff", cutoff.Format(time.RFC3339))
	} else {
		slog.Debug("artifact sweep completed (nothing expired)")
	}
	return n
}
