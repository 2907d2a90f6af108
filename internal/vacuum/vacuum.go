// Package vacuum implements component I of spec.md: scheduled enforcement
// of history-size, history-lifetime and deleted-lifetime retention limits,
// delegating the actual deletes to the event store (spec.md §4.I; the room-
// level `preserve_history` exemption is enforced inside the event store's
// SQL, which joins against the room table).
package vacuum

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	eventstorage "github.com/foxford/eventd/internal/eventstore/storage"
)

// Config mirrors config.Vacuum's three knobs.
type Config struct {
	MaxHistorySize     int
	MaxHistoryLifetime time.Duration
	MaxDeletedLifetime time.Duration
}

// Runner periodically sweeps the event store.
type Runner struct {
	Events eventstorage.Database
	Config Config
	Log    *logrus.Entry
}

// RunOnce executes a single vacuum pass, returning the number of rows
// removed.
func (r *Runner) RunOnce(ctx context.Context) (int64, error) {
	n, err := r.Events.Vacuum(ctx, r.Config.MaxHistorySize, r.Config.MaxHistoryLifetime, r.Config.MaxDeletedLifetime)
	if err != nil {
		return 0, err
	}
	if r.Log != nil {
		r.Log.WithField("rows_removed", n).Info("vacuum: pass complete")
	}
	return n, nil
}

// Run loops RunOnce on interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && r.Log != nil {
				r.Log.WithError(err).Error("vacuum: pass failed")
			}
		}
	}
}
