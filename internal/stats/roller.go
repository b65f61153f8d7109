// Package stats implements the periodic rollup of raw click events into
// fortnightly per-station statistics.
package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wavedial/wavedial/internal/metrics"
)

const (
	// DefaultInterval is the time between rollup passes. Rollups are not
	// driven by individual clicks, to keep the write path cheap.
	DefaultInterval = 1 * time.Hour

	// DefaultRetention is how long rolled raw events are kept before
	// pruning. Unrolled events are never pruned.
	DefaultRetention = 90 * 24 * time.Hour
)

// Repository defines the persistence operations the roller needs.
type Repository interface {
	StationsWithUnrolledEvents(ctx context.Context) ([]int64, error)
	RollStationEvents(ctx context.Context, stationID int64) (int64, error)
	PruneRolledEvents(ctx context.Context, cutoff time.Time) (int64, error)
	CountUnrolledEvents(ctx context.Context) (int64, error)
}

// Roller folds raw click events into period_statistics rows on a fixed
// schedule. It runs off the request path and is safely re-runnable: only
// never-rolled events are read, so a crash or rerun cannot double-count.
type Roller struct {
	repo      Repository
	logger    *slog.Logger
	metrics   metrics.Recorder
	interval  time.Duration
	retention time.Duration

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// NewRoller creates a statistics roller.
func NewRoller(repo Repository, logger *slog.Logger, recorder metrics.Recorder) *Roller {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Roller{
		repo:      repo,
		logger:    logger.With("component", "stats.roller"),
		metrics:   recorder,
		interval:  DefaultInterval,
		retention: DefaultRetention,
	}
}

// SetInterval overrides the default rollup interval.
func (r *Roller) SetInterval(interval time.Duration) {
	if interval > 0 {
		r.interval = interval
	}
}

// SetRetention overrides the default raw event retention.
func (r *Roller) SetRetention(retention time.Duration) {
	if retention > 0 {
		r.retention = retention
	}
}

// Run starts the roller loop. Blocks until context is cancelled.
func (r *Roller) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errors.New("roller already started")
	}
	r.started = true
	r.done = make(chan struct{})
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	defer close(r.done)

	r.logger.Info("statistics roller started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Drain whatever backlog accumulated while the service was down,
	// rather than waiting a full interval for the first tick.
	if !r.runPass(ctx) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("statistics roller stopping")
			return ctx.Err()
		case <-ticker.C:
			if !r.runPass(ctx) {
				return nil
			}
		}
	}
}

// runPass executes one rollup and prune cycle. Returns false only when the
// context was cancelled mid-pass; other failures are logged and absorbed.
func (r *Roller) runPass(ctx context.Context) bool {
	if err := r.RollOnce(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		r.logger.Error("rollup pass failed", "error", err)
	}
	if err := r.PruneOnce(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		r.logger.Error("prune pass failed", "error", err)
	}
	return true
}

// Shutdown gracefully stops the roller, waiting for any in-flight pass.
// It implements server.ShutdownFunc.
func (r *Roller) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// RollOnce processes every station with unrolled events. A failure for one
// station is logged and does not abort the others.
func (r *Roller) RollOnce(ctx context.Context) error {
	start := time.Now()

	stations, err := r.repo.StationsWithUnrolledEvents(ctx)
	if err != nil {
		r.metrics.IncRollerRun("failed")
		return fmt.Errorf("list stations with unrolled events: %w", err)
	}

	var folded int64
	var failures int
	for _, stationID := range stations {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := r.repo.RollStationEvents(ctx, stationID)
		if err != nil {
			failures++
			r.logger.Error("station rollup failed",
				"station_id", stationID,
				"error", err,
			)
			continue
		}
		folded += n
	}

	r.updateBacklog(ctx)
	r.metrics.ObserveRollerEventsFolded(folded)
	r.metrics.ObserveRollerDuration(time.Since(start))

	status := "success"
	if failures > 0 {
		status = "failed"
	}
	r.metrics.IncRollerRun(status)

	if folded > 0 || failures > 0 {
		r.logger.Info("rollup pass complete",
			"stations", len(stations),
			"events_folded", folded,
			"failures", failures,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	if failures > 0 {
		return fmt.Errorf("rollup failed for %d of %d stations", failures, len(stations))
	}
	return nil
}

// PruneOnce deletes rolled raw events older than the retention window.
func (r *Roller) PruneOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-r.retention)

	pruned, err := r.repo.PruneRolledEvents(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune rolled events: %w", err)
	}

	if pruned > 0 {
		r.logger.Info("pruned rolled events",
			"count", pruned,
			"cutoff", cutoff.Format(time.RFC3339),
		)
	}
	return nil
}

func (r *Roller) updateBacklog(ctx context.Context) {
	depth, err := r.repo.CountUnrolledEvents(ctx)
	if err != nil {
		r.logger.Warn("failed to count unrolled events", "error", err)
		return
	}
	r.metrics.SetRollerBacklog(depth)
}
