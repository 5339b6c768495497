package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/dockwin/internal/metrics"
	"github.com/1broseidon/dockwin/internal/platform"
)

// Caller runs a closure on the event loop and waits for it.
type Caller interface {
	Call(ctx context.Context, fn func()) error
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Reconciler periodically checks the synchronized model for drift and
// refreshes the gauges that events alone would let go stale.
type Reconciler struct {
	interval time.Duration
	loop     Caller
	view     View
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, loop Caller, view View) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval: interval,
		loop:     loop,
		view:     view,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("reconciler stopped")
			return
		case <-ticker.C:
			r.ReconcileNow(ctx)
		}
	}
}

// snapshot is a consistent copy of the model taken on the event loop.
type snapshot struct {
	caps     platform.Capabilities
	windows  []platform.Window
	active   platform.WindowID
	stacking []platform.WindowID
	desktops []platform.Desktop
	count    int
	current  string
}

// ReconcileNow performs a single pass and returns the drift it found.
func (r *Reconciler) ReconcileNow(ctx context.Context) []string {
	var s snapshot
	err := r.loop.Call(ctx, func() {
		s = snapshot{
			caps:     r.view.Capabilities(),
			windows:  r.view.Windows(),
			active:   r.view.ActiveWindow(),
			stacking: r.view.StackingOrder(),
			desktops: r.view.Desktops(),
			count:    r.view.NumberOfDesktops(),
			current:  r.view.CurrentDesktop(),
		}
	})
	if err != nil {
		r.logger.Debug("reconciler: snapshot failed", "error", err)
		return nil
	}

	if r.metrics != nil {
		r.metrics.Windows.Set(float64(len(s.windows)))
		r.metrics.Desktops.Set(float64(s.count))
	}

	issues := checkSnapshot(s)
	for _, issue := range issues {
		r.logger.Warn("reconciler: model drift", "issue", issue)
	}
	return issues
}

func checkSnapshot(s snapshot) []string {
	var issues []string

	seen := make(map[platform.WindowID]bool, len(s.windows))
	for _, w := range s.windows {
		if seen[w.ID] {
			issues = append(issues, fmt.Sprintf("window %s listed twice", w.ID))
		}
		seen[w.ID] = true
	}

	stacked := make(map[platform.WindowID]bool, len(s.stacking))
	for _, id := range s.stacking {
		if stacked[id] {
			issues = append(issues, fmt.Sprintf("window %s stacked twice", id))
		}
		stacked[id] = true
	}

	if !s.caps.VirtualDesktops {
		return issues
	}

	if s.count != len(s.desktops) {
		issues = append(issues, fmt.Sprintf("desktop count %d, %d desktops listed", s.count, len(s.desktops)))
	}
	known := make(map[string]bool, len(s.desktops))
	for _, d := range s.desktops {
		known[d.ID] = true
	}
	if s.current != "" && !known[s.current] {
		issues = append(issues, fmt.Sprintf("current desktop %s unknown", s.current))
	}
	for _, w := range s.windows {
		if w.OnAllDesktops || w.DesktopID == "" {
			continue
		}
		if !known[w.DesktopID] {
			issues = append(issues, fmt.Sprintf("window %s on unknown desktop %s", w.ID, w.DesktopID))
		}
	}
	return issues
}
