// Package daemon wires the window system, its collaborators and the outer
// surfaces (IPC, metrics) around one event loop.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/dockwin/internal/activities"
	"github.com/1broseidon/dockwin/internal/catalog"
	"github.com/1broseidon/dockwin/internal/config"
	"github.com/1broseidon/dockwin/internal/eventloop"
	"github.com/1broseidon/dockwin/internal/ipc"
	"github.com/1broseidon/dockwin/internal/metrics"
	"github.com/1broseidon/dockwin/internal/runtimepath"
	"github.com/1broseidon/dockwin/internal/windowsystem"
)

const (
	connectTimeout    = 10 * time.Second
	reconcileInterval = 30 * time.Second
	loopDepth         = 1024
)

// Options configures Run.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	// LockPath overrides the runtime-dir lock file.
	LockPath string
	// Ready, when set, is called once every surface is up.
	Ready func()
}

// Run starts the daemon and blocks until ctx is cancelled or the
// window-system connection fails.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lockPath := opts.LockPath
	if lockPath == "" {
		p, err := runtimepath.LockPath()
		if err != nil {
			return err
		}
		lockPath = p
	}
	release, err := acquireLock(lockPath)
	if err != nil {
		return err
	}
	defer release()

	loop := eventloop.New(loopDepth, logger)

	dirs := cfg.Catalog.Dirs
	if len(dirs) == 0 {
		dirs = catalog.ApplicationDirs()
	}
	cat := catalog.New(dirs, cfg.VendorNamespaces)
	logger.Info("application catalog loaded", "applications", cat.Len())

	connectCtx, cancelConnect := context.WithTimeout(ctx, connectTimeout)
	sys, err := windowsystem.Connect(connectCtx, windowsystem.Options{
		Backend:   cfg.Backend,
		SelfAppID: cfg.DockAppID,
		Catalog:   cat,
		Logger:    logger,
	})
	cancelConnect()
	if err != nil {
		return fmt.Errorf("connect window system: %w", err)
	}
	defer func() {
		if err := sys.Close(); err != nil {
			logger.Debug("window system close", "error", err)
		}
	}()

	var m *metrics.Metrics
	if cfg.Metrics.Listen != "" {
		m = metrics.New()
		m.SetBackend(sys.BackendName())
	}
	recorder := NewEventRecorder(m, logger)
	sys.Subscribe(recorder.Record)

	runCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		stop()
		wg.Wait()
	}()

	if cfg.IPC.Enabled {
		srv, err := ipc.NewServer(sys, loop, ipc.ServerOptions{
			SocketPath: cfg.IPC.Socket,
			Logger:     logger,
			Metrics:    m,
		})
		if err != nil {
			return err
		}
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Stop()
	}

	sys.Start(loop.Post, loop.Fail)

	if cfg.Catalog.Watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := cat.Watch(runCtx, loop.Post, logger); err != nil {
				logger.Warn("catalog watch disabled", "error", err)
			}
		}()
	}

	if cfg.Activities.Enabled && sys.Capabilities().Activities {
		tracker, err := activities.Connect(logger)
		if err != nil {
			logger.Info("activity tracking unavailable", "error", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := tracker.Run(runCtx, func(id string) {
					loop.Post(func() { sys.SetCurrentActivity(id) })
				})
				if err != nil {
					logger.Info("activity tracking stopped", "error", err)
				}
			}()
		}
	}

	if m != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Serve(runCtx, cfg.Metrics.Listen, logger); err != nil {
				logger.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	reconciler := NewReconciler(ReconcilerConfig{
		Interval: reconcileInterval,
		Metrics:  m,
		Logger:   logger,
	}, loop, sys)
	wg.Add(1)
	go func() {
		defer wg.Done()
		reconciler.Run(runCtx)
	}()

	logger.Info("dockwin daemon started", "backend", sys.BackendName(), "reduced", sys.Reduced())
	if opts.Ready != nil {
		opts.Ready()
	}

	err = loop.Run(runCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("window system connection lost: %w", err)
	}
	logger.Info("dockwin daemon stopped")
	return nil
}
