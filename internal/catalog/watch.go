package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long the watcher waits for a burst of changes (package
// installs touch many files) before rescanning.
const settle = 500 * time.Millisecond

// Watch rescans the catalog whenever an application directory changes and
// hands the new set to post, which must run it on the goroutine that calls
// Correct. Watch blocks until ctx is done.
func (c *Catalog) Watch(ctx context.Context, post func(func()), logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: watcher: %w", err)
	}
	defer w.Close()

	for _, d := range existingDirs(c.dirs, logger) {
		if err := w.Add(d); err != nil {
			logger.Debug("catalog: watch failed", "dir", d, "error", err)
		}
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("catalog: watcher error", "error", err)
		case <-fire:
			fire = nil
			ids := scan(c.dirs)
			logger.Debug("catalog: rescanned", "applications", len(ids))
			post(func() { c.replace(ids) })
		}
	}
}
