package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the event bursts a build step produces into a
// single pipeline re-run.
const DefaultDebounce = 250 * time.Millisecond

// Watcher re-triggers the pipeline whenever the build tree changes.
type Watcher struct {
	dir      string
	debounce time.Duration
	logger   *zap.Logger
}

// New creates a watcher over dir.
func New(dir string, logger *zap.Logger) *Watcher {
	return &Watcher{dir: dir, debounce: DefaultDebounce, logger: logger}
}

// Watch blocks until ctx is cancelled, invoking fn after each debounced
// burst of filesystem events under the watched tree. Errors returned by fn
// are logged; watching continues so a failing run can be fixed and retried.
func (w *Watcher) Watch(ctx context.Context, fn func(context.Context) error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := addRecursive(fw, w.dir); err != nil {
		return err
	}

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	w.logger.Info("watching for changes", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			// New directories must be watched as they appear.
			if event.Op.Has(fsnotify.Create) {
				if err := addRecursive(fw, event.Name); err != nil {
					w.logger.Debug("could not watch new path", zap.String("path", event.Name), zap.Error(err))
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			if err := fn(ctx); err != nil {
				w.logger.Error("run failed", zap.Error(err))
			}
		}
	}
}

// addRecursive watches path and, if it is a directory, every directory
// below it. Non-directory paths are ignored.
func addRecursive(fw *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return fw.Add(p)
	})
}
