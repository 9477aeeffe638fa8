// Package watch re-runs a callback whenever watched files change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/maxkimambo/bake/internal/logger"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc is called with the sorted, de-duplicated paths that changed.
type ChangeFunc func(ctx context.Context, changed []string) error

// Watcher watches files and directories (non-recursively) and calls
// OnChange once per burst of changes. Callbacks never overlap.
type Watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]struct{}
	dirs     map[string]struct{}
	debounce time.Duration
	onChange ChangeFunc
}

// New creates a watcher for paths. A file path matches only itself while a
// directory path matches every entry directly inside it.
func New(paths []string, debounce time.Duration, onChange ChangeFunc) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("watch: no paths given")
	}
	if onChange == nil {
		return nil, fmt.Errorf("watch: change callback is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	w := &Watcher{
		fs:       fw,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
		debounce: debounce,
		onChange: onChange,
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch: %w", err)
		}

		dir := abs
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			w.dirs[abs] = struct{}{}
		} else {
			// editors often replace files by renaming, so watch the parent
			w.files[abs] = struct{}{}
			dir = filepath.Dir(abs)
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run blocks, dispatching change bursts until ctx is done. It closes the
// underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod || !w.matches(event.Name) {
				continue
			}
			logger.Op.WithFields(map[string]interface{}{
				"event": event.Op.String(),
				"file":  event.Name,
			}).Debug("Watched file changed")
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.Op.WithFields(map[string]interface{}{"error": err.Error()}).Warn("File watcher error")

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			if err := w.onChange(ctx, changed); err != nil {
				logger.Op.WithFields(map[string]interface{}{
					"error":   err.Error(),
					"changed": changed,
				}).Debug("Change callback failed")
			}
		}
	}
}

func (w *Watcher) matches(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	if _, ok := w.files[abs]; ok {
		return true
	}
	_, ok := w.dirs[filepath.Dir(abs)]
	return ok
}
