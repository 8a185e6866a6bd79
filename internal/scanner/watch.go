package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Watcher polls a set of files and calls a callback when any of them is
// created, removed or modified. It is used to pick up settings written
// by other tools.
type Watcher struct {
	paths         []string
	checkInterval time.Duration
	onChange      func()

	mu      sync.Mutex
	modTime map[string]time.Time
}

// NewWatcher creates a watcher for paths. The current state of each file
// is the baseline; only later changes trigger the callback.
func NewWatcher(checkInterval time.Duration, paths ...string) *Watcher {
	w := &Watcher{
		checkInterval: checkInterval,
		modTime:       make(map[string]time.Time, len(paths)),
	}
	for _, p := range paths {
		// Resolve symlinks so replaced targets are noticed.
		if real, err := filepath.EvalSymlinks(p); err == nil {
			p = real
		}
		w.paths = append(w.paths, p)
		w.modTime[p] = modTime(p)
	}
	return w
}

// OnChange sets the callback to invoke when a watched file changes.
// The callback is called from the Run goroutine.
func (w *Watcher) OnChange(callback func()) {
	w.onChange = callback
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.checkForUpdate() && w.onChange != nil {
				w.onChange()
			}
		}
	}
}

// checkForUpdate returns true if any watched file changed since the last
// check.
func (w *Watcher) checkForUpdate() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := false
	for _, p := range w.paths {
		t := modTime(p)
		if !t.Equal(w.modTime[p]) {
			w.modTime[p] = t
			changed = true
		}
	}
	return changed
}

// modTime returns the zero time for missing files.
func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
