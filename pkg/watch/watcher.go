package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ofxhost/pkg/observability"
	"github.com/platinummonkey/ofxhost/pkg/plugincache"
)

// Watcher rescans when plugin modules appear, change or disappear below the
// rescanner's directories. Bursts of events are coalesced into one rescan.
type Watcher struct {
	rescanner  *Rescanner
	extensions []string
	debounce   time.Duration
	log        *logrus.Logger
	fs         *fsnotify.Watcher
}

// NewWatcher watches every existing directory below the rescanner's paths.
// Missing paths are skipped with a warning.
func NewWatcher(r *Rescanner, extensions []string, debounce time.Duration, log *logrus.Logger) (*Watcher, error) {
	if log == nil {
		log = logrus.New()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		rescanner:  r,
		extensions: extensions,
		debounce:   debounce,
		log:        log,
		fs:         fsw,
	}
	for _, dir := range r.Paths() {
		if err := w.addTree(dir); err != nil {
			log.Warnf("Not watching %s: %v", dir, err)
		}
	}
	return w, nil
}

// addTree recursively adds all directories to the watcher
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			w.log.Debugf("Watching %s", path)
			return w.fs.Add(path)
		}
		return nil
	})
}

// WatchList returns the directories currently watched
func (w *Watcher) WatchList() []string {
	return w.fs.WatchList()
}

// Run processes filesystem events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				fire = time.After(w.debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("Watcher error: %v", err)
		case <-fire:
			fire = nil
			w.rescan(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	// new directories may hold modules and must be watched themselves
	if event.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			w.log.Debugf("New directory: %s", event.Name)
			if err := w.addTree(event.Name); err != nil {
				w.log.Warnf("Error watching new directory %s: %v", event.Name, err)
			}
			return true
		}
	}

	if plugincache.HasExtension(event.Name, w.extensions) {
		w.log.Debugf("Plugin module changed: %s (%s)", event.Name, event.Op)
		return true
	}
	return false
}

func (w *Watcher) rescan(ctx context.Context) {
	defer observability.RecoverPanic(w.log, "watch rescan")
	if err := w.rescanner.Rescan(ctx); err == nil {
		w.log.Info("Rescanned plugins after filesystem change")
	}
}
