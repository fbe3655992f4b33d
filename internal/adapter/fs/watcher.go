package fs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"ragqa/internal/logging"
)

const defaultDebounce = 2 * time.Second

// Watcher reports settled changes below a directory tree. Bursts of events
// are coalesced into one callback once the tree has been quiet for the
// debounce interval. Hidden files and directories are ignored, as is
// everything at or below an ignored path.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	debounce time.Duration
	ignore   []string
}

// NewWatcher watches root. Paths in ignore are typically outputs written
// below root, such as dump directories, which would otherwise retrigger
// the callback they are written from.
func NewWatcher(root string, debounce time.Duration, ignore ...string) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	skip := make([]string, 0, len(ignore))
	for _, p := range ignore {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		skip = append(skip, abs)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{watcher: fw, root: root, debounce: debounce, ignore: skip}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && (isHidden(path) || w.ignored(path)) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Run blocks until ctx ends, calling onChange after each settled burst of
// relevant events.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	log := logging.FromContext(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) && !isHidden(event.Name) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						log.Warn("failed to watch new directory", "dir", event.Name, "error", err)
					}
				}
			}
			if relevant(event) {
				log.Debug("source changed", "file", event.Name, "op", event.Op.String())
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)

		case <-timer.C:
			onChange()
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// relevant reports whether event can change ingested content. Permission
// changes, directory creation and hidden files are not.
func relevant(event fsnotify.Event) bool {
	if isHidden(event.Name) {
		return false
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return true
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		return err == nil && !info.IsDir()
	default:
		return false
	}
}

func (w *Watcher) ignored(path string) bool {
	for _, p := range w.ignore {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
