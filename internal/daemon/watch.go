package daemon

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
)

// throttle enforces a minimum gap between passes.
type throttle struct {
	gap  time.Duration
	last time.Time
}

// wait returns how long to hold off before the next pass may run.
func (t *throttle) wait(now time.Time) time.Duration {
	if t.last.IsZero() {
		return 0
	}
	if elapsed := now.Sub(t.last); elapsed < t.gap {
		return t.gap - elapsed
	}
	return 0
}

func (t *throttle) mark(now time.Time) { t.last = now }

// watcher reports writes, creates and renames of a fixed set of files.
// Parent directories are watched so editors that replace files on save
// are still seen.
type watcher struct {
	fs      *fsnotify.Watcher
	targets map[string]bool
	changed chan struct{}
}

func newWatcher(paths []string) (*watcher, error) {
	if len(paths) == 0 {
		return nil, eris.New("daemon: nothing to watch")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, eris.Wrap(err, "daemon: create watcher")
	}

	w := &watcher{
		fs:      fw,
		targets: make(map[string]bool, len(paths)),
		changed: make(chan struct{}, 1),
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fw.Close()
			return nil, eris.Wrapf(err, "daemon: resolve %s", p)
		}
		w.targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, eris.Wrapf(err, "daemon: watch %s", dir)
		}
	}

	go w.forward()
	return w, nil
}

func (w *watcher) forward() {
	for ev := range w.fs.Events {
		if !w.targets[filepath.Clean(ev.Name)] {
			continue
		}
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
			continue
		}
		select {
		case w.changed <- struct{}{}:
		default:
		}
	}
}

// changes is nil-safe so a daemon without a watcher simply never fires.
func (w *watcher) changes() <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.changed
}

func (w *watcher) errors() <-chan error {
	if w == nil {
		return nil
	}
	return w.fs.Errors
}

func (w *watcher) Close() error {
	return w.fs.Close()
}
