// Package watch re-runs generation when its inputs change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for more events before it
// runs. Editors often write a file in several steps.
const DefaultDebounce = 200 * time.Millisecond

// RunFunc is called once per burst of changes.
type RunFunc func(ctx context.Context) error

// Watcher watches files and directories and calls a RunFunc after they
// change.
type Watcher struct {
	run      RunFunc
	debounce time.Duration
	log      *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a run.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// New returns a watcher calling run.
func New(run RunFunc, opts ...Option) *Watcher {
	w := &Watcher{
		run:      run,
		debounce: DefaultDebounce,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks until ctx is done, calling run after every burst of changes
// to paths. A path may be a file or a directory; files are watched through
// their directory so that editors replacing them are noticed. Run errors are
// logged and do not stop the watch.
func (w *Watcher) Watch(ctx context.Context, paths ...string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	dirs := make(map[string]struct{})
	files := make(map[string]struct{})
	for _, p := range paths {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		dir := p
		if !info.IsDir() {
			dir = filepath.Dir(p)
			files[p] = struct{}{}
		} else {
			dirs[p] = struct{}{}
		}
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.log.Debug("watching", "path", p)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, dirs, files) {
				continue
			}
			w.log.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		case <-timer.C:
			w.log.Info("regenerating")
			if err := w.run(ctx); err != nil {
				w.log.Error("generation failed", "error", err)
			}
		}
	}
}

// relevant reports whether ev touches a watched file or happens inside a
// watched directory. Chmod alone is ignored.
func relevant(ev fsnotify.Event, dirs, files map[string]struct{}) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(ev.Name)
	if _, ok := files[name]; ok {
		return true
	}
	_, ok := dirs[filepath.Dir(name)]
	return ok
}
