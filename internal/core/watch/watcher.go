package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"notesort/internal/core/walk"
	"notesort/internal/logging"
)

// Watcher reports changed vault documents, coalesced by a Debouncer, as
// slash-separated vault-relative paths.
type Watcher struct {
	rootAbs string
	ignore  []string

	filter    *walk.Filter
	debouncer *Debouncer
	debounce  time.Duration
	log       *slog.Logger

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
	closed    chan struct{}
}

type Options struct {
	Filter   walk.Options
	Debounce time.Duration
	// MaxWait caps how long a document that keeps changing is held back.
	MaxWait time.Duration
	// IgnoreDirs are vault-relative folders whose events are dropped, such as
	// a state directory kept inside the vault.
	IgnoreDirs []string
	UpdateFunc func(paths []string)
	Logger     *slog.Logger
}

func NewWatcher(root string, opts Options) (*Watcher, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root is required")
	}
	if opts.UpdateFunc == nil {
		return nil, fmt.Errorf("update func is required")
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	rootAbs = filepath.Clean(rootAbs)

	filter, err := walk.NewFilter(rootAbs, opts.Filter)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	var ignore []string
	for _, d := range opts.IgnoreDirs {
		d = strings.Trim(filepath.ToSlash(strings.TrimSpace(d)), "/")
		if d != "" && d != "." && !strings.HasPrefix(d, "..") {
			ignore = append(ignore, d)
		}
	}

	w := &Watcher{
		rootAbs:   rootAbs,
		ignore:    ignore,
		filter:    filter,
		debouncer: NewDebouncer(debounce, opts.MaxWait),
		debounce:  debounce,
		log:       logging.OrDiscard(opts.Logger),
		watcher:   fsw,
		closed:    make(chan struct{}),
	}
	w.debouncer.OnFire(opts.UpdateFunc)

	if err := w.addDirRecursive(rootAbs, false); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

func (w *Watcher) Debounce() time.Duration {
	if w == nil {
		return 0
	}
	return w.debounce
}

func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}

	w.closeOnce.Do(func() { close(w.closed) })
	w.debouncer.Stop()

	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}

// Run delivers events until ctx is done or the watcher is closed. Queue
// overflows are logged and survived; other watcher errors end the loop.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.watcher == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.closed:
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.log.Warn("watch queue overflowed; run a sweep to catch up", "error", err)
				continue
			}
			return err
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, ok := w.toRel(ev.Name)
	if !ok {
		return
	}
	if w.isIgnored(rel) {
		return
	}

	if ev.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
		if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
			// A folder moved into the vault brings documents no event names.
			if err := w.addDirRecursive(ev.Name, true); err != nil {
				w.log.Warn("watch new folder failed", "path", rel, "error", err)
			}
			return
		}
	}

	if v := w.filter.Check(rel, false); !v.Include {
		w.log.Debug("event skipped", "path", rel, "rule", v.Rule)
		return
	}

	// Remove and Rename name the old path; the engine sees it is gone.
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		w.debouncer.Push(rel)
	}
}

func (w *Watcher) toRel(abs string) (string, bool) {
	if strings.TrimSpace(abs) == "" {
		return "", false
	}

	abs = filepath.Clean(abs)
	rel, err := filepath.Rel(w.rootAbs, abs)
	if err != nil {
		return "", false
	}
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	return rel, true
}

func (w *Watcher) isIgnored(rel string) bool {
	for _, d := range w.ignore {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}

func (w *Watcher) addDirRecursive(absDir string, pushFiles bool) error {
	absDir = filepath.Clean(absDir)

	return filepath.WalkDir(absDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == w.rootAbs {
			return w.watcher.Add(p)
		}
		rel, ok := w.toRel(p)
		if !ok {
			return nil
		}
		if !d.IsDir() {
			if pushFiles && d.Type().IsRegular() && w.filter.ShouldInclude(rel, false) {
				w.debouncer.Push(rel)
			}
			return nil
		}
		if w.isIgnored(rel) || !w.filter.ShouldInclude(rel, true) {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}
