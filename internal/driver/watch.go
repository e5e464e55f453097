package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"tplcheck/internal/bundle"
	"tplcheck/internal/source"
	"tplcheck/internal/trace"
)

// DefaultDebounce groups editor save bursts into one rerun.
const DefaultDebounce = 150 * time.Millisecond

// Watch runs Check, then reruns it whenever a bundle or a template file it
// loaded changes, until ctx is done. Results go to onResult, including failed
// runs. Without opts.Cache, runs share a MemoryCache so unchanged bundles are
// not checked again.
func Watch(ctx context.Context, path string, opts Options, debounce time.Duration, onResult func(*Result, error)) error {
	if opts.Cache == nil {
		opts.Cache = NewMemoryCache(16)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "watch", trace.CurrentSpan(ctx).SpanID).WithExtra("path", path)
	defer span.End("")
	runCtx := trace.ContextWithSpan(ctx, span)

	w := &watchState{watcher: watcher, dirs: make(map[string]struct{})}
	run := func() error {
		res, err := Check(runCtx, path, opts)
		if ctx.Err() != nil {
			return nil
		}
		onResult(res, err)
		return w.sync(path, res)
	}
	if err := run(); err != nil {
		return err
	}

	var debounceTimer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			trace.Point(tracer, trace.ScopeDriver, "watch-event", ev.String(), span.ID())
			if debounceTimer == nil {
				debounceTimer = time.NewTimer(debounce)
			} else {
				debounceTimer.Reset(debounce)
			}
			fire = debounceTimer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		case <-fire:
			fire = nil
			if err := run(); err != nil {
				return err
			}
		}
	}
}

type watchState struct {
	watcher *fsnotify.Watcher
	dirs    map[string]struct{}
	files   map[string]struct{}
}

// sync points the watcher at the directories of every input of the last run.
func (w *watchState) sync(path string, res *Result) error {
	dirs, files := watchTargets(path, res)
	for dir := range w.dirs {
		if _, ok := dirs[dir]; !ok {
			_ = w.watcher.Remove(dir)
		}
	}
	for dir := range dirs {
		if _, ok := w.dirs[dir]; ok {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs = dirs
	w.files = files
	return nil
}

func (w *watchState) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(ev.Name)
	if bundle.IsBundlePath(name) {
		return true
	}
	_, ok := w.files[name]
	return ok
}

// watchTargets lists the directories to watch and the files whose changes
// trigger a rerun. A directory input is watched recursively so new bundles
// are picked up.
func watchTargets(path string, res *Result) (map[string]struct{}, map[string]struct{}) {
	dirs := make(map[string]struct{})
	files := make(map[string]struct{})
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			dirs[filepath.Clean(p)] = struct{}{}
			return nil
		})
	} else {
		dirs[filepath.Clean(filepath.Dir(path))] = struct{}{}
	}
	if res == nil {
		return dirs, files
	}
	for _, b := range res.Bundles {
		files[filepath.Clean(b.Path)] = struct{}{}
	}
	for i := 0; i < res.FileSet.Len(); i++ {
		f := res.FileSet.Get(source.FileID(i))
		if f == nil || f.Flags&source.FileVirtual != 0 {
			continue
		}
		p := filepath.Clean(filepath.FromSlash(f.Path))
		files[p] = struct{}{}
		dirs[filepath.Dir(p)] = struct{}{}
	}
	return dirs, files
}
