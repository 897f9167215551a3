package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/xxh3"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
	"github.com/getAsterisk/stackwalk/internal/shared/observability"
	"github.com/getAsterisk/stackwalk/internal/shared/util"
)

// Watcher reports batches of changed source files. Events are debounced;
// files whose content hash is unchanged since the last batch are dropped.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	excludeDirs  *util.Excludes
	excludeFiles *util.Excludes
	roots        []string
	extFilters   map[string]bool
	limiter      *util.Limiter
	onChange     func([]string)
	callbackMu   sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	pending   map[string]struct{}
	pendingMu sync.Mutex
	timer     *time.Timer

	hashes   map[string]uint64
	hashesMu sync.Mutex
}

func NewWatcher(debounce time.Duration, excludeDirs, excludeFiles []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New(errors.CodeValidationError, "watcher callback must not be nil")
	}

	compiledDirs, err := compile(excludeDirs)
	if err != nil {
		return nil, err
	}
	compiledFiles, err := compile(excludeFiles)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create fsnotify watcher")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		fsWatcher:    fsw,
		debounce:     debounce,
		excludeDirs:  compiledDirs,
		excludeFiles: compiledFiles,
		onChange:     onChange,
		ctx:          ctx,
		cancel:       cancel,
		pending:      make(map[string]struct{}),
		hashes:       make(map[string]uint64),
	}, nil
}

func compile(patterns []string) (*util.Excludes, error) {
	e, err := util.CompileExcludes(patterns)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern")
	}
	return e, nil
}

// SetExtensions limits events to files with one of the given extensions.
// An empty list accepts every file.
func (w *Watcher) SetExtensions(extensions []string) {
	filter := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		filter[normalized] = true
	}
	w.extFilters = filter
}

// SetLimiter bounds how often the callback may fire. Batches over the limit
// wait for a token instead of being dropped.
func (w *Watcher) SetLimiter(l *util.Limiter) {
	w.limiter = l
}

// Watch registers every non-excluded directory under paths and starts the
// event loop. Existing files are hashed so the first batch only reports
// real changes.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		w.roots = append(w.roots, filepath.Clean(path))
	}
	for _, path := range paths {
		if err := w.watchRecursive(path); err != nil {
			return err
		}
		w.seedHashes(path)
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "watch root"), errors.CtxPath, root)
			}
			slog.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}

		if info.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			if err := w.fsWatcher.Add(path); err != nil {
				return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "watch directory"), errors.CtxPath, path)
			}
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	paths = w.changedContent(paths)
	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()

	if w.limiter != nil && !w.limiter.Allow(1) {
		observability.WatcherRunsThrottledTotal.Inc()
		slog.Debug("re-index throttled", "files", len(paths))
		if err := w.limiter.Wait(w.ctx, 1); err != nil {
			return
		}
	}
	if w.ctx.Err() != nil {
		return
	}
	w.onChange(paths)
}

// changedContent drops paths whose content hash matches the last one seen.
// Removed or unreadable files always count as changed.
func (w *Watcher) changedContent(paths []string) []string {
	w.hashesMu.Lock()
	defer w.hashesMu.Unlock()

	out := paths[:0]
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			delete(w.hashes, path)
			out = append(out, path)
			continue
		}
		sum := xxh3.Hash(data)
		if prev, ok := w.hashes[path]; ok && prev == sum {
			continue
		}
		w.hashes[path] = sum
		out = append(out, path)
	}
	return out
}

func (w *Watcher) seedHashes(root string) {
	w.hashesMu.Lock()
	defer w.hashesMu.Unlock()
	_ = w.walkFiles(root, func(path string) {
		if data, err := os.ReadFile(path); err == nil {
			w.hashes[path] = xxh3.Hash(data)
		}
	})
}

func (w *Watcher) walkFiles(root string, fn func(string)) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.shouldExcludeFile(path) {
			fn(path)
		}
		return nil
	})
}

// rel is path relative to the watched root holding it, so anchored
// patterns match the same paths discovery sees.
func (w *Watcher) rel(path string) string {
	for _, root := range w.roots {
		if rel, ok := util.SlashRel(root, path); ok && rel != "" {
			return rel
		}
	}
	return filepath.Base(path)
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	return w.excludeDirs.Match(w.rel(path))
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	if len(w.extFilters) > 0 && !w.extFilters[strings.ToLower(filepath.Ext(path))] {
		return true
	}
	return w.excludeFiles.Match(w.rel(path))
}

func (w *Watcher) Close() error {
	w.cancel()
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = w.walkFiles(root, w.scheduleChange)
}
