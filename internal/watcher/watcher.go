// Package watcher re-runs an action when source files under a project root change.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultDebounce is the quiet period after the last event before a re-run.
const DefaultDebounce = 500 * time.Millisecond

// skipDirs are never watched.
var skipDirs = map[string]bool{
	"target":       true,
	"vendor":       true,
	"node_modules": true,
	"testdata":     true,
}

// ChangeFunc handles one debounced batch of changed files.
type ChangeFunc func(ctx context.Context, changed []string) error

// Watcher watches for file changes and triggers reanalysis
type Watcher struct {
	root      string
	fsWatcher *fsnotify.Watcher
	onChange  ChangeFunc
	logger    *slog.Logger

	extensions []string
	patterns   []string
	ignore     *ignore.GitIgnore

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	// runs are serialized so a slow analysis never overlaps the next one
	runMu sync.Mutex

	onError func(error)
}

// WatcherOption configures the watcher
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounceDelay = d
		}
	}
}

// WithExtensions limits events to files with these extensions, e.g. ".rs".
func WithExtensions(exts ...string) WatcherOption {
	return func(w *Watcher) {
		w.extensions = exts
	}
}

// WithIgnorePatterns adds gitignore-style patterns on top of the root .gitignore.
func WithIgnorePatterns(patterns ...string) WatcherOption {
	return func(w *Watcher) {
		w.patterns = append(w.patterns, patterns...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithOnError sets the callback for errors, including failed runs.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a Watcher for root that calls onChange after changes settle.
// Directories are watched by absolute path, so event names are absolute.
func New(root string, onChange ChangeFunc, opts ...WatcherOption) (*Watcher, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:          root,
		fsWatcher:     fsWatcher,
		onChange:      onChange,
		debounceDelay: DefaultDebounce,
		pendingFiles:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}

	w.ignore = loadIgnore(root, w.patterns)

	if err := w.addDirs(root); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directories to watch: %w", err)
	}
	return w, nil
}

func loadIgnore(root string, extra []string) *ignore.GitIgnore {
	var lines []string
	if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
		lines = strings.Split(string(data), "\n")
	}
	lines = append(lines, extra...)
	return ignore.CompileIgnoreLines(lines...)
}

// Ignored reports whether path is excluded. An absolute path is taken
// relative to the root; a relative path is already root-relative.
func (w *Watcher) Ignored(path string, isDir bool) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(w.root, path)
		if err != nil {
			return false
		}
		rel = r
	}
	rel = filepath.Clean(rel)
	if rel == "." {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")
	for i, part := range parts {
		isDirPart := isDir || i < len(parts)-1
		if isDirPart && (strings.HasPrefix(part, ".") || skipDirs[part]) {
			return true
		}
	}
	if isDir && w.ignore.MatchesPath(rel+"/") {
		return true
	}
	return w.ignore.MatchesPath(rel)
}

// addDirs recursively adds all directories below dir to the watcher
func (w *Watcher) addDirs(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.Ignored(path, true) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Run processes events until ctx is canceled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsWatcher.Close()
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.reportError(fmt.Errorf("watch: %w", err))
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// new directories are watched as they appear
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.Ignored(event.Name, true) {
				if err := w.addDirs(event.Name); err != nil {
					w.reportError(err)
				}
			}
			return
		}
	}

	if !w.relevant(event.Name) {
		return
	}
	w.logger.Debug("source changed", "file", event.Name, "op", event.Op.String())

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pendingFiles[event.Name] = struct{}{}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() { w.trigger(ctx) })
}

func (w *Watcher) relevant(path string) bool {
	if w.Ignored(path, false) {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, e := range w.extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return filepath.Base(path) == "Cargo.toml" || filepath.Base(path) == "go.mod"
}

// trigger runs onChange with the pending batch after debounce
func (w *Watcher) trigger(ctx context.Context) {
	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 || ctx.Err() != nil {
		return
	}
	sort.Strings(files)

	w.runMu.Lock()
	defer w.runMu.Unlock()

	start := time.Now()
	if err := w.onChange(ctx, files); err != nil {
		if !errors.Is(err, context.Canceled) {
			w.reportError(fmt.Errorf("analysis failed: %w", err))
		}
		return
	}
	w.logger.Debug("re-run finished", "changed", len(files), "duration", time.Since(start))
}

func (w *Watcher) stopTimer() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
}

func (w *Watcher) reportError(err error) {
	w.logger.Warn("watch error", "error", err)
	if w.onError != nil {
		w.onError(err)
	}
}
