// Package watch triggers rebuilds when listing, manifest or schema files
// change.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quantmind-br/jsonbundler/internal/utils"
)

const (
	// DefaultDebounce is the quiet period before a trigger is emitted
	DefaultDebounce = 300 * time.Millisecond

	triggerBuffer = 16
)

// DefaultExtensions are the file types that trigger rebuilds
var DefaultExtensions = []string{".json", ".yaml", ".yml"}

// ErrNoRoots indicates no directory could be watched
var ErrNoRoots = errors.New("no directory to watch")

// Options configures a Watcher
type Options struct {
	Roots    []string
	Debounce time.Duration
	// Extensions defaults to DefaultExtensions
	Extensions []string
	// ExcludeDirs are directory base names never descended into
	ExcludeDirs []string
	// ExcludeFiles never trigger, typically the bundles being written
	ExcludeFiles []string
	Logger       *utils.Logger
}

// Trigger is one debounced batch of changes
type Trigger struct {
	// Paths are the changed files, sorted
	Paths []string
}

// Watcher watches directory trees and emits one Trigger per debounce window
type Watcher struct {
	fsw          *fsnotify.Watcher
	roots        []string
	debounce     time.Duration
	extensions   map[string]bool
	excludeDirs  map[string]bool
	excludeFiles map[string]bool
	logger       *utils.Logger

	pending  map[string]struct{}
	triggers chan Trigger
	dropped  atomic.Int64
}

// New creates a watcher. Call Start to begin watching.
func New(opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	extensions := make(map[string]bool, len(exts))
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[strings.ToLower(ext)] = true
	}

	excludeDirs := make(map[string]bool, len(opts.ExcludeDirs))
	for _, dir := range opts.ExcludeDirs {
		excludeDirs[dir] = true
	}
	excludeFiles := make(map[string]bool, len(opts.ExcludeFiles))
	for _, f := range opts.ExcludeFiles {
		excludeFiles[absPath(f)] = true
	}

	roots := make([]string, 0, len(opts.Roots))
	for _, r := range opts.Roots {
		roots = append(roots, absPath(r))
	}

	return &Watcher{
		fsw:          fsw,
		roots:        roots,
		debounce:     debounce,
		extensions:   extensions,
		excludeDirs:  excludeDirs,
		excludeFiles: excludeFiles,
		logger:       logger.WithComponent("watch"),
		pending:      make(map[string]struct{}),
		triggers:     make(chan Trigger, triggerBuffer),
	}, nil
}

// Triggers returns the trigger channel. It is closed when watching stops.
func (w *Watcher) Triggers() <-chan Trigger {
	return w.triggers
}

// Start adds watches below every root and processes events until ctx is
// done or Close is called. Missing roots are skipped with a warning.
func (w *Watcher) Start(ctx context.Context) error {
	watched := 0
	for _, root := range w.roots {
		if !utils.DirExists(root) {
			w.logger.Warn().Str("path", root).Msg("Watch root not found, skipping")
			continue
		}
		n, err := w.addRecursive(root)
		if err != nil {
			return err
		}
		watched += n
	}
	if watched == 0 {
		return ErrNoRoots
	}

	go w.loop(ctx)

	w.logger.Info().
		Strs("roots", w.roots).
		Dur("debounce", w.debounce).
		Int("directories", watched).
		Msg("Watching for changes")
	return nil
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Dropped returns how many triggers were discarded because nobody consumed
// them
func (w *Watcher) Dropped() int64 {
	return w.dropped.Load()
}

func (w *Watcher) addRecursive(root string) (int, error) {
	added := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.excludeDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch directory")
			return nil
		}
		added++
		return nil
	})
	return added, err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.triggers)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.accept(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")

		case <-timer.C:
			w.flush()
		}
	}
}

// accept records a relevant event and reports whether it was kept
func (w *Watcher) accept(event fsnotify.Event) bool {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.excludeDirs[filepath.Base(path)] {
				if _, err := w.addRecursive(path); err != nil {
					w.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch new directory")
				}
			}
			return false
		}
	}
	if event.Op == fsnotify.Chmod {
		return false
	}
	if !w.extensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	if w.excludeFiles[absPath(path)] {
		return false
	}

	w.pending[path] = struct{}{}
	w.logger.Debug().Str("file", path).Str("op", event.Op.String()).Msg("Change detected")
	return true
}

func (w *Watcher) flush() {
	if len(w.pending) == 0 {
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	w.pending = make(map[string]struct{})

	select {
	case w.triggers <- Trigger{Paths: paths}:
	default:
		dropped := w.dropped.Add(1)
		w.logger.Warn().Int64("total_dropped", dropped).Msg("Trigger channel full, dropping changes")
	}
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
