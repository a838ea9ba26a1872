// pattern: Imperative Shell

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"tessera/internal/logging"
)

// DefaultDebounce is how long the watcher waits for writes to settle
// before reloading.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads the config when config.yaml or a drop-in changes.
type Watcher struct {
	path     string
	log      *logging.ScopedLogger
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload func(Config)
}

// NewWatcher creates a watcher for the config at path. onReload runs on
// the watcher's goroutine with every config that loads and validates.
func NewWatcher(path string, log *logging.ScopedLogger, onReload func(Config)) (*Watcher, error) {
	if log == nil {
		log = logging.NopLogger()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	return &Watcher{
		path:     path,
		log:      log,
		watcher:  watcher,
		debounce: DefaultDebounce,
		onReload: onReload,
	}, nil
}

// Run watches until ctx is cancelled. The directories are watched rather
// than the files, so editors that replace the file by rename are seen.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	// config.d is optional.
	_ = w.watcher.Add(filepath.Join(dir, dropInDir))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) && filepath.Base(event.Name) == dropInDir {
				_ = w.watcher.Add(event.Name)
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	if name == filepath.Clean(w.path) {
		return true
	}
	dropIns := filepath.Join(filepath.Dir(w.path), dropInDir)
	if name == dropIns || filepath.Dir(name) == dropIns {
		ext := filepath.Ext(name)
		return name == dropIns || ext == ".yaml" || ext == ".yml"
	}
	return false
}

func (w *Watcher) reload() {
	cfg, err := LoadFrom(w.path)
	if err != nil {
		w.log.Warn("config reload failed", "path", w.path, "error", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		w.log.Warn("reloaded config is invalid", "path", w.path, "error", err)
		return
	}
	w.log.Info("config reloaded", "path", w.path)
	w.onReload(cfg)
}
