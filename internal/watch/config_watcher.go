// Package watch reloads the tool table when its config file changes.
package watch

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"notelaunch/internal/config"
	"notelaunch/internal/domain"
	"notelaunch/internal/tooling"
)

// debounceDelay coalesces the burst of events an editor save produces.
var debounceDelay = 100 * time.Millisecond

// newWatcherFunc creates an fsnotify watcher; tests may replace it to inject errors.
type newWatcherFunc func() (*fsnotify.Watcher, error)

// Snapshot is one successfully loaded tool table. Each reload produces a new
// Snapshot; earlier ones are never modified.
type Snapshot struct {
	Config   *domain.Config
	Registry *tooling.Registry
}

// ConfigWatcher watches a config file and delivers a fresh Snapshot after
// every change that loads cleanly. A change that fails to load is logged and
// the caller keeps whatever Snapshot it already has.
type ConfigWatcher struct {
	path         string
	load         func(string) (*domain.Config, error)
	logger       *slog.Logger
	watcher      *fsnotify.Watcher
	done         chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	running      bool
	newWatcherFn newWatcherFunc // nil means use fsnotify.NewWatcher
}

// NewConfigWatcher creates a watcher for the config file at path. logger may
// be nil. Call Start to begin watching and Stop to release resources.
func NewConfigWatcher(path string, logger *slog.Logger) *ConfigWatcher {
	return &ConfigWatcher{path: path, load: config.Load, logger: logger}
}

func (w *ConfigWatcher) log() *slog.Logger {
	if w.logger != nil {
		return w.logger
	}
	return slog.Default()
}

// Start begins watching. callback runs on the watcher's goroutine, once per
// successful reload. Start must not be called twice without a Stop.
func (w *ConfigWatcher) Start(callback func(Snapshot)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if callback == nil {
		return errors.New("config watcher: callback must not be nil")
	}
	if w.running {
		return errors.New("config watcher: already started")
	}

	// Watch the directory: editors often replace the file instead of writing
	// it in place, which drops a watch on the file itself.
	newWatcher := fsnotify.NewWatcher
	if w.newWatcherFn != nil {
		newWatcher = w.newWatcherFn
	}
	watcher, err := newWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}

	w.watcher = watcher
	w.done = make(chan struct{})
	w.running = true
	w.wg.Add(1)
	go w.eventLoop(callback)
	return nil
}

// Stop ceases watching and waits for the event loop to exit. Safe to call
// even if not started.
func (w *ConfigWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	w.running = false
	return err
}

func (w *ConfigWatcher) eventLoop(callback func(Snapshot)) {
	defer w.wg.Done()
	target := filepath.Base(w.path)
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
			} else {
				timer.Reset(debounceDelay)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload(callback)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log().Warn("config watcher: fsnotify error", "error", err)
		}
	}
}

func (w *ConfigWatcher) reload(callback func(Snapshot)) {
	cfg, err := w.load(w.path)
	if err != nil {
		w.log().Warn("config reload failed; keeping previous tool table", "path", w.path, "error", err)
		return
	}
	reg, err := tooling.NewRegistry(cfg.Tools...)
	if err != nil {
		w.log().Warn("config reload failed; keeping previous tool table", "path", w.path, "error", err)
		return
	}
	w.log().Info("tool table reloaded", "path", w.path, "tools", reg.Len())
	callback(Snapshot{Config: cfg, Registry: reg})
}
