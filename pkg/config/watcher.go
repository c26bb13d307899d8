package config

import (
	"log/slog"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher holds the current Config behind an atomic pointer and reloads it
// whenever turbowrap.yaml changes on disk. A failed reload is logged and
// the previous config keeps serving: a bad edit must never take the
// daemon's configuration down to zero.
type Watcher struct {
	configDir string
	current   atomic.Pointer[Config]
	watcher   *fsnotify.Watcher
	log       *slog.Logger
}

// NewWatcher performs an initial Initialize and starts watching configDir
// for changes. Call Close when done.
func NewWatcher(configDir string, log *slog.Logger) (*Watcher, error) {
	cfg, err := Initialize(configDir)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, NewLoadError(configDir, err)
	}
	if err := fw.Add(configDir); err != nil {
		_ = fw.Close()
		return nil, NewLoadError(configDir, err)
	}

	w := &Watcher{configDir: configDir, watcher: fw, log: log}
	w.current.Store(cfg)

	go w.run()
	return w, nil
}

// Current returns the most recently loaded, validated config.
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Initialize(w.configDir)
	if err != nil {
		w.log.Error("config reload failed, keeping previous config", "error", err)
		return
	}
	w.current.Store(cfg)
	w.log.Info("config reloaded")
}
