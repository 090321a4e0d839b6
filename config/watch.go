package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"order-tracker-go/infrastructure/logger"
)

// Watcher reloads the config file when it changes on disk and hands every
// valid result to a callback. Invalid files are logged and skipped.
type Watcher struct {
	path     string
	cooldown time.Duration
	log      *logger.Logger
	onUpdate func(AppConfig)

	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	lastReload time.Time
	started    bool
	stopOnce   sync.Once
	stop       chan struct{}
	done       chan struct{}
}

// NewWatcher creates a watcher for path. A zero cooldown reloads on every event.
func NewWatcher(path string, cooldown time.Duration, log *logger.Logger, onUpdate func(AppConfig)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		cooldown: cooldown,
		log:      log,
		onUpdate: onUpdate,
		watcher:  fw,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start watches the directory holding the file, so editors that replace the
// file by rename are still seen.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.watch(ctx)
	return nil
}

// Stop ends the watch loop and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.stop) })
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.done
	}
	return w.watcher.Close()
}

// LastReload returns when a config was last applied.
func (w *Watcher) LastReload() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastReload
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	if w.cooldown > 0 && time.Since(w.lastReload) < w.cooldown {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	cfg, err := LoadWithEnvOverrides(w.path)
	if err != nil {
		w.log.LogError(err, map[string]interface{}{"action": "reload_config", "path": w.path})
		return
	}

	w.mu.Lock()
	w.lastReload = time.Now()
	w.mu.Unlock()
	w.log.Info("config reloaded", zap.String("path", w.path))
	if w.onUpdate != nil {
		w.onUpdate(cfg)
	}
}
