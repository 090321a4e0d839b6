package container

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"order-tracker-go/config"
	"order-tracker-go/gateway"
	"order-tracker-go/infrastructure/logger"
	"order-tracker-go/tracker"
)

// Lifecycle is implemented by every long-lived component.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
	Health() error
}

// LifecycleManager starts components in registration order and stops them in
// reverse.
type LifecycleManager struct {
	components []Lifecycle
	mu         sync.RWMutex
}

func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{
		components: make([]Lifecycle, 0),
	}
}

func (m *LifecycleManager) Register(component Lifecycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component)
}

// StartAll starts components in order. On failure the ones already started
// are stopped again.
func (m *LifecycleManager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, component := range m.components {
		if err := component.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m.components[j].Stop()
			}
			return fmt.Errorf("start component %d failed: %w", i, err)
		}
	}
	return nil
}

// StopAll stops every component and returns the last error seen.
func (m *LifecycleManager) StopAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	for i := len(m.components) - 1; i >= 0; i-- {
		if err := m.components[i].Stop(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (m *LifecycleManager) CheckHealth() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, component := range m.components {
		if err := component.Health(); err != nil {
			return fmt.Errorf("component %d unhealthy: %w", i, err)
		}
	}
	return nil
}

// httpServerComponent binds in Start so address errors fail the start.
type httpServerComponent struct {
	name    string
	handler http.Handler
	addr    string
	logger  *logger.Logger

	mu      sync.Mutex
	server  *http.Server
	bound   string
	started bool
}

func (h *httpServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return nil
	}
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("%s listen: %w", h.name, err)
	}
	srv := &http.Server{
		Handler:           h.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	h.server = srv
	h.bound = ln.Addr().String()

	go func() {
		h.logger.Info("listening", zap.String("component", h.name), zap.String("addr", h.bound))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.LogError(err, map[string]interface{}{
				"component": h.name,
				"action":    "serve",
			})
		}
	}()

	h.started = true
	return nil
}

func (h *httpServerComponent) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started || h.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", h.name, err)
	}

	h.logger.Info("stopped", zap.String("component", h.name))
	h.started = false
	return nil
}

func (h *httpServerComponent) Health() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return fmt.Errorf("%s not started", h.name)
	}
	return nil
}

// Addr returns the bound address once started.
func (h *httpServerComponent) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bound
}

// watcherComponent hot-applies the log level from the config file.
type watcherComponent struct {
	path   string
	logger *logger.Logger

	mu      sync.Mutex
	watcher *config.Watcher
}

func (w *watcherComponent) Start(ctx context.Context) error {
	cw, err := config.NewWatcher(w.path, time.Second, w.logger, w.apply)
	if err != nil {
		return err
	}
	if err := cw.Start(ctx); err != nil {
		_ = cw.Stop()
		return err
	}
	w.mu.Lock()
	w.watcher = cw
	w.mu.Unlock()
	return nil
}

func (w *watcherComponent) apply(cfg config.AppConfig) {
	if err := w.logger.SetLevel(cfg.Log.Level); err != nil {
		w.logger.LogError(err, map[string]interface{}{"action": "apply_log_level"})
		return
	}
	w.logger.Info("log level applied", zap.String("level", cfg.Log.Level))
}

func (w *watcherComponent) Stop() error {
	w.mu.Lock()
	cw := w.watcher
	w.watcher = nil
	w.mu.Unlock()
	if cw == nil {
		return nil
	}
	return cw.Stop()
}

func (w *watcherComponent) Health() error { return nil }

// trackerComponent owns the single tracking session.
type trackerComponent struct {
	sync    *tracker.Synchronizer
	orderID gateway.OrderID

	mu     sync.Mutex
	handle *tracker.Handle
}

func (t *trackerComponent) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle != nil {
		return nil
	}
	t.handle = t.sync.Activate(ctx, t.orderID)
	return nil
}

func (t *trackerComponent) Stop() error {
	t.mu.Lock()
	h := t.handle
	t.mu.Unlock()
	if h != nil {
		h.Deactivate()
	}
	return nil
}

// Health fails once the live channel is gone; the display then only shows the
// last known status.
func (t *trackerComponent) Health() error {
	h := t.current()
	if h == nil {
		return errors.New("tracker not started")
	}
	if h.State() == tracker.StateClosed {
		return errors.New("live channel closed")
	}
	return nil
}

func (t *trackerComponent) current() *tracker.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handle
}
