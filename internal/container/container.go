package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"order-tracker-go/config"
	"order-tracker-go/gateway"
	"order-tracker-go/infrastructure/logger"
	"order-tracker-go/infrastructure/monitor"
	"order-tracker-go/tracker"
)

// Container wires configuration, infrastructure, gateway clients and the
// tracking session, and owns their lifecycle.
type Container struct {
	cfg        *config.AppConfig
	configPath string

	logger  *logger.Logger
	monitor *monitor.Monitor

	snapshots *gateway.SnapshotClient
	stream    *gateway.OrderStreamClient

	synchronizer *tracker.Synchronizer
	session      *trackerComponent
	metrics      *httpServerComponent

	lifecycle *LifecycleManager
}

// New loads the config at configPath. The file is also watched for log level
// changes once started.
func New(configPath string) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	c := NewFromConfig(cfg)
	c.configPath = configPath
	return c, nil
}

// NewFromConfig uses cfg as is; no file is watched.
func NewFromConfig(cfg config.AppConfig) *Container {
	return &Container{
		cfg:       &cfg,
		lifecycle: NewLifecycleManager(),
	}
}

// SetOrderID overrides the tracked order. Call before Build.
func (c *Container) SetOrderID(id string) {
	c.cfg.Tracker.OrderID = id
}

// Build constructs all components.
func (c *Container) Build() error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}

	c.buildGateway()

	if err := c.buildTracker(); err != nil {
		return fmt.Errorf("build tracker failed: %w", err)
	}

	c.registerLifecycleComponents()
	c.logger.Info("container built successfully")
	return nil
}

func (c *Container) buildInfrastructure() error {
	var err error
	c.logger, err = logger.New(c.cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}
	c.monitor = monitor.New(monitor.DefaultConfig())
	c.logger.Info("infrastructure built")
	return nil
}

func (c *Container) buildGateway() {
	c.snapshots, c.stream = gateway.BuildOrderClients(c.cfg.Gateway.Endpoints())
	c.logger.LogChannel("gateway_built", map[string]interface{}{
		"base_url":    c.cfg.Gateway.BaseURL,
		"ws_endpoint": c.cfg.Gateway.WSEndpoint,
	})
}

func (c *Container) buildTracker() error {
	s, err := tracker.New(tracker.Config{
		KeepAliveInterval: c.cfg.Tracker.KeepAliveInterval(),
		LoadingText:       c.cfg.Tracker.LoadingText,
		ErrorText:         c.cfg.Tracker.ErrorText,
	}, tracker.Components{
		Snapshots: c.snapshots,
		Channel:   c.stream,
		Logger:    c.logger,
		Monitor:   c.monitor,
	})
	if err != nil {
		return err
	}
	c.synchronizer = s
	c.session = &trackerComponent{
		sync:    s,
		orderID: gateway.OrderID(c.cfg.Tracker.OrderID),
	}
	return nil
}

func (c *Container) registerLifecycleComponents() {
	if c.cfg.Metrics.Enabled {
		c.metrics = &httpServerComponent{
			name:    "metrics_server",
			handler: c.adminRouter(),
			addr:    c.cfg.Metrics.Addr,
			logger:  c.logger,
		}
		c.lifecycle.Register(c.metrics)
	}
	if c.configPath != "" {
		c.lifecycle.Register(&watcherComponent{path: c.configPath, logger: c.logger})
	}
	c.lifecycle.Register(c.session)
}

func (c *Container) adminRouter() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", c.monitor.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := c.HealthCheck(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

func (c *Container) Start(ctx context.Context) error {
	c.logger.Info("starting container...")

	if err := c.lifecycle.StartAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}

	c.logger.Info("container started")
	return nil
}

// Stop deactivates the session before the metrics server goes away.
func (c *Container) Stop() error {
	c.logger.Info("stopping container...")

	err := c.lifecycle.StopAll()
	if err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "stop"})
	}

	_ = c.logger.Close()
	return err
}

func (c *Container) HealthCheck() error {
	return c.lifecycle.CheckHealth()
}

// Session returns the active tracking handle, or nil before Start.
func (c *Container) Session() *tracker.Handle {
	if c.session == nil {
		return nil
	}
	return c.session.current()
}

// MetricsAddr returns the bound metrics address, or "" when disabled.
func (c *Container) MetricsAddr() string {
	if c.metrics == nil {
		return ""
	}
	return c.metrics.Addr()
}

func (c *Container) Logger() *logger.Logger { return c.logger }

func (c *Container) Config() config.AppConfig { return *c.cfg }
