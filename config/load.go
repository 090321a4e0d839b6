package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"order-tracker-go/gateway"
	"order-tracker-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string        `yaml:"env"`
	Gateway GatewayConfig `yaml:"gateway"`
	Tracker TrackerConfig `yaml:"tracker"`
	Log     logger.Config `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type GatewayConfig struct {
	BaseURL            string `yaml:"baseURL"`    // snapshot API
	WSEndpoint         string `yaml:"wsEndpoint"` // live channel host; defaults to baseURL
	WSPath             string `yaml:"wsPath"`
	HTTPTimeoutMs      int    `yaml:"httpTimeoutMs"`
	HandshakeTimeoutMs int    `yaml:"handshakeTimeoutMs"`
}

type TrackerConfig struct {
	OrderID             string `yaml:"orderId"`
	KeepAliveIntervalMs int    `yaml:"keepAliveIntervalMs"`
	LoadingText         string `yaml:"loadingText"`
	ErrorText           string `yaml:"errorText"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

const (
	defaultHTTPTimeoutMs       = 10000
	defaultHandshakeTimeoutMs  = 10000
	defaultKeepAliveIntervalMs = 30000
	defaultMetricsAddr         = ":9102"
)

// Load reads YAML config from path, fills defaults and validates.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides endpoint and order fields
// from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if v := os.Getenv("OT_GATEWAY_BASE_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := os.Getenv("OT_GATEWAY_WS_ENDPOINT"); v != "" {
		cfg.Gateway.WSEndpoint = v
	}
	if v := os.Getenv("OT_ORDER_ID"); v != "" {
		cfg.Tracker.OrderID = v
	}
	if v := os.Getenv("OT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	ApplyDefaults(&cfg)
	return cfg, Validate(cfg)
}

// ApplyDefaults fills zero values.
func ApplyDefaults(cfg *AppConfig) {
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Gateway.WSEndpoint == "" {
		cfg.Gateway.WSEndpoint = cfg.Gateway.BaseURL
	}
	if cfg.Gateway.WSPath == "" {
		cfg.Gateway.WSPath = gateway.DefaultWSPath
	}
	if cfg.Gateway.HTTPTimeoutMs == 0 {
		cfg.Gateway.HTTPTimeoutMs = defaultHTTPTimeoutMs
	}
	if cfg.Gateway.HandshakeTimeoutMs == 0 {
		cfg.Gateway.HandshakeTimeoutMs = defaultHandshakeTimeoutMs
	}
	if cfg.Tracker.KeepAliveIntervalMs == 0 {
		cfg.Tracker.KeepAliveIntervalMs = defaultKeepAliveIntervalMs
	}
	def := logger.DefaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Level
	}
	if len(cfg.Log.Outputs) == 0 {
		cfg.Log.Outputs = def.Outputs
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Format
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = defaultMetricsAddr
	}
}

// Endpoints converts the gateway section for gateway.BuildOrderClients.
func (g GatewayConfig) Endpoints() gateway.Endpoints {
	return gateway.Endpoints{
		BaseURL:          g.BaseURL,
		WSEndpoint:       g.WSEndpoint,
		WSPath:           g.WSPath,
		HTTPTimeout:      time.Duration(g.HTTPTimeoutMs) * time.Millisecond,
		HandshakeTimeout: time.Duration(g.HandshakeTimeoutMs) * time.Millisecond,
	}
}

// KeepAliveInterval returns the configured keep-alive period.
func (t TrackerConfig) KeepAliveInterval() time.Duration {
	return time.Duration(t.KeepAliveIntervalMs) * time.Millisecond
}
