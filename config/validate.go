package config

import (
	"net/url"

	"go.uber.org/zap/zapcore"
)

// ErrInvalid reports a config value that failed validation.
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }

// Validate ensures required fields are present and well formed.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return ErrInvalid("env is required")
	}
	if err := validateURL("gateway.baseURL", cfg.Gateway.BaseURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("gateway.wsEndpoint", cfg.Gateway.WSEndpoint, "http", "https", "ws", "wss"); err != nil {
		return err
	}
	if cfg.Gateway.HTTPTimeoutMs < 0 || cfg.Gateway.HandshakeTimeoutMs < 0 {
		return ErrInvalid("gateway timeouts must be >= 0")
	}
	if cfg.Tracker.OrderID == "" {
		return ErrInvalid("tracker.orderId is required (or OT_ORDER_ID)")
	}
	if cfg.Tracker.KeepAliveIntervalMs <= 0 {
		return ErrInvalid("tracker.keepAliveIntervalMs must be > 0")
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return ErrInvalid("log.level " + cfg.Log.Level + " is not a valid level")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return ErrInvalid("metrics.addr is required when metrics are enabled")
	}
	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return ErrInvalid(field + " is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ErrInvalid(field + " must be an absolute URL")
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return ErrInvalid(field + " has unsupported scheme " + u.Scheme)
}
