package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBackend   = "auto"
	DefaultDockAppID = "org.dockwin.dock"
	DefaultLogLevel  = "info"
)

// Backends lists the accepted values of the backend key.
var Backends = []string{"auto", "plasma", "wlr", "x11", "none"}

// IPCConfig controls the control socket.
type IPCConfig struct {
	Enabled bool `yaml:"enabled"`
	// Socket overrides $XDG_RUNTIME_DIR/dockwin.sock.
	Socket string `yaml:"socket,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// CatalogConfig controls the desktop-entry catalog used for app id correction.
type CatalogConfig struct {
	Watch bool `yaml:"watch"`
	// Dirs replaces the XDG application directories when set.
	Dirs []string `yaml:"dirs,omitempty"`
}

// ActivitiesConfig controls KDE activity tracking.
type ActivitiesConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the effective daemon configuration.
type Config struct {
	// Backend is one of Backends. "auto" tries plasma, then wlr, then x11.
	Backend string `yaml:"backend"`
	// DockAppID identifies the dock's own windows so they are hidden and pinned.
	DockAppID        string           `yaml:"dock_app_id"`
	VendorNamespaces []string         `yaml:"vendor_namespaces"`
	LogLevel         string           `yaml:"log_level"`
	IPC              IPCConfig        `yaml:"ipc"`
	Metrics          MetricsConfig    `yaml:"metrics"`
	Catalog          CatalogConfig    `yaml:"catalog"`
	Activities       ActivitiesConfig `yaml:"activities"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Backend:          DefaultBackend,
		DockAppID:        DefaultDockAppID,
		VendorNamespaces: []string{"org.kde", "org.gnome", "org.freedesktop"},
		LogLevel:         DefaultLogLevel,
		IPC:              IPCConfig{Enabled: true},
		Catalog:          CatalogConfig{Watch: true},
		Activities:       ActivitiesConfig{Enabled: true},
	}
}

// SlogLevel maps LogLevel onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for values the daemon cannot use.
func (c *Config) Validate() error {
	if !validBackend(c.Backend) {
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: %s", strings.Join(Backends, ", "))}
	}
	if strings.TrimSpace(c.DockAppID) == "" {
		return &ValidationError{Path: "dock_app_id", Err: fmt.Errorf("dock_app_id is required")}
	}
	for i, ns := range c.VendorNamespaces {
		if strings.TrimSpace(ns) == "" {
			return &ValidationError{Path: "vendor_namespaces", Err: fmt.Errorf("entry %d is empty", i)}
		}
		if strings.HasSuffix(ns, ".") {
			return &ValidationError{Path: "vendor_namespaces", Err: fmt.Errorf("%q must not end with a dot", ns)}
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	if c.Metrics.Listen != "" && !strings.Contains(c.Metrics.Listen, ":") {
		return &ValidationError{Path: "metrics.listen", Err: fmt.Errorf("listen address %q must be host:port", c.Metrics.Listen)}
	}
	for i, dir := range c.Catalog.Dirs {
		if strings.TrimSpace(dir) == "" {
			return &ValidationError{Path: "catalog.dirs", Err: fmt.Errorf("entry %d is empty", i)}
		}
	}
	return nil
}

func validBackend(name string) bool {
	for _, b := range Backends {
		if b == name {
			return true
		}
	}
	return false
}
