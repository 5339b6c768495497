package config

import (
	"fmt"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Source.Kind == SourceEnv {
		return fmt.Sprintf("$%s: %s: %v", e.Source.Name, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig layers raw over the defaults.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	if raw.Backend != nil {
		cfg.Backend = *raw.Backend
	}
	if raw.DockAppID != nil {
		cfg.DockAppID = *raw.DockAppID
	}
	if raw.VendorNamespaces != nil {
		cfg.VendorNamespaces = append([]string(nil), raw.VendorNamespaces...)
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.IPC != nil {
		cfg.IPC.Enabled = derefBool(raw.IPC.Enabled, cfg.IPC.Enabled)
		if raw.IPC.Socket != nil {
			cfg.IPC.Socket = *raw.IPC.Socket
		}
	}
	if raw.Metrics != nil && raw.Metrics.Listen != nil {
		cfg.Metrics.Listen = *raw.Metrics.Listen
	}
	if raw.Catalog != nil {
		cfg.Catalog.Watch = derefBool(raw.Catalog.Watch, cfg.Catalog.Watch)
		if raw.Catalog.Dirs != nil {
			cfg.Catalog.Dirs = append([]string(nil), raw.Catalog.Dirs...)
		}
	}
	if raw.Activities != nil {
		cfg.Activities.Enabled = derefBool(raw.Activities.Enabled, cfg.Activities.Enabled)
	}

	return cfg
}

func derefBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
