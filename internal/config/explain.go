package config

import (
	"fmt"
	"sort"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths:
//
//	backend
//	dock_app_id
//	vendor_namespaces
//	log_level
//	ipc.enabled
//	ipc.socket
//	metrics.listen
//	catalog.watch
//	catalog.dirs
//	activities.enabled
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

// Paths lists every path Explain accepts, sorted.
func Paths() []string {
	out := make([]string, 0, len(lookups))
	for p := range lookups {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

var lookups = map[string]func(*Config) any{
	"backend":            func(c *Config) any { return c.Backend },
	"dock_app_id":        func(c *Config) any { return c.DockAppID },
	"vendor_namespaces":  func(c *Config) any { return c.VendorNamespaces },
	"log_level":          func(c *Config) any { return c.LogLevel },
	"ipc.enabled":        func(c *Config) any { return c.IPC.Enabled },
	"ipc.socket":         func(c *Config) any { return c.IPC.Socket },
	"metrics.listen":     func(c *Config) any { return c.Metrics.Listen },
	"catalog.watch":      func(c *Config) any { return c.Catalog.Watch },
	"catalog.dirs":       func(c *Config) any { return c.Catalog.Dirs },
	"activities.enabled": func(c *Config) any { return c.Activities.Enabled },
}

func lookupValue(cfg *Config, path string) (any, error) {
	fn, ok := lookups[strings.TrimSpace(path)]
	if !ok {
		return nil, fmt.Errorf("unknown config path %q", path)
	}
	return fn(cfg), nil
}

// FormatSource renders src for display.
func FormatSource(src Source) string {
	switch src.Kind {
	case SourceFile:
		return fmt.Sprintf("%s:%d:%d", src.File, src.Line, src.Column)
	case SourceEnv:
		return "$" + src.Name
	default:
		return string(src.Kind)
	}
}
