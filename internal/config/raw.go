package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "conf.d/*.yaml"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawIPCConfig struct {
	Enabled *bool   `yaml:"enabled"`
	Socket  *string `yaml:"socket"`
}

type RawMetricsConfig struct {
	Listen *string `yaml:"listen"`
}

type RawCatalogConfig struct {
	Watch *bool    `yaml:"watch"`
	Dirs  []string `yaml:"dirs"`
}

type RawActivitiesConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// RawConfig is one file's view of the configuration. Nil fields were not
// set by that file.
type RawConfig struct {
	Include          IncludeList          `yaml:"include"`
	Backend          *string              `yaml:"backend"`
	DockAppID        *string              `yaml:"dock_app_id"`
	VendorNamespaces []string             `yaml:"vendor_namespaces"`
	LogLevel         *string              `yaml:"log_level"`
	IPC              *RawIPCConfig        `yaml:"ipc"`
	Metrics          *RawMetricsConfig    `yaml:"metrics"`
	Catalog          *RawCatalogConfig    `yaml:"catalog"`
	Activities       *RawActivitiesConfig `yaml:"activities"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Backend != nil {
		out.Backend = overlay.Backend
	}
	if overlay.DockAppID != nil {
		out.DockAppID = overlay.DockAppID
	}
	if overlay.VendorNamespaces != nil {
		out.VendorNamespaces = overlay.VendorNamespaces
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}

	if overlay.IPC != nil {
		merged := RawIPCConfig{}
		if out.IPC != nil {
			merged = *out.IPC
		}
		if overlay.IPC.Enabled != nil {
			merged.Enabled = overlay.IPC.Enabled
		}
		if overlay.IPC.Socket != nil {
			merged.Socket = overlay.IPC.Socket
		}
		out.IPC = &merged
	}
	if overlay.Metrics != nil {
		merged := RawMetricsConfig{}
		if out.Metrics != nil {
			merged = *out.Metrics
		}
		if overlay.Metrics.Listen != nil {
			merged.Listen = overlay.Metrics.Listen
		}
		out.Metrics = &merged
	}
	if overlay.Catalog != nil {
		merged := RawCatalogConfig{}
		if out.Catalog != nil {
			merged = *out.Catalog
		}
		if overlay.Catalog.Watch != nil {
			merged.Watch = overlay.Catalog.Watch
		}
		if overlay.Catalog.Dirs != nil {
			merged.Dirs = overlay.Catalog.Dirs
		}
		out.Catalog = &merged
	}
	if overlay.Activities != nil {
		merged := RawActivitiesConfig{}
		if out.Activities != nil {
			merged = *out.Activities
		}
		if overlay.Activities.Enabled != nil {
			merged.Enabled = overlay.Activities.Enabled
		}
		out.Activities = &merged
	}

	return out
}
