package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Backend != DefaultBackend {
		t.Fatalf("expected backend %q, got %q", DefaultBackend, cfg.Backend)
	}
	if !cfg.IPC.Enabled || !cfg.Catalog.Watch || !cfg.Activities.Enabled {
		t.Fatalf("expected ipc, catalog watch and activities on by default: %+v", cfg)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(BackendEnv, "")
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(res.Config, DefaultConfig()) {
		t.Fatalf("expected defaults, got %+v", res.Config)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	t.Setenv(BackendEnv, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.DockAppID != DefaultDockAppID {
		t.Fatalf("expected dock_app_id %q, got %q", DefaultDockAppID, res.Config.DockAppID)
	}
}

func TestLoadFromPath_AllKeys(t *testing.T) {
	t.Setenv(BackendEnv, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, strings.Join([]string{
		"backend: wlr",
		"dock_app_id: org.example.dock",
		"vendor_namespaces: [org.kde, io.elementary]",
		"log_level: debug",
		"ipc:",
		"  enabled: false",
		"  socket: /tmp/dock.sock",
		"metrics:",
		"  listen: 127.0.0.1:9477",
		"catalog:",
		"  watch: false",
		"  dirs: [/opt/apps]",
		"activities:",
		"  enabled: false",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := &Config{
		Backend:          "wlr",
		DockAppID:        "org.example.dock",
		VendorNamespaces: []string{"org.kde", "io.elementary"},
		LogLevel:         "debug",
		IPC:              IPCConfig{Enabled: false, Socket: "/tmp/dock.sock"},
		Metrics:          MetricsConfig{Listen: "127.0.0.1:9477"},
		Catalog:          CatalogConfig{Watch: false, Dirs: []string{"/opt/apps"}},
		Activities:       ActivitiesConfig{Enabled: false},
	}
	if !reflect.DeepEqual(res.Config, want) {
		t.Fatalf("config = %+v\nwant %+v", res.Config, want)
	}
	if res.Config.SlogLevel() != slog.LevelDebug {
		t.Fatalf("SlogLevel = %v", res.Config.SlogLevel())
	}
}

func TestLoadFromPath_PartialSectionKeepsDefaults(t *testing.T) {
	t.Setenv(BackendEnv, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "ipc:\n  socket: /tmp/x.sock\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !res.Config.IPC.Enabled {
		t.Fatal("ipc.enabled lost its default")
	}
	if res.Config.IPC.Socket != "/tmp/x.sock" {
		t.Fatalf("ipc.socket = %q", res.Config.IPC.Socket)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") && !strings.Contains(err.Error(), "field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_InvalidValueHasSourceContext(t *testing.T) {
	t.Setenv(BackendEnv, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "log_level: info\nbackend: gnome\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "backend" {
		t.Fatalf("path = %q", verr.Path)
	}
	if verr.Source.Line != 2 {
		t.Fatalf("source line = %d, want 2", verr.Source.Line)
	}
	if !strings.Contains(err.Error(), path+":2:") {
		t.Fatalf("expected file:line prefix, got %v", err)
	}
}

func TestLoadFromPath_BackendEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "backend: plasma\n")

	t.Setenv(BackendEnv, "x11")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Backend != "x11" {
		t.Fatalf("backend = %q, want x11", res.Config.Backend)
	}
	_, src, err := Explain(res, "backend")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if src.Kind != SourceEnv || FormatSource(src) != "$"+BackendEnv {
		t.Fatalf("source = %#v", src)
	}

	t.Setenv(BackendEnv, "bogus")
	if _, err := LoadFromPath(path); err == nil || !strings.Contains(err.Error(), "$"+BackendEnv) {
		t.Fatalf("expected env-attributed error, got %v", err)
	}
}

func TestLoadFromPath_IncludeGlobOrderAndMainOverrides(t *testing.T) {
	t.Setenv(BackendEnv, "")
	dir := t.TempDir()

	// config.d loaded first, in sorted order.
	configD := filepath.Join(dir, "config.d")
	if err := os.MkdirAll(configD, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, filepath.Join(configD, "10-base.yaml"), "log_level: warn\nbackend: wlr\n")
	writeConfig(t, filepath.Join(configD, "20-override.yaml"), "log_level: error\n")

	// Main file overrides includes.
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "include:\n  - config.d/*.yaml\nbackend: plasma\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.LogLevel != "error" {
		t.Fatalf("expected log_level error, got %q", res.Config.LogLevel)
	}
	if res.Config.Backend != "plasma" {
		t.Fatalf("expected backend plasma, got %q", res.Config.Backend)
	}
	if len(res.Files) != 3 || res.Files[2] != canonicalPath(path) {
		t.Fatalf("expected includes before main file, got %v", res.Files)
	}
	src := res.Sources["log_level"]
	if src.File != canonicalPath(filepath.Join(configD, "20-override.yaml")) || src.Line != 1 {
		t.Fatalf("log_level source = %#v", src)
	}
}

func TestLoadFromPath_IncludeEntries(t *testing.T) {
	t.Setenv(BackendEnv, "")
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "empty.d"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	tests := []struct {
		name    string
		include string
		wantErr string
	}{
		{"glob matching nothing", "empty.d/*.yaml", ""},
		{"bare directory", "empty.d", "is a directory"},
		{"blank entry", "\"  \"", "path is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "config.yaml")
			writeConfig(t, path, "include: "+tt.include+"\n")

			res, err := LoadFromPath(path)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("load: %v", err)
				}
				if len(res.Files) != 1 {
					t.Fatalf("files = %v", res.Files)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q error, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadFromPath_SharedIncludeReadOnce(t *testing.T) {
	t.Setenv(BackendEnv, "")
	dir := t.TempDir()
	writeConfig(t, filepath.Join(dir, "common.yaml"), "log_level: debug\n")
	writeConfig(t, filepath.Join(dir, "a.yaml"), "include: common.yaml\n")
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "include: [a.yaml, common.yaml]\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Files) != 3 {
		t.Fatalf("files = %v", res.Files)
	}
	if res.Config.LogLevel != "debug" {
		t.Fatalf("log_level = %q", res.Config.LogLevel)
	}
}

func TestLoadFromPath_IncludeMissingPathHasContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "include:\n  - missing.yaml\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "include") || !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatalf("expected include error, got %v", err)
	}
	if !strings.Contains(err.Error(), path+":") {
		t.Fatalf("expected error to include file:line:col prefix, got %v", err)
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	writeConfig(t, a, "include: b.yaml\n")
	writeConfig(t, b, "include: a.yaml\n")

	_, err := LoadFromPath(a)
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"bad backend", func(c *Config) { c.Backend = "gnome" }, "backend"},
		{"empty dock id", func(c *Config) { c.DockAppID = " " }, "dock_app_id"},
		{"empty vendor", func(c *Config) { c.VendorNamespaces = []string{"org.kde", ""} }, "vendor_namespaces"},
		{"trailing dot vendor", func(c *Config) { c.VendorNamespaces = []string{"org.kde."} }, "vendor_namespaces"},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"bad listen", func(c *Config) { c.Metrics.Listen = "9477" }, "metrics.listen"},
		{"empty catalog dir", func(c *Config) { c.Catalog.Dirs = []string{""} }, "catalog.dirs"},
		{"warning alias", func(c *Config) { c.LogLevel = "warning" }, ""},
		{"none backend", func(c *Config) { c.Backend = "none" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.path == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Path != tt.path {
				t.Fatalf("Validate() = %v, want error at %q", err, tt.path)
			}
		})
	}
}

func TestSaveTo_RoundTrips(t *testing.T) {
	t.Setenv(BackendEnv, "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Backend = "x11"
	cfg.Metrics.Listen = ":9477"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(res.Config, cfg) {
		t.Fatalf("reloaded %+v, want %+v", res.Config, cfg)
	}
}

func TestSaveTo_RejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "loud"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.SaveTo(path); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file written despite invalid config: %v", err)
	}
}

func TestExplain(t *testing.T) {
	t.Setenv(BackendEnv, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "catalog:\n  watch: false\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	val, src, err := Explain(res, "catalog.watch")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != false || src.Kind != SourceFile || src.Line != 2 {
		t.Fatalf("catalog.watch = %#v from %#v", val, src)
	}

	val, src, err = Explain(res, "dock_app_id")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != DefaultDockAppID || src.Kind != SourceDefault {
		t.Fatalf("dock_app_id = %#v from %#v", val, src)
	}

	if _, _, err := Explain(res, "layouts.grid"); err == nil {
		t.Fatal("expected unknown path error")
	}
	if len(Paths()) != len(lookups) {
		t.Fatalf("Paths() = %v", Paths())
	}
}
