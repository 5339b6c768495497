package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
	SourceEnv     SourceKind = "env"
)

// Source says where a key's effective value came from.
type Source struct {
	Kind   SourceKind
	Name   string // for default/env
	File   string
	Line   int
	Column int
}

func (s Source) position() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // key path -> source of the value in effect
	Files   []string          // config files read, in apply order
}

// BackendEnv overrides the backend key.
const BackendEnv = "DOCKWIN_BACKEND"

func DefaultConfigPath() (string, error) {
	if xdg.ConfigHome == "" {
		return "", fmt.Errorf("failed to resolve config directory")
	}
	return filepath.Join(xdg.ConfigHome, "dockwin", "config.yaml"), nil
}

// Load reads the configuration from the standard location.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources is Load, keeping where each key came from.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// layer is one step of the configuration stack: a file or the environment.
// Later layers win key by key.
type layer struct {
	file    string
	raw     RawConfig
	sources map[string]Source
}

// LoadFromPath builds the effective config from, in order: the defaults,
// the includes of path, path itself and the environment. A missing path
// yields the defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	var layers []layer
	if _, err := os.Stat(path); err == nil {
		r := &fileReader{seen: map[string]bool{}}
		if err := r.read(path); err != nil {
			return nil, err
		}
		layers = r.layers
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if env, ok := envLayer(); ok {
		layers = append(layers, env)
	}

	res := &LoadResult{Sources: map[string]Source{}}
	var raw RawConfig
	for _, l := range layers {
		raw = raw.merge(l.raw)
		for key, src := range l.sources {
			res.Sources[key] = src
		}
		if l.file != "" {
			res.Files = append(res.Files, l.file)
		}
	}

	res.Config = BuildEffectiveConfig(raw)
	if err := res.Config.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			if src, ok := res.Sources[verr.Path]; ok {
				verr.Source = src
			}
		}
		return nil, err
	}
	return res, nil
}

func envLayer() (layer, bool) {
	v := strings.TrimSpace(os.Getenv(BackendEnv))
	if v == "" {
		return layer{}, false
	}
	return layer{
		raw:     RawConfig{Backend: &v},
		sources: map[string]Source{"backend": {Kind: SourceEnv, Name: BackendEnv}},
	}, true
}

// fileReader flattens a config file and its includes into layers, includes
// first so the including file overrides them.
type fileReader struct {
	layers []layer
	seen   map[string]bool
	stack  []string
}

func (r *fileReader) read(path string) error {
	canon := canonicalPath(path)
	for _, open := range r.stack {
		if open == canon {
			return fmt.Errorf("include cycle detected: %s -> %s", strings.Join(r.stack, " -> "), canon)
		}
	}
	if r.seen[canon] {
		return nil
	}
	r.seen[canon] = true

	data, err := os.ReadFile(canon)
	if err != nil {
		return fmt.Errorf("%s: failed to read: %w", canon, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s: failed to parse yaml: %w", canon, err)
	}
	var raw RawConfig
	if err := decodeStrict(data, &raw); err != nil {
		return fmt.Errorf("%s: %w", canon, err)
	}
	sources, includes := scanDocument(&doc, canon)

	r.stack = append(r.stack, canon)
	for _, inc := range includes {
		paths, err := expandInclude(canon, inc.Name)
		if err != nil {
			return fmt.Errorf("%s: include %q: %w", inc.position(), inc.Name, err)
		}
		for _, p := range paths {
			if err := r.read(p); err != nil {
				return err
			}
		}
	}
	r.stack = r.stack[:len(r.stack)-1]

	r.layers = append(r.layers, layer{file: canon, raw: raw, sources: sources})
	return nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func canonicalPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

// expandInclude resolves an include entry against the including file. The
// entry is a file or a glob; a plain file must exist, a glob may match
// nothing. Glob matches come back sorted.
func expandInclude(baseFile, include string) ([]string, error) {
	include = strings.TrimSpace(include)
	if include == "" {
		return nil, fmt.Errorf("path is empty")
	}
	if include == "~" || strings.HasPrefix(include, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		include = filepath.Join(home, strings.TrimPrefix(include, "~"))
	}
	if !filepath.IsAbs(include) {
		include = filepath.Join(filepath.Dir(baseFile), include)
	}

	if !strings.ContainsAny(include, "*?[") {
		info, err := os.Stat(include)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory (use %s/*.yaml)", include, include)
		}
		return []string{include}, nil
	}
	matches, err := filepath.Glob(include)
	if err != nil {
		return nil, err
	}
	files := matches[:0]
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			files = append(files, m)
		}
	}
	return files, nil
}

// scanDocument records the position of every key in doc and returns the
// top-level include entries. Sequences are tracked as a whole.
func scanDocument(doc *yaml.Node, file string) (map[string]Source, []Source) {
	sources := map[string]Source{}
	var includes []Source
	at := func(n *yaml.Node, name string) Source {
		return Source{Kind: SourceFile, Name: name, File: file, Line: n.Line, Column: n.Column}
	}

	var walk func(n *yaml.Node, prefix string)
	walk = func(n *yaml.Node, prefix string) {
		if n.Kind != yaml.MappingNode {
			return
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i].Value, n.Content[i+1]
			if prefix == "" && key == "include" {
				switch val.Kind {
				case yaml.ScalarNode:
					includes = append(includes, at(val, val.Value))
				case yaml.SequenceNode:
					for _, item := range val.Content {
						if item.Kind == yaml.ScalarNode {
							includes = append(includes, at(item, item.Value))
						}
					}
				}
				continue
			}
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			sources[path] = at(val, "")
			walk(val, path)
		}
	}

	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	walk(root, "")
	return sources, includes
}
