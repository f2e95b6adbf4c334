// Package loader maintains the strategy profile registry: named Darvas
// parameter presets loaded from a YAML file and hot-reloaded on change.
package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"darvas/internal/config"
	"darvas/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Profile is one named strategy preset. Overrides submitted at run time are
// validated against Schema before they are merged into Params.
type Profile struct {
	Name        string         `mapstructure:"-" yaml:"-"`
	Description string         `mapstructure:"description" yaml:"description"`
	Default     bool           `mapstructure:"default" yaml:"default"`
	Params      map[string]any `mapstructure:"params" yaml:"params"`
	Schema      map[string]any `mapstructure:"schema" yaml:"schema"`

	schemaCompiled *jsonschema.Schema
}

type fileConfig struct {
	Profiles map[string]Profile `mapstructure:"profiles" yaml:"profiles"`
}

// Snapshot is an immutable view of the loaded profiles.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Profiles map[string]Profile
}

// Registry loads strategy profiles and watches the file for updates.
type Registry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewRegistry reads the profile file at path and starts watching it.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("profile registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read profiles failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("profile reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot returns the current profile set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Profile returns the profile with the given name.
func (r *Registry) Profile(name string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Profiles[strings.TrimSpace(name)]
	return p, ok
}

// DefaultProfile returns the profile flagged default, or the first by name.
func (r *Registry) DefaultProfile() (Profile, bool) {
	snap := r.Snapshot()
	names := make([]string, 0, len(snap.Profiles))
	for name, p := range snap.Profiles {
		if p.Default {
			return p, true
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return Profile{}, false
	}
	sort.Strings(names)
	return snap.Profiles[names[0]], true
}

// Resolve merges overrides into the named profile's params (overrides are
// schema-validated first) and decodes the result onto base.
func (r *Registry) Resolve(name string, overrides map[string]any, base config.StrategyConfig) (config.StrategyConfig, error) {
	p, ok := r.Profile(name)
	if !ok {
		return base, fmt.Errorf("unknown profile: %s", name)
	}
	if len(overrides) > 0 {
		if err := p.ValidateOverrides(overrides); err != nil {
			return base, fmt.Errorf("profile %s overrides rejected: %w", p.Name, err)
		}
	}
	merged := make(map[string]any, len(p.Params)+len(overrides))
	for k, v := range p.Params {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	// The wallet mode shapes the state store at startup; a profile flipping
	// it mid-flight would race a store built for the other mode.
	if _, ok := merged["wallet_mode"]; ok {
		return base, fmt.Errorf("profile %s: wallet_mode is fixed at startup and cannot be set per run", p.Name)
	}
	out := base
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "toml",
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return base, err
	}
	if err := dec.Decode(merged); err != nil {
		return base, fmt.Errorf("profile %s params invalid: %w", p.Name, err)
	}
	return out, nil
}

// ValidateOverrides checks overrides against the profile schema, if any.
func (p Profile) ValidateOverrides(overrides map[string]any) error {
	if p.schemaCompiled == nil {
		return nil
	}
	return p.schemaCompiled.Validate(overrides)
}

func (r *Registry) reload() error {
	cfg, err := readProfileFile(r.path)
	if err != nil {
		return err
	}
	profiles := make(map[string]Profile, len(cfg.Profiles))
	for name, p := range cfg.Profiles {
		profiles[name] = normalizeProfile(name, p)
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Profiles: profiles,
	}
	r.mu.Unlock()
	logger.Infof("profile registry loaded %d profiles from %s", len(profiles), filepath.Base(r.path))
	return nil
}

func normalizeProfile(name string, p Profile) Profile {
	p.Name = strings.TrimSpace(name)
	p.Description = strings.TrimSpace(p.Description)
	if len(p.Schema) > 0 {
		compiled, err := compileSchema(p.Schema)
		if err != nil {
			logger.Errorf("profile schema compile failed name=%s: %v", p.Name, err)
		} else {
			p.schemaCompiled = compiled
		}
	}
	return p
}

func compileSchema(data map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func readProfileFile(path string) (fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read profiles failed: %w", err)
	}
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse profiles failed: %w", err)
	}
	return cfg, nil
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Profiles: make(map[string]Profile, len(src.Profiles)),
	}
	for name, p := range src.Profiles {
		dst.Profiles[name] = p
	}
	return dst
}
