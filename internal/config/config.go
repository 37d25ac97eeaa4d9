// Package config loads copper's configuration from .copper.yml or
// .copper.toml.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/moby/patternmatcher"
	"gopkg.in/yaml.v3"

	"github.com/jward/copper/internal/cop"
)

const (
	DefaultCachePath = ".copper-cache.db"
	DefaultMaxPasses = 200
)

// Names are the file names LoadFromDir looks for, in order.
var Names = []string{".copper.yml", ".copper.yaml", ".copper.toml"}

// Config is the full configuration.
type Config struct {
	AllCops AllCops              `yaml:"all_cops" toml:"all_cops"`
	Cops    map[string]CopConfig `yaml:"cops" toml:"cops"`
	Scripts []ScriptCop          `yaml:"scripts" toml:"scripts"`

	path     string
	excludes *patternmatcher.PatternMatcher
}

// AllCops holds settings that apply to every cop.
type AllCops struct {
	Exclude   []string `yaml:"exclude" toml:"exclude"`
	Parallel  bool     `yaml:"parallel" toml:"parallel"`
	UseCache  bool     `yaml:"use_cache" toml:"use_cache"`
	CachePath string   `yaml:"cache_path" toml:"cache_path"`
	MaxPasses int      `yaml:"max_passes" toml:"max_passes"`
	Color     string   `yaml:"color" toml:"color"`
}

// CopConfig overrides one cop's defaults.
type CopConfig struct {
	Enabled  *bool         `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Severity *cop.Severity `yaml:"severity,omitempty" toml:"severity,omitempty"`
}

// ScriptCop declares a cop implemented as a Risor script.
type ScriptCop struct {
	Name       string            `yaml:"name" toml:"name"`
	Path       string            `yaml:"path" toml:"path"`
	Message    string            `yaml:"message" toml:"message"`
	NodeTypes  []string          `yaml:"node_types" toml:"node_types"`
	Patterns   map[string]string `yaml:"patterns" toml:"patterns"`
	Severity   string            `yaml:"severity" toml:"severity"`
	Correction string            `yaml:"correction,omitempty" toml:"correction,omitempty"`
}

// DefaultConfig returns the configuration used when no file is found:
// every cop enabled at its default severity.
func DefaultConfig() *Config {
	return &Config{
		AllCops: AllCops{
			Parallel:  true,
			UseCache:  true,
			CachePath: DefaultCachePath,
			MaxPasses: DefaultMaxPasses,
			Color:     "auto",
		},
		Cops: make(map[string]CopConfig),
	}
}

// Load reads the configuration at path. TOML is chosen by extension,
// anything else is read as YAML. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: failed to parse TOML: %w", path, err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: failed to parse YAML: %w", path, err)
		}
	}
	if cfg.Cops == nil {
		cfg.Cops = make(map[string]CopConfig)
	}
	cfg.path = path
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir loads the first of Names found in dir, or the defaults.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range Names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings and compiles the exclude patterns.
func (c *Config) Validate() error {
	switch c.AllCops.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("all_cops.color must be auto, always or never, got %q", c.AllCops.Color)
	}
	if c.AllCops.MaxPasses < 1 {
		return fmt.Errorf("all_cops.max_passes must be at least 1, got %d", c.AllCops.MaxPasses)
	}
	for i, s := range c.Scripts {
		if s.Name == "" || s.Path == "" {
			return fmt.Errorf("scripts[%d]: name and path are required", i)
		}
	}
	pm, err := patternmatcher.New(c.AllCops.Exclude)
	if err != nil {
		return fmt.Errorf("all_cops.exclude: %w", err)
	}
	c.excludes = pm
	return nil
}

// Path returns the file the configuration was loaded from, or "".
func (c *Config) Path() string { return c.path }

// Dir returns the directory script paths are relative to.
func (c *Config) Dir() string {
	if c.path == "" {
		return "."
	}
	return filepath.Dir(c.path)
}

// Enabled reports whether the named cop should run.
func (c *Config) Enabled(name string) bool {
	cc, ok := c.Cops[name]
	if !ok || cc.Enabled == nil {
		return true
	}
	return *cc.Enabled
}

// SeverityFor returns the configured severity of the named cop, or def.
func (c *Config) SeverityFor(name string, def cop.Severity) cop.Severity {
	if cc, ok := c.Cops[name]; ok && cc.Severity != nil {
		return *cc.Severity
	}
	return def
}

// Excluded reports whether path, relative to the project root, matches an
// exclude pattern.
func (c *Config) Excluded(path string) bool {
	if c.excludes == nil || len(c.AllCops.Exclude) == 0 {
		return false
	}
	ok, err := c.excludes.MatchesOrParentMatches(filepath.ToSlash(path))
	return err == nil && ok
}

// Hash digests every setting that affects inspection results. Cached
// results are only reused under the same hash.
func (c *Config) Hash() string {
	view := struct {
		Cops    map[string]CopConfig `yaml:"cops"`
		Scripts []ScriptCop          `yaml:"scripts"`
	}{c.Cops, c.Scripts}
	data, err := yaml.Marshal(view)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
