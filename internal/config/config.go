// Package config loads clangdex settings from a YAML or TOML file, with
// CLANGDEX_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jward/clangdex/internal/needle"
)

// DefaultDatabase is the index path used when none is configured.
const DefaultDatabase = ".clangdex/index.db"

// Config is the on-disk configuration. Unset pointer fields fall back to
// the Effective* defaults.
type Config struct {
	Tree    TreeConfig   `yaml:"tree" toml:"tree"`
	Build   BuildConfig  `yaml:"build" toml:"build"`
	Index   IndexConfig  `yaml:"index" toml:"index"`
	Needles NeedleConfig `yaml:"needles" toml:"needles"`
}

type TreeConfig struct {
	SourceFolder string `yaml:"source_folder" toml:"source_folder"`
	// ObjectFolder defaults to SourceFolder.
	ObjectFolder string `yaml:"object_folder" toml:"object_folder"`
	// TempFolder defaults to <ObjectFolder>/.clangdex-tmp.
	TempFolder   string `yaml:"temp_folder" toml:"temp_folder"`
	PluginFolder string `yaml:"plugin_folder" toml:"plugin_folder"`
}

type BuildConfig struct {
	Command []string `yaml:"command" toml:"command"`
	CC      string   `yaml:"cc" toml:"cc"`
	CXX     string   `yaml:"cxx" toml:"cxx"`
}

type IndexConfig struct {
	Database   string   `yaml:"database" toml:"database"`
	Workers    *int     `yaml:"workers" toml:"workers"`
	Extensions []string `yaml:"extensions" toml:"extensions"`
}

type NeedleConfig struct {
	// Builtin enables the analyzer's standard needle set. Default: true.
	Builtin   *bool             `yaml:"builtin" toml:"builtin"`
	Mappings  []needle.Mapping  `yaml:"mappings" toml:"mappings"`
	Hierarchy []HierarchyConfig `yaml:"hierarchy" toml:"hierarchy"`
}

// HierarchyConfig is the file form of needle.HierarchyMapping.
type HierarchyConfig struct {
	Kind      string `yaml:"kind" toml:"kind"`
	NameField string `yaml:"name_field" toml:"name_field"`
	SpanField string `yaml:"span_field" toml:"span_field"`
	Tag       string `yaml:"tag" toml:"tag"`
	Prefix    string `yaml:"prefix" toml:"prefix"`
	Direction string `yaml:"direction" toml:"direction"` // "ancestors" or "descendants"
}

// Default returns an empty configuration.
func Default() *Config {
	return &Config{}
}

// Load reads path, choosing the decoder by extension, then applies
// environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: decode YAML %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: decode TOML %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported extension %q (want .yaml, .yml or .toml)", ext)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides:
//
//   - CLANGDEX_SOURCE_FOLDER, CLANGDEX_OBJECT_FOLDER, CLANGDEX_TEMP_FOLDER,
//     CLANGDEX_PLUGIN_FOLDER: tree folders
//   - CLANGDEX_DB: index.database
//   - CLANGDEX_WORKERS: index.workers (ignored unless a positive integer)
//   - CLANGDEX_CC, CLANGDEX_CXX: build compilers
func (c *Config) ApplyEnvOverrides() {
	for env, dst := range map[string]*string{
		"CLANGDEX_SOURCE_FOLDER": &c.Tree.SourceFolder,
		"CLANGDEX_OBJECT_FOLDER": &c.Tree.ObjectFolder,
		"CLANGDEX_TEMP_FOLDER":   &c.Tree.TempFolder,
		"CLANGDEX_PLUGIN_FOLDER": &c.Tree.PluginFolder,
		"CLANGDEX_DB":            &c.Index.Database,
		"CLANGDEX_CC":            &c.Build.CC,
		"CLANGDEX_CXX":           &c.Build.CXX,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("CLANGDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.Workers = &n
		}
	}
}

// ValidationError is one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration. An empty source folder is allowed
// here because the CLI may supply it by flag; see Require.
func (c *Config) Validate() error {
	var errs ValidateErrors
	if c.Index.Workers != nil && *c.Index.Workers < 1 {
		errs = append(errs, ValidationError{
			Field:   "index.workers",
			Message: fmt.Sprintf("must be positive, got %d", *c.Index.Workers),
		})
	}
	for i, ext := range c.Index.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("index.extensions[%d]", i),
				Message: fmt.Sprintf("%q must start with '.'", ext),
			})
		}
	}
	badDirection := false
	for i, h := range c.Needles.Hierarchy {
		if _, err := parseDirection(h.Direction); err != nil {
			badDirection = true
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("needles.hierarchy[%d].direction", i),
				Message: err.Error(),
			})
		}
	}
	if !badDirection {
		if _, err := c.Registry(); err != nil {
			errs = append(errs, ValidationError{Field: "needles", Message: err.Error()})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Require reports the settings a run cannot do without.
func (c *Config) Require() error {
	if c.Tree.SourceFolder == "" {
		return ValidateErrors{{Field: "tree.source_folder", Message: "is required"}}
	}
	return nil
}

// EffectiveObjectFolder returns the object folder, or the source folder.
func (c *Config) EffectiveObjectFolder() string {
	if c.Tree.ObjectFolder != "" {
		return c.Tree.ObjectFolder
	}
	return c.Tree.SourceFolder
}

// EffectiveTempFolder returns the temp folder, or <object folder>/.clangdex-tmp.
func (c *Config) EffectiveTempFolder() string {
	if c.Tree.TempFolder != "" {
		return c.Tree.TempFolder
	}
	return filepath.Join(c.EffectiveObjectFolder(), ".clangdex-tmp")
}

// EffectiveDatabase returns the index database path, or DefaultDatabase.
func (c *Config) EffectiveDatabase() string {
	if c.Index.Database != "" {
		return c.Index.Database
	}
	return DefaultDatabase
}

// EffectiveWorkers returns the configured worker count, or the CPU count.
func (c *Config) EffectiveWorkers() int {
	if c.Index.Workers != nil {
		return *c.Index.Workers
	}
	return runtime.NumCPU()
}

// EffectiveBuiltin reports whether the builtin needle set is enabled.
// Default: true.
func (c *Config) EffectiveBuiltin() bool {
	if c.Needles.Builtin != nil {
		return *c.Needles.Builtin
	}
	return true
}

// Registry assembles the needle registry: the builtin set (or only the
// builtin schemas when disabled) plus the configured mappings.
func (c *Config) Registry() (*needle.Registry, error) {
	r := needle.WithSchemas()
	if c.EffectiveBuiltin() {
		r = needle.Builtin()
	}
	for _, m := range c.Needles.Mappings {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	for _, h := range c.Needles.Hierarchy {
		dir, err := parseDirection(h.Direction)
		if err != nil {
			return nil, err
		}
		if err := r.RegisterHierarchy(needle.HierarchyMapping{
			Kind:      h.Kind,
			NameField: h.NameField,
			SpanField: h.SpanField,
			Tag:       h.Tag,
			Prefix:    h.Prefix,
			Direction: dir,
		}); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func parseDirection(s string) (needle.Direction, error) {
	switch strings.ToLower(s) {
	case "", "ancestors", "bases":
		return needle.Ancestors, nil
	case "descendants", "derived":
		return needle.Descendants, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (want ancestors or descendants)", s)
	}
}
