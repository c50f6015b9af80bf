// Package project loads HEMTT's TOML project and addon configuration
// (spec §6), grounded on `original_source/libs/common/src/config/
// project/mod.rs` and `.../project/addon/mod.rs`: a top-level
// project.toml (name, prefix, version, shared properties, lint config)
// plus a per-addon addon.toml overlay (preprocess/binarize toggles,
// per-addon properties, exclude globs). Uses
// `github.com/pelletier/go-toml/v2`, the teacher's own TOML dependency
// for configuration, rather than hand-rolling a TOML reader the way
// `internal/config` hand-rolls the rapified-format reader — TOML is
// exactly the well-understood, schema-driven format a struct-tag
// decoder is the right tool for.
package project

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// VersionConfig describes how the project's version is derived.
type VersionConfig struct {
	// Major.Minor.Patch, used when Path is empty.
	Major int `toml:"major"`
	Minor int `toml:"minor"`
	Patch int `toml:"patch"`
	// Path, when set, names a file to read the version from instead
	// (e.g. "addons/main/script_version.hpp").
	Path string `toml:"path,omitempty"`
}

// LintConfig carries one lint's override: enabled state, severity, and
// arbitrary per-lint options (spec §3 "Lint config").
type LintConfig struct {
	Enabled  *bool          `toml:"enabled,omitempty"`
	Severity string         `toml:"severity,omitempty"`
	Options  map[string]any `toml:"options,omitempty"`
}

// FilesConfig lists glob-pattern excludes/includes shared by the
// project root and overridable per-addon.
type FilesConfig struct {
	Include []string `toml:"include,omitempty"`
	Exclude []string `toml:"exclude,omitempty"`
}

// Config is the parsed project.toml (spec §6 external interface: a
// project.toml at the repository root).
type Config struct {
	Name       string                `toml:"name"`
	Prefix     string                `toml:"prefix"`
	MainPrefix string                `toml:"mainprefix,omitempty"`
	Version    VersionConfig         `toml:"version"`
	Properties map[string]string     `toml:"properties,omitempty"`
	Files      FilesConfig           `toml:"files"`
	Lints      map[string]LintConfig `toml:"lints,omitempty"`
	Hemtt      HemttConfig           `toml:"hemtt"`
}

// HemttConfig holds HEMTT-tool-specific settings; currently only the
// feature toggles that don't belong in the domain model above.
type HemttConfig struct {
	Features []string `toml:"features,omitempty"`
}

// Load reads and parses a project.toml file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("project: reading %s: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("project: parsing %s: %w", path, err)
	}
	if cfg.Prefix == "" {
		return nil, fmt.Errorf("project: %s: prefix is required", path)
	}
	return &cfg, nil
}

// AddonConfig is the parsed per-addon addon.toml overlay (spec §3
// "Addon" / §6).
type AddonConfig struct {
	Preprocess PreprocessConfig  `toml:"preprocess"`
	Binarize   BinarizeConfig    `toml:"binarize"`
	Properties map[string]string `toml:"properties,omitempty"`
	Files      FilesConfig       `toml:"files"`
}

// PreprocessConfig toggles and scopes the preprocessor for an addon.
type PreprocessConfig struct {
	Enabled bool     `toml:"enabled"`
	Exclude []string `toml:"exclude,omitempty"`
}

// BinarizeConfig toggles and scopes the external binarizer for an addon.
type BinarizeConfig struct {
	Enabled *bool    `toml:"enabled,omitempty"`
	Exclude []string `toml:"exclude,omitempty"`
}

// IsEnabled returns whether binarization defaults to on, per the
// reference `BinarizeConfig::enabled` (defaults true when unset).
func (b BinarizeConfig) IsEnabled() bool {
	if b.Enabled == nil {
		return true
	}
	return *b.Enabled
}

// LoadAddonConfig reads and parses an addon.toml file from path. A
// missing file is not an error: addons are not required to carry one,
// and the caller receives the zero-value config (preprocess disabled,
// binarize enabled, no extra properties or excludes) matching the
// reference's field defaults.
func LoadAddonConfig(path string) (*AddonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &AddonConfig{}, nil
		}
		return nil, fmt.Errorf("project: reading %s: %w", path, err)
	}
	var cfg AddonConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("project: parsing %s: %w", path, err)
	}
	return &cfg, nil
}
