// Package addon implements the Addon data model and directory-based
// discovery described in spec §3 ("Addon") and §4.9: each addon is an
// independent work unit carrying its location class, folder path, parsed
// config.cpp (if any), and build data (the declared CfgPatches
// requiredVersion; no lint in the tree reads it). Grounded on
// `original_source/bin/src/context.rs` (project-root discovery: the
// addons/optionals/compats layout feeding `Context`'s `all_addons`) and
// `original_source/libs/common/src/project/addon/mod.rs` (the addon-level
// TOML overlay, adapted here as `internal/project.AddonConfig`).
package addon

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brettmayson/hemtt-core/internal/config"
	"github.com/brettmayson/hemtt-core/internal/preprocess"
	"github.com/brettmayson/hemtt-core/internal/project"
	"github.com/brettmayson/hemtt-core/internal/workspace"
)

// Location classes an addon by which top-level folder it was discovered
// under, per spec §3.
type Location int

const (
	LocationAddons Location = iota
	LocationOptionals
	LocationCompats
)

func (l Location) String() string {
	switch l {
	case LocationAddons:
		return "addons"
	case LocationOptionals:
		return "optionals"
	case LocationCompats:
		return "compats"
	default:
		return "unknown"
	}
}

// BuildData records facts pulled out of an addon's config.cpp that other
// components (lints, the release packer) need without reparsing it.
type BuildData struct {
	// RequiredVersion is the CfgPatches-declared requiredVersion (0 if
	// the addon has no config.cpp, or no CfgPatches entry for itself).
	RequiredVersion float32
}

// Addon is one independent unit of build work (spec §3 / §4.9: "an addon
// owns its files exclusively during a build run").
type Addon struct {
	Name       string
	Location   Location
	FolderPath string // absolute path to the addon's directory

	Config    *config.Config // nil if the addon has no config.cpp
	BuildData BuildData

	ProjectConfig *project.AddonConfig
}

// PboName returns the in-project name the packed PBO should carry: the
// addon's folder name, for every location (the location is not part of
// the returned name).
func (a *Addon) PboName() string {
	return a.Name
}

// Discover walks root's addons/, optionals/, and compats/ directories (any
// that exist) and returns one Addon per immediate subdirectory, sorted by
// name within each location, addons before optionals before compats —
// matching the reference's fixed discovery order.
func Discover(root string) ([]Addon, error) {
	var addons []Addon
	for _, loc := range []struct {
		dir string
		kind Location
	}{
		{"addons", LocationAddons},
		{"optionals", LocationOptionals},
		{"compats", LocationCompats},
	} {
		dirPath := filepath.Join(root, loc.dir)
		entries, err := os.ReadDir(dirPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("addon: reading %s: %w", dirPath, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			addons = append(addons, Addon{
				Name:       name,
				Location:   loc.kind,
				FolderPath: filepath.Join(dirPath, name),
			})
		}
	}
	return addons, nil
}

// LoadProjectConfig reads the addon's addon.toml overlay, if present.
func (a *Addon) LoadProjectConfig() error {
	cfg, err := project.LoadAddonConfig(filepath.Join(a.FolderPath, "addon.toml"))
	if err != nil {
		return err
	}
	a.ProjectConfig = cfg
	return nil
}

// LoadConfig preprocesses and parses the addon's config.cpp (if one
// exists), and populates BuildData.RequiredVersion from its CfgPatches
// entry for this addon's own name, per spec §3 "Addon. Build data
// records the declared requiredVersion ... used by lints." vfsRoot is the
// filesystem directory the caller's vfs.Layer{Kind: LayerSource} is
// rooted at, needed to turn the addon's absolute folder path into the
// workspace-relative logical path the VFS resolves against.
func (a *Addon) LoadConfig(vfs *workspace.VFS, vfsRoot string) error {
	configPath := filepath.Join(a.FolderPath, "config.cpp")
	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("addon: stat %s: %w", configPath, err)
	}

	rel, err := filepath.Rel(vfsRoot, configPath)
	if err != nil {
		return fmt.Errorf("addon: %s is not under workspace root %s: %w", configPath, vfsRoot, err)
	}
	logical := filepath.ToSlash(rel)
	proc := preprocess.New(vfs)
	processed, report, err := proc.Run(workspace.New(logical))
	if err != nil {
		return fmt.Errorf("addon: preprocessing %s: %w", configPath, err)
	}
	if report.HasErrors() {
		return fmt.Errorf("addon: %s: %d diagnostic(s) reported", configPath, len(report.Diagnostics()))
	}

	cfg, err := config.Parse(processed.Tokens, report)
	if err != nil {
		return fmt.Errorf("addon: parsing %s: %w", configPath, err)
	}
	a.Config = cfg
	a.BuildData.RequiredVersion = requiredVersionFor(cfg, a.Name)
	return nil
}

// requiredVersionFor finds `class CfgPatches { class <name> { requiredVersion
// = X; }; };` and returns X, or 0 if absent.
func requiredVersionFor(cfg *config.Config, name string) float32 {
	patches := findClass(cfg.Root, "CfgPatches")
	if patches == nil {
		return 0
	}
	self := findClass(patches.Children, name)
	if self == nil {
		return 0
	}
	for _, prop := range self.Children {
		if prop.Kind != config.PropertyEntry || prop.Entry == nil {
			continue
		}
		if strings.EqualFold(prop.Entry.Name, "requiredVersion") && prop.Entry.Kind == config.EntryScalar {
			return prop.Entry.Value.Float
		}
	}
	return 0
}

func findClass(props []config.Property, name string) *config.Class {
	for _, prop := range props {
		if prop.Kind == config.PropertyClass && prop.Class != nil && strings.EqualFold(prop.Class.Name, name) {
			return prop.Class
		}
	}
	return nil
}
