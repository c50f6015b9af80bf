// Package build implements the phased, addon-parallel build executor
// (spec §4.9 "build pipeline"): init → check → pre_build/build/post_build
// → pre_release/release/post_release, each phase run over every
// registered Module, with the `build` phase packing every addon's PBO
// concurrently. Grounded on `original_source/bin/src/context.rs`
// (`Context`'s fields/constructor, temp-folder layout, state map) and
// `.../bin/src/executor.rs` (`Executor`'s phase methods and
// `setup_tmp`'s addon-symlink staging), adapted from Rust's
// `Arc`+`state::TypeMap` to a mutex-guarded Go map, and from its
// sequential `for module in &self.modules` build-phase loop to a
// bounded-concurrency `golang.org/x/sync/errgroup` fan-out per addon
// (spec §4.9's "addon owns its files exclusively" invariant is what
// makes this parallel-safe: no two addons write to the same output
// path).
package build

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/brettmayson/hemtt-core/internal/addon"
	"github.com/brettmayson/hemtt-core/internal/project"
	"github.com/brettmayson/hemtt-core/internal/workspace"
)

// PreservePrevious controls whether a prior run's output folder
// (.hemttout/<command>) is wiped before a new run, mirroring the
// reference's `PreservePrevious` enum.
type PreservePrevious int

const (
	PreserveRemove PreservePrevious = iota
	PreserveKeep
)

// State is a small thread-safe key/value store modules use to pass data
// between phases (e.g. a module recording file paths it generated in
// pre_build that the release module needs). This generalizes the
// reference's `state::TypeMap![Send + Sync]` (a type-indexed map) to a
// simpler string-keyed map guarded by a mutex — Go has no equivalent
// type-map library in this pack's dependency set, and a string key is
// enough for the handful of cross-module handoffs spec §4.9 describes.
type State struct {
	mu   sync.Mutex
	data map[string]any
}

// NewState returns an empty State.
func NewState() *State {
	return &State{data: make(map[string]any)}
}

// Get returns the value stored under key, and whether it was present.
func (s *State) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key, overwriting any prior value.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Context carries everything a build run needs: the parsed project
// config, the discovered addon set, filesystem locations, and the
// shared State map (spec §4.9's "a Context value threaded through every
// phase and every addon job").
type Context struct {
	Config *project.Config
	Addons []addon.Addon

	ProjectFolder string
	HemttFolder   string // ProjectFolder/.hemtt
	OutFolder     string // ProjectFolder/.hemttout
	BuildFolder   string // OutFolder/<command>, empty if Folder == ""
	Tmp           string // staging folder torn down and rebuilt per run

	VFS *workspace.VFS

	// Folder is the out-folder subdirectory name for this run ("build",
	// "release", "check", ...), or "" for commands that don't stage
	// output (matching the reference's `Option<&str>` folder param).
	Folder string

	state *State
}

// NewContext builds a Context rooted at projectFolder: it loads
// project.toml, discovers addons, and lays out the .hemtt/.hemttout/tmp
// folders (spec §4.9 "a HEMTT project is a directory with a
// project.toml at .hemtt/project.toml"). It does not create the tmp
// staging area yet — call (*Executor).Init for that, matching the
// reference's split between `Context::new` (cheap, discovery-only) and
// `Executor::init` (expensive, filesystem-mutating).
func NewContext(projectFolder, folder string, preserve PreservePrevious) (*Context, error) {
	hemttFolder := filepath.Join(projectFolder, ".hemtt")
	if _, err := os.Stat(hemttFolder); err != nil {
		return nil, fmt.Errorf("build: %s: project.toml not found (expected at .hemtt/project.toml): %w", projectFolder, err)
	}
	cfg, err := project.Load(filepath.Join(hemttFolder, "project.toml"))
	if err != nil {
		return nil, err
	}

	outFolder := filepath.Join(projectFolder, ".hemttout")
	if err := os.MkdirAll(outFolder, 0o755); err != nil {
		return nil, fmt.Errorf("build: creating %s: %w", outFolder, err)
	}

	var buildFolder string
	if folder != "" {
		buildFolder = filepath.Join(outFolder, folder)
		if preserve == PreserveRemove {
			if err := os.RemoveAll(buildFolder); err != nil {
				return nil, fmt.Errorf("build: clearing %s: %w", buildFolder, err)
			}
		}
		if err := os.MkdirAll(buildFolder, 0o755); err != nil {
			return nil, fmt.Errorf("build: creating %s: %w", buildFolder, err)
		}
	}

	addons, err := addon.Discover(projectFolder)
	if err != nil {
		return nil, err
	}
	for i := range addons {
		if err := addons[i].LoadProjectConfig(); err != nil {
			return nil, err
		}
	}

	vfs := workspace.NewVFS(workspace.Layer{Kind: workspace.LayerSource, Root: projectFolder})
	for i := range addons {
		if err := addons[i].LoadConfig(vfs, projectFolder); err != nil {
			return nil, err
		}
	}

	tmp := filepath.Join(os.TempDir(), "hemtt", sanitizeTmpName(projectFolder))

	return &Context{
		Config:        cfg,
		Addons:        addons,
		ProjectFolder: projectFolder,
		HemttFolder:   hemttFolder,
		OutFolder:     outFolder,
		BuildFolder:   buildFolder,
		Tmp:           tmp,
		Folder:        folder,
		VFS:           vfs,
		state:         NewState(),
	}, nil
}

// State returns the Context's shared cross-module data store.
func (c *Context) State() *State {
	return c.state
}

// Addon returns the addon named name, or nil if there is none.
func (c *Context) Addon(name string) *addon.Addon {
	for i := range c.Addons {
		if c.Addons[i].Name == name {
			return &c.Addons[i]
		}
	}
	return nil
}

func sanitizeTmpName(path string) string {
	out := make([]byte, 0, len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '\\' || c == '/' || c == ':' {
			out = append(out, '_')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
