// Package workspace implements the layered virtual file system described in
// spec §3 ("Workspace path"): an ordered stack of Source/Include/Build/
// Memory layers, resolved in priority order, plus the Processed source
// representation the preprocessor produces.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// LayerKind tags the four layer types named in the spec.
type LayerKind int

const (
	LayerSource LayerKind = iota
	LayerInclude
	LayerBuild
	LayerMemory
)

func (k LayerKind) String() string {
	switch k {
	case LayerSource:
		return "source"
	case LayerInclude:
		return "include"
	case LayerBuild:
		return "build"
	case LayerMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// Layer is one entry in the VFS stack. A Layer backed by a real directory
// reads through Root via os.DirFS; a Memory layer serves from an in-process
// map (used by tests and by macro-generated "files").
type Layer struct {
	Kind  LayerKind
	Root  string
	Files map[string][]byte // only used when Kind == LayerMemory
}

// CaseMismatch records that a case-insensitive lookup succeeded only
// because the filesystem folds case, per §4.1's include-resolution warning.
type CaseMismatch struct {
	Requested string
	Actual    string
}

// Path is an abstract, immutable handle into the workspace. Once created it
// never changes; two Paths may alias the same logical file if they resolve
// through different layers, which is why Path stores the logical name, not
// a resolved filesystem path — that only comes from Locate.
type Path struct {
	logical string // forward-slash-normalized, workspace-relative name
}

// New creates a Path from a logical, slash-normalized name.
func New(logical string) Path {
	return Path{logical: filepath.ToSlash(logical)}
}

// String returns the logical path.
func (p Path) String() string { return p.logical }

// VFS is an ordered set of layers, tried in priority order on every lookup.
type VFS struct {
	layers []Layer

	mu        sync.Mutex
	fileCache map[string][]byte // process-wide, write-once-read-many (§5 Shared-resource policy)
}

// NewVFS constructs a VFS with the given layers in priority order (first
// layer wins).
func NewVFS(layers ...Layer) *VFS {
	return &VFS{layers: layers, fileCache: make(map[string][]byte)}
}

// Located is the result of resolving a Path against the VFS.
type Located struct {
	Path        Path
	Layer       LayerKind
	ResolvedFS  string // absolute or layer-local filesystem path, empty for Memory
	CaseIssue   *CaseMismatch
}

// Locate resolves a Path against the VFS's layers in priority order. It
// first tries an exact (case-sensitive) match in every layer, then — only
// if nothing matched — retries case-insensitively, recording a
// CaseMismatch on success (§4.1 include-case-mismatch warning).
func (v *VFS) Locate(p Path) (*Located, error) {
	for _, layer := range v.layers {
		if loc := v.tryLayer(layer, p.logical, false); loc != nil {
			return loc, nil
		}
	}
	for _, layer := range v.layers {
		if loc := v.tryLayer(layer, p.logical, true); loc != nil {
			return loc, nil
		}
	}
	return nil, fmt.Errorf("workspace: %q not found in any layer", p.logical)
}

func (v *VFS) tryLayer(layer Layer, logical string, foldCase bool) *Located {
	if layer.Kind == LayerMemory {
		if !foldCase {
			if _, ok := layer.Files[logical]; ok {
				return &Located{Path: New(logical), Layer: layer.Kind}
			}
			return nil
		}
		for name := range layer.Files {
			if strings.EqualFold(name, logical) {
				return &Located{
					Path:      New(logical),
					Layer:     layer.Kind,
					CaseIssue: &CaseMismatch{Requested: logical, Actual: name},
				}
			}
		}
		return nil
	}

	full := filepath.Join(layer.Root, filepath.FromSlash(logical))
	if !foldCase {
		if st, err := os.Stat(full); err == nil && !st.IsDir() {
			return &Located{Path: New(logical), Layer: layer.Kind, ResolvedFS: full}
		}
		return nil
	}

	dir := filepath.Dir(full)
	want := filepath.Base(full)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name(), want) && !e.IsDir() {
			actual := filepath.Join(dir, e.Name())
			return &Located{
				Path:       New(logical),
				Layer:      layer.Kind,
				ResolvedFS: actual,
				CaseIssue:  &CaseMismatch{Requested: want, Actual: e.Name()},
			}
		}
	}
	return nil
}

// Read returns the byte contents of a resolved location, consulting and
// populating the process-wide file cache keyed by an xxhash of the
// resolved path (cheap, collision-tolerant key — the cache is only an
// optimization, a collision would just force a redundant read next time
// were it not that we key by path text, not content, so collisions do not
// occur here in practice).
func (v *VFS) Read(loc *Located) ([]byte, error) {
	key := cacheKey(loc)

	v.mu.Lock()
	if data, ok := v.fileCache[key]; ok {
		v.mu.Unlock()
		return data, nil
	}
	v.mu.Unlock()

	var data []byte
	var err error
	if loc.Layer == LayerMemory {
		// Memory-layer content comes from the layer's Files map;
		// re-locating here keeps Read uniform across layer kinds.
		data, err = v.readMemory(loc.Path.logical)
	} else {
		data, err = os.ReadFile(loc.ResolvedFS)
	}
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.fileCache[key] = data
	v.mu.Unlock()
	return data, nil
}

func (v *VFS) readMemory(logical string) ([]byte, error) {
	for _, layer := range v.layers {
		if layer.Kind != LayerMemory {
			continue
		}
		if data, ok := layer.Files[logical]; ok {
			return data, nil
		}
	}
	return nil, fmt.Errorf("workspace: memory file %q not found", logical)
}

func cacheKey(loc *Located) string {
	h := xxhash.New()
	_, _ = h.Write([]byte(loc.Layer.String()))
	_, _ = h.Write([]byte(loc.ResolvedFS))
	_, _ = h.Write([]byte(loc.Path.logical))
	return fmt.Sprintf("%x", h.Sum64())
}

// WalkSource enumerates every regular file under the Source layer rooted at
// `sub` (workspace-relative). Nothing in the tree calls it; the PBO packer
// and the build executor walk their directories themselves.
func (v *VFS) WalkSource(sub string) ([]string, error) {
	var files []string
	for _, layer := range v.layers {
		if layer.Kind != LayerSource {
			continue
		}
		root := filepath.Join(layer.Root, filepath.FromSlash(sub))
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(layer.Root, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
