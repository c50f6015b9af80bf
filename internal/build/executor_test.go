package build

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// recordingModule appends its own name plus the phase it was called for
// to a shared, mutex-guarded log, so tests can assert on phase order.
type recordingModule struct {
	NoopModule
	name string
	log  *[]string
	mu   *sync.Mutex
}

func (m recordingModule) Name() string { return m.name }

func (m recordingModule) record(phase string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.log = append(*m.log, m.name+":"+phase)
}

func (m recordingModule) Init(ctx *Context) error       { m.record("init"); return nil }
func (m recordingModule) Check(ctx *Context) error      { m.record("check"); return nil }
func (m recordingModule) PreBuild(ctx *Context) error   { m.record("pre_build"); return nil }
func (m recordingModule) PostBuild(ctx *Context) error  { m.record("post_build"); return nil }
func (m recordingModule) PreRelease(ctx *Context) error { m.record("pre_release"); return nil }
func (m recordingModule) PostRelease(ctx *Context) error {
	m.record("post_release")
	return nil
}

func newFixtureProjectWithAddons(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	hemttDir := filepath.Join(root, ".hemtt")
	if err := os.MkdirAll(hemttDir, 0o755); err != nil {
		t.Fatal(err)
	}
	projectToml := "name = \"test\"\nprefix = \"tst\"\n\n[version]\nmajor = 1\nminor = 0\npatch = 0\n"
	if err := os.WriteFile(filepath.Join(hemttDir, "project.toml"), []byte(projectToml), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		addonDir := filepath.Join(root, "addons", name)
		if err := os.MkdirAll(addonDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(addonDir, "script.sqf"), []byte(`hint "hello";`), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestExecutorPhaseOrdering(t *testing.T) {
	root := newFixtureProjectWithAddons(t, "main")
	ctx, err := NewContext(root, "build", PreserveRemove)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	var log []string
	var mu sync.Mutex
	e := NewExecutor(ctx)
	e.AddModule(recordingModule{name: "m1", log: &log, mu: &mu})

	if err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := e.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := e.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := e.Release(true); err != nil {
		t.Fatalf("Release: %v", err)
	}

	want := []string{"m1:init", "m1:check", "m1:pre_build", "m1:post_build", "m1:pre_release", "m1:post_release"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestExecutorBuildPacksEveryAddon(t *testing.T) {
	root := newFixtureProjectWithAddons(t, "alpha", "bravo", "charlie")
	ctx, err := NewContext(root, "build", PreserveRemove)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	e := NewExecutor(ctx)
	e.SetConcurrency(2)
	if err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := e.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	outDir := filepath.Join(ctx.Tmp, "output")
	for _, name := range []string{"alpha", "bravo", "charlie"} {
		path := filepath.Join(outDir, name+".pbo")
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("expected %s to exist: %v", path, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", path)
		}
	}
}

func TestExecutorReleaseArchiveContainsPackedAddons(t *testing.T) {
	root := newFixtureProjectWithAddons(t, "main")
	ctx, err := NewContext(root, "build", PreserveRemove)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	e := NewExecutor(ctx)
	if err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := e.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := e.Release(true); err != nil {
		t.Fatalf("Release: %v", err)
	}

	entries, err := os.ReadDir(ctx.BuildFolder)
	if err != nil {
		t.Fatalf("reading build folder: %v", err)
	}
	var zipPath string
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".zip" {
			zipPath = filepath.Join(ctx.BuildFolder, entry.Name())
		}
	}
	if zipPath == "" {
		t.Fatalf("no .zip archive found in %s (entries: %v)", ctx.BuildFolder, entries)
	}

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	defer zr.Close()

	found := false
	for _, f := range zr.File {
		if f.Name == "@main.pbo" {
			found = true
		}
	}
	if !found {
		t.Errorf("archive does not contain @main.pbo")
	}
}

func TestExecutorBuildWithoutModulesStillPacksAddons(t *testing.T) {
	root := newFixtureProjectWithAddons(t, "solo")
	ctx, err := NewContext(root, "build", PreserveRemove)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	e := NewExecutor(ctx)
	if err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := e.Build(); err != nil {
		t.Fatalf("Build with no modules registered: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ctx.Tmp, "output", "solo.pbo")); err != nil {
		t.Errorf("expected solo.pbo to be packed: %v", err)
	}
}
