package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProjectRootResolvesRelativePaths(t *testing.T) {
	abs, err := projectRootFromFlag(".")
	if err != nil {
		t.Fatalf("projectRootFromFlag: %v", err)
	}
	if !filepath.IsAbs(abs) {
		t.Errorf("projectRootFromFlag(\".\") = %q, want an absolute path", abs)
	}
}

func TestFormatFileRewritesToCanonicalText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.cpp")
	src := "class CfgPatches{class main{units[]={\"a\",\"b\"};};};"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	changed, err := formatFile(path, false)
	if err != nil {
		t.Fatalf("formatFile: %v", err)
	}
	if !changed {
		t.Fatal("expected formatFile to report a change")
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "class CfgPatches\n{\n    class main\n    {\n        units[] = {\"a\", \"b\"};\n    };\n};\n"
	if string(out) != want {
		t.Errorf("formatted content = %q, want %q", string(out), want)
	}

	changed, err = formatFile(path, false)
	if err != nil {
		t.Fatalf("formatFile (second pass): %v", err)
	}
	if changed {
		t.Error("expected second formatFile call to be a no-op on already-canonical text")
	}
}

func TestFormatFileCheckOnlyDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.cpp")
	src := "class Foo{x=1;};"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	changed, err := formatFile(path, true)
	if err != nil {
		t.Fatalf("formatFile: %v", err)
	}
	if !changed {
		t.Fatal("expected formatFile to report a pending change")
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != src {
		t.Errorf("check-only formatFile modified the file: got %q, want unchanged %q", string(out), src)
	}
}

func TestFormatFileMissingFileIsNotAnError(t *testing.T) {
	changed, err := formatFile(filepath.Join(t.TempDir(), "missing.cpp"), false)
	if err != nil {
		t.Fatalf("formatFile on missing file: %v", err)
	}
	if changed {
		t.Error("expected no change reported for a missing file")
	}
}
