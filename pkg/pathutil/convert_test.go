package pathutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/brettmayson/hemtt-core/internal/diag"
)

func TestToRelative(t *testing.T) {
	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{
			name:     "simple relative path",
			absPath:  "/home/user/project/addons/main/config.cpp",
			rootDir:  "/home/user/project",
			expected: "addons/main/config.cpp",
		},
		{
			name:     "nested relative path",
			absPath:  "/home/user/project/addons/main/functions/fnc_init.sqf",
			rootDir:  "/home/user/project",
			expected: "addons/main/functions/fnc_init.sqf",
		},
		{
			name:     "root level file",
			absPath:  "/home/user/project/project.toml",
			rootDir:  "/home/user/project",
			expected: "project.toml",
		},
		{
			name:     "same directory",
			absPath:  "/home/user/project",
			rootDir:  "/home/user/project",
			expected: ".",
		},
		{
			name:     "already relative path",
			absPath:  "addons/main/config.cpp",
			rootDir:  "/home/user/project",
			expected: "addons/main/config.cpp", // Should return as-is if already relative
		},
		{
			name:     "path outside root - fallback to absolute",
			absPath:  "/other/location/file.hpp",
			rootDir:  "/home/user/project",
			expected: "/other/location/file.hpp", // Should return absolute if outside root
		},
		{
			name:     "empty root directory",
			absPath:  "/home/user/project/addons/main/config.cpp",
			rootDir:  "",
			expected: "/home/user/project/addons/main/config.cpp", // Fallback to absolute
		},
		{
			name:     "empty absolute path",
			absPath:  "",
			rootDir:  "/home/user/project",
			expected: "", // Empty stays empty
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToRelative(tt.absPath, tt.rootDir)

			// Normalize separators for cross-platform testing
			if runtime.GOOS == "windows" {
				result = filepath.ToSlash(result)
				expected := filepath.ToSlash(tt.expected)
				if result != expected {
					t.Errorf("ToRelative() = %v, want %v", result, expected)
				}
			} else {
				if result != tt.expected {
					t.Errorf("ToRelative() = %v, want %v", result, tt.expected)
				}
			}
		})
	}
}

func TestToRelativeDiagnostics(t *testing.T) {
	rootDir := "/home/user/project"

	input := []*diag.Diagnostic{
		{
			Ident:    "HE001",
			Severity: diag.SeverityError,
			Message:  "undefined macro",
			Labels: []diag.Label{
				{Path: "/home/user/project/addons/main/config.cpp", Start: 10, End: 20, Message: "used here"},
			},
		},
		{
			Ident:    "HE002",
			Severity: diag.SeverityWarning,
			Message:  "unused define",
			Labels: []diag.Label{
				{Path: "/home/user/project/addons/main/script_component.hpp", Start: 0, End: 5, Message: "defined here"},
				{Path: "/other/location/external.hpp", Start: 2, End: 3, Message: "also here"},
			},
		},
	}

	results := ToRelativeDiagnostics(input, rootDir)

	if len(results) != len(input) {
		t.Fatalf("expected %d diagnostics, got %d", len(input), len(results))
	}

	if got := results[0].Labels[0].Path; got != "addons/main/config.cpp" {
		t.Errorf("Labels[0].Path = %v, want addons/main/config.cpp", got)
	}
	if got := results[1].Labels[0].Path; got != "addons/main/script_component.hpp" {
		t.Errorf("Labels[0].Path = %v, want addons/main/script_component.hpp", got)
	}
	if got := results[1].Labels[1].Path; got != "/other/location/external.hpp" {
		t.Errorf("Labels[1].Path = %v, want unchanged absolute path (outside root)", got)
	}

	// originals are untouched
	if input[0].Labels[0].Path != "/home/user/project/addons/main/config.cpp" {
		t.Errorf("original diagnostic was mutated")
	}

	// other fields preserved
	if results[0].Ident != "HE001" || results[0].Severity != diag.SeverityError || results[0].Message != "undefined macro" {
		t.Errorf("non-path fields not preserved: %+v", results[0])
	}
}

func TestToRelativeDiagnosticsEmptySlice(t *testing.T) {
	rootDir := "/home/user/project"

	empty := []*diag.Diagnostic{}
	result := ToRelativeDiagnostics(empty, rootDir)
	if len(result) != 0 {
		t.Errorf("expected empty slice, got %d elements", len(result))
	}
}
