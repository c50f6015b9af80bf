// Package pathutil provides utilities for converting between absolute and relative paths.
//
// Architecture Pattern:
// HEMTT resolves workspace paths absolutely internally (via internal/workspace) for
// consistency and to avoid ambiguity. However, user-facing output — diagnostics,
// build logs, PBO manifests — should use paths relative to the project root for
// readability and portability. This package is the conversion layer between
// internal (absolute) and external (relative) representations.
package pathutil

import (
	"path/filepath"
	"strings"

	"github.com/brettmayson/hemtt-core/internal/diag"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/addons/main/config.cpp", "/home/user/project") → "addons/main/config.cpp"
//   - ToRelative("/other/location/file.hpp", "/home/user/project") → "/other/location/file.hpp" (outside root)
//   - ToRelative("addons/main/config.cpp", "/home/user/project") → "addons/main/config.cpp" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}

	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		// Conversion failed (e.g., different drives on Windows) - return absolute
		return absPath
	}

	// If the relative path starts with ".." it means the file is outside the root.
	// In this case, return the absolute path as it's clearer.
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}

	return relPath
}

// ToRelativeDiagnostics converts the label paths of a diagnostic slice from
// absolute to relative, for display in CLI output and CI annotations.
// Creates new Diagnostic/Label values without modifying the originals.
func ToRelativeDiagnostics(diags []*diag.Diagnostic, rootDir string) []*diag.Diagnostic {
	if len(diags) == 0 {
		return diags
	}

	converted := make([]*diag.Diagnostic, len(diags))
	for i, d := range diags {
		cp := *d
		if len(d.Labels) > 0 {
			cp.Labels = make([]diag.Label, len(d.Labels))
			for j, l := range d.Labels {
				l.Path = ToRelative(l.Path, rootDir)
				cp.Labels[j] = l
			}
		}
		converted[i] = &cp
	}
	return converted
}
