package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProjectConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "project.toml", `
name = "My Mod"
prefix = "mymod"
mainprefix = "z"

[version]
major = 1
minor = 2
patch = 3

[properties]
author = "someone"

[files]
exclude = ["*.psd"]

[lints.unused_private]
enabled = false
severity = "warning"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "My Mod", cfg.Name)
	assert.Equal(t, "mymod", cfg.Prefix)
	assert.Equal(t, "z", cfg.MainPrefix)
	assert.Equal(t, 1, cfg.Version.Major)
	assert.Equal(t, 2, cfg.Version.Minor)
	assert.Equal(t, 3, cfg.Version.Patch)
	assert.Equal(t, "someone", cfg.Properties["author"])
	assert.Equal(t, []string{"*.psd"}, cfg.Files.Exclude)
	require.Contains(t, cfg.Lints, "unused_private")
	assert.False(t, *cfg.Lints["unused_private"].Enabled)
	assert.Equal(t, "warning", cfg.Lints["unused_private"].Severity)
}

func TestLoadProjectConfigRequiresPrefix(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "project.toml", `name = "My Mod"`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadAddonConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "addon.toml", `
[preprocess]
enabled = true
exclude = ["*.hpp"]

[binarize]
enabled = false

[properties]
version = "2.0"
`)

	cfg, err := LoadAddonConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Preprocess.Enabled)
	assert.Equal(t, []string{"*.hpp"}, cfg.Preprocess.Exclude)
	assert.False(t, cfg.Binarize.IsEnabled())
	assert.Equal(t, "2.0", cfg.Properties["version"])
}

func TestLoadAddonConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadAddonConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.False(t, cfg.Preprocess.Enabled)
	assert.True(t, cfg.Binarize.IsEnabled())
}
