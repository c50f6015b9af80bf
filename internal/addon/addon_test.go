package addon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettmayson/hemtt-core/internal/workspace"
)

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "addons", "main"))
	mustMkdir(t, filepath.Join(root, "addons", "extras"))
	mustMkdir(t, filepath.Join(root, "optionals", "ace_compat"))

	addons, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, addons, 3)

	assert.Equal(t, "extras", addons[0].Name)
	assert.Equal(t, LocationAddons, addons[0].Location)
	assert.Equal(t, "main", addons[1].Name)
	assert.Equal(t, LocationAddons, addons[1].Location)
	assert.Equal(t, "ace_compat", addons[2].Name)
	assert.Equal(t, LocationOptionals, addons[2].Location)
}

func TestDiscoverNoDirectories(t *testing.T) {
	addons, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, addons)
}

func TestLoadConfigExtractsRequiredVersion(t *testing.T) {
	root := t.TempDir()
	addonDir := filepath.Join(root, "addons", "main")
	mustMkdir(t, addonDir)
	mustWrite(t, filepath.Join(addonDir, "config.cpp"), `
class CfgPatches {
	class main {
		units[] = {};
		weapons[] = {};
		requiredVersion = 2.10;
	};
};
`)

	vfs := workspace.NewVFS(workspace.Layer{Kind: workspace.LayerSource, Root: root})
	a := Addon{Name: "main", Location: LocationAddons, FolderPath: addonDir}
	require.NoError(t, a.LoadConfig(vfs, root))

	require.NotNil(t, a.Config)
	assert.InDelta(t, 2.10, a.BuildData.RequiredVersion, 0.001)
}

func TestLoadConfigMissingFileIsNotAnError(t *testing.T) {
	root := t.TempDir()
	addonDir := filepath.Join(root, "addons", "empty")
	mustMkdir(t, addonDir)

	vfs := workspace.NewVFS(workspace.Layer{Kind: workspace.LayerSource, Root: root})
	a := Addon{Name: "empty", Location: LocationAddons, FolderPath: addonDir}
	require.NoError(t, a.LoadConfig(vfs, root))
	assert.Nil(t, a.Config)
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o755))
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
