package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettmayson/hemtt-core/internal/config"
	"github.com/brettmayson/hemtt-core/internal/diag"
	"github.com/brettmayson/hemtt-core/internal/preprocess"
	"github.com/brettmayson/hemtt-core/internal/workspace"
)

func parseSource(t *testing.T, src string) (*config.Config, *diag.Report) {
	t.Helper()
	vfs := workspace.NewVFS(workspace.Layer{
		Kind:  workspace.LayerMemory,
		Files: map[string][]byte{"main.hpp": []byte(src)},
	})
	proc := preprocess.New(vfs)
	processed, report, err := proc.Run(workspace.New("main.hpp"))
	require.NoError(t, err)
	require.False(t, report.HasErrors(), "preprocess errors: %+v", report.Diagnostics())
	cfg, err := config.Parse(processed.Tokens, report)
	require.NoError(t, err)
	return cfg, report
}

func TestParseScalarAndArrayEntries(t *testing.T) {
	cfg, _ := parseSource(t, `
alpha = "Alpha";
version = 10;
scale = 1.5;
points[] = {1, 2, 3};
extra[] += {7, 8, 9};
`)
	require.Len(t, cfg.Root, 5)

	assert.Equal(t, "alpha", cfg.Root[0].Name)
	assert.Equal(t, config.KindString, cfg.Root[0].Entry.Value.Kind)
	assert.Equal(t, "Alpha", cfg.Root[0].Entry.Value.Str)

	assert.Equal(t, config.KindInt32, cfg.Root[1].Entry.Value.Kind)
	assert.EqualValues(t, 10, cfg.Root[1].Entry.Value.Int)

	assert.Equal(t, config.KindFloat32, cfg.Root[2].Entry.Value.Kind)
	assert.InDelta(t, 1.5, cfg.Root[2].Entry.Value.Float, 0.0001)

	assert.Equal(t, config.EntryArray, cfg.Root[3].Entry.Kind)
	require.Len(t, cfg.Root[3].Entry.Array.Elements, 3)
	assert.EqualValues(t, 2, cfg.Root[3].Entry.Array.Elements[1].Value.Int)

	assert.Equal(t, config.EntryArrayExpand, cfg.Root[4].Entry.Kind)
}

func TestParseNestedClassWithParent(t *testing.T) {
	cfg, _ := parseSource(t, `
class HEMTT: CfgPatches {
	alpha = "Alpha";
	version = 10;
};
`)
	require.Len(t, cfg.Root, 1)
	cls := cfg.Root[0].Class
	assert.Equal(t, "HEMTT", cls.Name)
	assert.Equal(t, "CfgPatches", cls.Parent)
	assert.Equal(t, config.ClassDefined, cls.Kind)
	require.Len(t, cls.Children, 2)
}

func TestParseExternalClass(t *testing.T) {
	cfg, _ := parseSource(t, `class CfgPatches;`)
	require.Len(t, cfg.Root, 1)
	assert.Equal(t, config.ClassExternal, cfg.Root[0].Class.Kind)
	assert.Empty(t, cfg.Root[0].Class.Children)
}

func TestParseDelete(t *testing.T) {
	cfg, _ := parseSource(t, `delete CfgSounds;`)
	require.Len(t, cfg.Root, 1)
	assert.Equal(t, config.ClassDeleted, cfg.Root[0].Class.Kind)
	assert.Equal(t, "CfgSounds", cfg.Root[0].Class.Name)
}

func TestParseNestedArray(t *testing.T) {
	cfg, _ := parseSource(t, `points[] = {{1,2,3},{4,5,6}};`)
	arr := cfg.Root[0].Entry.Array
	require.Len(t, arr.Elements, 2)
	require.NotNil(t, arr.Elements[0].Nested)
	assert.Len(t, arr.Elements[0].Nested.Elements, 3)
}

func TestDuplicateSiblingWarns(t *testing.T) {
	_, report := parseSource(t, `
value = 1;
value = 2;
`)
	found := false
	for _, d := range report.Diagnostics() {
		if d.Ident == "duplicate-property" {
			found = true
		}
	}
	assert.True(t, found, "expected a duplicate-property diagnostic")
}
