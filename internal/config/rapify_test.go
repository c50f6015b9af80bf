package config_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettmayson/hemtt-core/internal/config"
)

// TestRapifyScenarioOne follows the concrete scenario in the project's
// testable-properties note, with the source writing the macro's expansion
// `"Hi"` directly: `class Root { greeting = "Hi"; };` rapifies to a header
// of magic + always-0 + always-8, and the parsed class holds one string
// entry named "greeting" with value "Hi".
func TestRapifyScenarioOne(t *testing.T) {
	cfg, _ := parseSource(t, `
class Root {
	greeting = "Hi";
};
`)
	data, err := config.Rapify(cfg)
	require.NoError(t, err)

	require.True(t, len(data) >= 12)
	assert.Equal(t, []byte("\x00raP"), data[0:4])
	assert.Equal(t, []byte{0, 0, 0, 0}, data[4:8])
	assert.Equal(t, []byte{8, 0, 0, 0}, data[8:12])

	root := cfg.Root[0].Class
	require.Equal(t, config.ClassDefined, root.Kind)
	require.Len(t, root.Children, 1)
	greeting := root.Children[0]
	assert.Equal(t, "greeting", greeting.Name)
	assert.Equal(t, config.KindString, greeting.Entry.Value.Kind)
	assert.Equal(t, "Hi", greeting.Entry.Value.Str)
}

func TestRapifyExternalClassHasNoOffset(t *testing.T) {
	cfg, _ := parseSource(t, `
class Root {
	class Outer;
};
`)
	data, err := config.Rapify(cfg)
	require.NoError(t, err)

	outer := cfg.Root[0].Class.Children[0]
	require.Equal(t, config.ClassExternal, outer.Class.Kind)

	idx := indexOf(data, []byte("Outer\x00"))
	require.GreaterOrEqual(t, idx, 0)
	// the byte immediately before the name is the external tag (3), and
	// no 4-byte offset pointer follows the name: Outer is the last record
	// of the last class body, so the enum offset in the header points
	// directly past its terminator.
	assert.Equal(t, byte(3), data[idx-1])
	assert.EqualValues(t, idx+len("Outer\x00"), binary.LittleEndian.Uint32(data[12:16]))
}

func TestRapifyRoundTrip(t *testing.T) {
	cfg, _ := parseSource(t, `
class Root {
	class Child: Base {
		name = "child";
		count = 3;
		ratio = 2.5;
		items[] = {1, 2, 3};
	};
	sibling = "value";
};
`)
	data, err := config.Rapify(cfg)
	require.NoError(t, err)
	assert.True(t, len(data) > 16)

	parsed, err := config.Derapify(data)
	require.NoError(t, err)
	require.Len(t, parsed.Root, 2)

	child := parsed.Root[0].Class
	assert.Equal(t, "Child", child.Name)
	assert.Equal(t, "Base", child.Parent)
	require.Len(t, child.Children, 4)
	assert.Equal(t, "child", child.Children[0].Entry.Value.Str)
	assert.EqualValues(t, 3, child.Children[1].Entry.Value.Int)
	assert.InDelta(t, 2.5, child.Children[2].Entry.Value.Float, 0.0001)
	require.Len(t, child.Children[3].Entry.Array.Elements, 3)

	assert.Equal(t, "value", parsed.Root[1].Entry.Value.Str)
}

func indexOf(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
