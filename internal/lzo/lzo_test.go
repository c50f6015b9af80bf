package lzo

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRoundTripRepeatedByte covers the concrete scenario from spec §8:
// compressing "AAAAAAAAAAAAAAAAAAAAAA" (22 bytes) and decompressing it
// yields the original input.
func TestRoundTripRepeatedByte(t *testing.T) {
	src := []byte(strings.Repeat("A", 22))

	compressed := Compress(src)
	got, err := Decompress(compressed, len(src))
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

// TestRoundTripLongRepeatedRun exercises the dictionary-match path (the
// 22-byte case above is too short for the hash search window to ever
// fire) with a run long enough to produce real M2/M3 back-references.
func TestRoundTripLongRepeatedRun(t *testing.T) {
	src := bytes.Repeat([]byte("AB"), 200)

	compressed := Compress(src)
	assert.Less(t, len(compressed), len(src), "a 400-byte repeating pattern should compress")

	got, err := Decompress(compressed, len(src))
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

// TestRoundTripMixedContent exercises literal runs that fold into a
// preceding match's low bits (1-3 byte gaps) as well as longer literal
// runs and matches found at varying offsets.
func TestRoundTripMixedContent(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 50; i++ {
		buf.WriteString("the quick brown fox jumps over the lazy dog ")
		buf.WriteByte(byte('a' + i%5))
	}
	src := buf.Bytes()

	compressed := Compress(src)
	got, err := Decompress(compressed, len(src))
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

// TestRoundTripEmpty covers the degenerate zero-length input.
func TestRoundTripEmpty(t *testing.T) {
	compressed := Compress(nil)
	got, err := Decompress(compressed, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestRoundTripTiny covers inputs too small to ever reach the dictionary
// search loop (under the 21-byte minimum window).
func TestRoundTripTiny(t *testing.T) {
	for _, s := range []string{"a", "ab", "abc", "abcd", "hemtt"} {
		src := []byte(s)
		compressed := Compress(src)
		got, err := Decompress(compressed, len(src))
		require.NoError(t, err, "input %q", s)
		assert.Equal(t, src, got, "input %q", s)
	}
}

// TestDecompressTruncatedInput covers the concrete scenario from spec §8:
// decompressing a truncated compressed buffer returns ErrInputOverrun (-4).
func TestDecompressTruncatedInput(t *testing.T) {
	src := []byte(strings.Repeat("A", 22))
	compressed := Compress(src)

	// Drop the EOF marker and some of the literal payload.
	truncated := compressed[:len(compressed)-5]

	_, err := Decompress(truncated, len(src))
	require.Error(t, err)
	var code ErrCode
	require.ErrorAs(t, err, &code)
	assert.Equal(t, ErrCode(ErrInputOverrun), code)
}

// TestDecompressEmptyInput covers input too short to even hold the
// minimum 3-byte EOF marker.
func TestDecompressEmptyInput(t *testing.T) {
	_, err := Decompress([]byte{0x00, 0x00}, 0)
	require.Error(t, err)
	assert.Equal(t, ErrCode(ErrInputOverrun), err)
}

func TestWorstCompressedSize(t *testing.T) {
	assert.Equal(t, 67, WorstCompressedSize(0))
	assert.Equal(t, 1024+1024/16+64+3, WorstCompressedSize(1024))
}
