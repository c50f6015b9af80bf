package paa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHeaders() *Headers {
	return &Headers{
		Textures: []TextureHeader{
			{
				AverageColor:     [4]byte{10, 20, 30, 255},
				MaxColor:         [4]byte{200, 210, 220, 255},
				HasMaxCtagg:      true,
				IsAlpha:          true,
				IsTransparent:    false,
				IsAlphaNonOpaque: true,
				PaXFormat:        PaXTypeDXT5,
				IsPaa:            true,
				PaaFile:          "data\\texture_co.paa",
				PaXSuffixType:    SuffixTypeCode("texture_co"),
				Mipmaps: []MipMap{
					{Width: 256, Height: 256, PaXFormat: 5, DataOffset: 64, Compressed: true},
					{Width: 128, Height: 128, PaXFormat: 5, DataOffset: 1024, Compressed: true},
					{Width: 1, Height: 1, PaXFormat: 5, DataOffset: 2048, Compressed: false},
				},
				SizeOfPaxFile: 4096,
			},
		},
	}
}

func TestHeadersRoundTrip(t *testing.T) {
	h := sampleHeaders()

	data, err := WriteHeaders(h)
	require.NoError(t, err)

	got, err := ReadHeaders(data)
	require.NoError(t, err)

	require.Len(t, got.Textures, 1)
	tex := got.Textures[0]
	want := h.Textures[0]

	assert.Equal(t, want.AverageColor, tex.AverageColor)
	assert.Equal(t, want.MaxColor, tex.MaxColor)
	assert.Equal(t, want.HasMaxCtagg, tex.HasMaxCtagg)
	assert.Equal(t, want.IsAlpha, tex.IsAlpha)
	assert.Equal(t, want.IsTransparent, tex.IsTransparent)
	assert.Equal(t, want.IsAlphaNonOpaque, tex.IsAlphaNonOpaque)
	assert.Equal(t, want.PaXFormat, tex.PaXFormat)
	assert.Equal(t, want.IsPaa, tex.IsPaa)
	assert.Equal(t, want.PaaFile, tex.PaaFile)
	assert.Equal(t, want.PaXSuffixType, tex.PaXSuffixType)
	assert.Equal(t, want.Mipmaps, tex.Mipmaps)
	assert.Equal(t, want.SizeOfPaxFile, tex.SizeOfPaxFile)
}

func TestReadHeadersRejectsBadMagic(t *testing.T) {
	_, err := ReadHeaders([]byte("XXXX"))
	assert.Error(t, err)
}

func TestReadHeadersRejectsTruncated(t *testing.T) {
	h := sampleHeaders()
	data, err := WriteHeaders(h)
	require.NoError(t, err)

	_, err = ReadHeaders(data[:len(data)-10])
	assert.Error(t, err)
}

func TestReadHeadersRejectsMipmapCountMismatch(t *testing.T) {
	h := sampleHeaders()
	data, err := WriteHeaders(h)
	require.NoError(t, err)

	// Corrupt the second mipmap-count field (written right after the
	// null-terminated paa_file string and the 4-byte suffix type) so
	// it no longer matches the first.
	idx := -1
	needle := []byte(h.Textures[0].PaaFile + "\x00")
	for i := 0; i+len(needle) <= len(data); i++ {
		match := true
		for j, b := range needle {
			if data[i+j] != b {
				match = false
				break
			}
		}
		if match {
			idx = i + len(needle)
			break
		}
	}
	require.NotEqual(t, -1, idx)
	// idx now points at pax_suffix_type (4 bytes); the copy count follows.
	copyIdx := idx + 4
	data[copyIdx] ^= 0xFF

	_, err = ReadHeaders(data)
	assert.Error(t, err)
}

func TestSuffixTypeCode(t *testing.T) {
	cases := []struct {
		stem string
		want uint32
	}{
		{"tex_ti_ca", 12},
		{"tex_nohq", 3},
		{"tex_sky", 1},
		{"tex_lco", 1},
		{"tex_detail", 2},
		{"tex_cdt", 2},
		{"tex_mc", 7},
		{"tex_as", 8},
		{"tex_sm", 9},
		{"tex_smdi", 9},
		{"tex_dtsmdi", 10},
		{"tex_mask", 11},
		{"tex_co", 0},
		{"notags", 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SuffixTypeCode(c.stem), "stem %q", c.stem)
	}
}

func TestMipmapCompressionRoundTrip(t *testing.T) {
	raw := make([]byte, 4096)
	for i := range raw {
		raw[i] = byte(i % 7)
	}

	compressed := CompressMipmap(raw)
	assert.Less(t, len(compressed), len(raw))

	got, err := DecompressMipmap(compressed, len(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestPaXTypeIsLZOCompressed(t *testing.T) {
	assert.True(t, PaXTypeDXT1.IsLZOCompressed())
	assert.True(t, PaXTypeDXT5.IsLZOCompressed())
	assert.False(t, PaXTypeARGB8888.IsLZOCompressed())
}
