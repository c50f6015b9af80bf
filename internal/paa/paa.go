// Package paa implements the PAA texture header codec (spec §4.8): the
// "0DHT" header block that precedes every Arma texture's mipmap chain,
// and the per-mipmap data framing (including the LZO1X-1 compression
// `internal/lzo` backs for DXT1/DXT5 mipmaps). Grounded on
// _examples/original_source/libs/paa/src/headers/mod.rs, translated from
// its byteorder/Read+Seek style into the stdlib encoding/binary +
// explicit-cursor style internal/config already uses for the rapified
// format, so the two binary codecs in this tree read the same way.
package paa

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/brettmayson/hemtt-core/internal/lzo"
)

// PaXType identifies a mipmap's pixel encoding.
type PaXType uint32

const (
	PaXTypeDXT1       PaXType = 0xFF01
	PaXTypeDXT2       PaXType = 0xFF02
	PaXTypeDXT3       PaXType = 0xFF03
	PaXTypeDXT4       PaXType = 0xFF04
	PaXTypeDXT5       PaXType = 0xFF05
	PaXTypeARGB4444   PaXType = 0x4444
	PaXTypeARGB1555   PaXType = 0x1555
	PaXTypeARGB8888   PaXType = 0x8888
	PaXTypeGrayAlpha  PaXType = 0x8080
)

// IsLZOCompressed reports whether mipmaps of this format are stored
// LZO1X-1-compressed (signaled per-mipmap by the top bit of its width,
// see MipMap.Compressed).
func (t PaXType) IsLZOCompressed() bool {
	switch t {
	case PaXTypeDXT1, PaXTypeDXT2, PaXTypeDXT3, PaXTypeDXT4, PaXTypeDXT5:
		return true
	default:
		return false
	}
}

// Headers is the "0DHT" block at the start of a PAA file: a magic,
// version, and a list of TextureHeaders (in practice always exactly one
// — PAA files are single-texture — but the format allows more).
type Headers struct {
	Textures []TextureHeader
}

// TextureHeader is one TexBody record (spec §4.8).
type TextureHeader struct {
	AverageColor      [4]byte
	MaxColor          [4]byte
	HasMaxCtagg       bool
	IsAlpha           bool
	IsTransparent     bool
	IsAlphaNonOpaque  bool
	PaXFormat         PaXType
	IsPaa             bool
	PaaFile           string
	PaXSuffixType     uint32
	Mipmaps           []MipMap
	SizeOfPaxFile     uint32
}

// MipMap is one MipMap record (spec §4.8). Width has its top bit (0x8000)
// masked out of Width/Height here; use Compressed to test it.
type MipMap struct {
	Width      uint16
	Height     uint16
	PaXFormat  uint8
	DataOffset uint32
	Compressed bool
}

// ReadHeaders parses the "0DHT" block from the start of a PAA file.
func ReadHeaders(data []byte) (*Headers, error) {
	r := &cursor{data: data}
	magic := r.bytes(4)
	if r.err != nil {
		return nil, r.err
	}
	if string(magic) != "0DHT" {
		return nil, fmt.Errorf("paa: invalid header magic %q", magic)
	}
	version := r.u32()
	if version != 1 {
		return nil, fmt.Errorf("paa: unsupported header version %d", version)
	}
	n := r.u32()
	textures := make([]TextureHeader, 0, n)
	for i := uint32(0); i < n; i++ {
		tex, err := readTextureHeader(r)
		if err != nil {
			return nil, err
		}
		textures = append(textures, tex)
	}
	if r.err != nil {
		return nil, r.err
	}
	return &Headers{Textures: textures}, nil
}

// WriteHeaders serializes the "0DHT" block.
func WriteHeaders(h *Headers) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("0DHT")
	writeU32(&buf, 1)
	writeU32(&buf, uint32(len(h.Textures)))
	for i := range h.Textures {
		if err := writeTextureHeader(&buf, &h.Textures[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func readTextureHeader(r *cursor) (TextureHeader, error) {
	var t TextureHeader
	_ = r.u32() // nColorPallets, always 1
	_ = r.u32() // Pallet_ptr, always 0
	_ = r.f32()
	_ = r.f32()
	_ = r.f32()
	_ = r.f32()
	copy(t.AverageColor[:], r.bytes(4))
	copy(t.MaxColor[:], r.bytes(4))
	_ = r.u32() // clampflags
	_ = r.u32() // transparentColor
	t.HasMaxCtagg = r.u8() != 0
	t.IsAlpha = r.u8() != 0
	t.IsTransparent = r.u8() != 0
	t.IsAlphaNonOpaque = r.u8() != 0
	nMipmaps := r.u32()
	t.PaXFormat = PaXType(r.u32())
	_ = r.u8() // littleEndian, always 1
	t.IsPaa = r.u8() != 0
	t.PaaFile = r.cstring()
	t.PaXSuffixType = r.u32()
	nMipmapsCopy := r.u32()
	if r.err != nil {
		return t, r.err
	}
	if nMipmaps != nMipmapsCopy {
		return t, fmt.Errorf("paa: nMipmaps (%d) != nMipmapsCopy (%d)", nMipmaps, nMipmapsCopy)
	}
	t.Mipmaps = make([]MipMap, 0, nMipmaps)
	for i := uint32(0); i < nMipmaps; i++ {
		width := r.u16()
		mm := MipMap{
			Compressed: width&0x8000 != 0,
			Width:      width &^ 0x8000,
			Height:     r.u16(),
		}
		_ = r.u16() // always 0
		mm.PaXFormat = r.u8()
		_ = r.u8() // always 3
		mm.DataOffset = r.u32()
		t.Mipmaps = append(t.Mipmaps, mm)
	}
	t.SizeOfPaxFile = r.u32()
	return t, r.err
}

func writeTextureHeader(buf *bytes.Buffer, t *TextureHeader) error {
	writeU32(buf, 1) // nColorPallets
	writeU32(buf, 0) // Pallet_ptr
	for _, c := range []byte{t.AverageColor[2], t.AverageColor[1], t.AverageColor[0], t.AverageColor[3]} {
		writeF32(buf, float32(c)/255.0)
	}
	buf.Write(t.AverageColor[:])
	buf.Write(t.MaxColor[:])
	writeU32(buf, 0)          // clampflags
	writeU32(buf, 0xFFFFFFFF) // transparentColor
	buf.WriteByte(boolByte(t.HasMaxCtagg))
	buf.WriteByte(boolByte(t.IsAlpha))
	buf.WriteByte(boolByte(t.IsTransparent))
	buf.WriteByte(boolByte(t.IsAlphaNonOpaque))
	if uint64(len(t.Mipmaps)) > math.MaxUint32 {
		return fmt.Errorf("paa: too many mipmaps")
	}
	writeU32(buf, uint32(len(t.Mipmaps)))
	writeU32(buf, uint32(t.PaXFormat))
	buf.WriteByte(1) // littleEndian
	buf.WriteByte(boolByte(t.IsPaa))
	buf.WriteString(t.PaaFile)
	buf.WriteByte(0)
	writeU32(buf, t.PaXSuffixType)
	writeU32(buf, uint32(len(t.Mipmaps))) // nMipmapsCopy
	for _, mm := range t.Mipmaps {
		width := mm.Width
		if mm.Compressed {
			width |= 0x8000
		}
		writeU16(buf, width)
		writeU16(buf, mm.Height)
		writeU16(buf, 0) // always 0
		buf.WriteByte(mm.PaXFormat)
		buf.WriteByte(3) // always 3
		writeU32(buf, mm.DataOffset)
	}
	writeU32(buf, t.SizeOfPaxFile)
	return nil
}

// SuffixTypeCode derives the pax_suffix_type code from a texture file
// stem's trailing "_xyz" suffix, per the table in spec §4.8.
func SuffixTypeCode(stem string) uint32 {
	if strings.HasSuffix(stem, "_ti_ca") {
		return 12
	}
	idx := strings.LastIndexByte(stem, '_')
	if idx < 0 {
		return 0
	}
	suffix := stem[idx+1:]
	if strings.HasPrefix(suffix, "n") {
		return 3
	}
	switch suffix {
	case "sky", "lco":
		return 1
	case "detail", "cdt", "dt", "mco":
		return 2
	case "mc":
		return 7
	case "as":
		return 8
	case "sm", "smdi":
		return 9
	case "dtsmdi":
		return 10
	case "mask":
		return 11
	default:
		return 0
	}
}

// CompressMipmap LZO1X-1-compresses a mipmap's raw pixel block. The
// caller is responsible for setting MipMap.Compressed and DataOffset.
func CompressMipmap(raw []byte) []byte {
	return lzo.Compress(raw)
}

// DecompressMipmap reverses CompressMipmap, given the mipmap's original
// (uncompressed) byte length.
func DecompressMipmap(compressed []byte, rawLen int) ([]byte, error) {
	return lzo.Decompress(compressed, rawLen)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// cursor is a minimal bounds-checked little-endian binary reader,
// matching the style internal/config/derapify.go uses for the rapified
// format: one error sticks once set, so call sites can chain reads and
// check err once at the end.
type cursor struct {
	data []byte
	pos  int
	err  error
}

func (c *cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if c.pos+n > len(c.data) {
		c.err = fmt.Errorf("paa: unexpected end of data at offset %d (need %d bytes)", c.pos, n)
		return false
	}
	return true
}

func (c *cursor) bytes(n int) []byte {
	if !c.need(n) {
		return nil
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *cursor) u8() uint8 {
	b := c.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) u16() uint16 {
	b := c.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (c *cursor) u32() uint32 {
	b := c.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *cursor) f32() float32 {
	b := c.bytes(4)
	if b == nil {
		return 0
	}
	return decodeFloat32(binary.LittleEndian.Uint32(b))
}

func (c *cursor) cstring() string {
	start := c.pos
	for c.pos < len(c.data) && c.data[c.pos] != 0 {
		c.pos++
	}
	if c.pos >= len(c.data) {
		c.err = fmt.Errorf("paa: unterminated string at offset %d", start)
		return ""
	}
	s := string(c.data[start:c.pos])
	c.pos++ // skip the terminator
	return s
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeF32(buf *bytes.Buffer, v float32) {
	writeU32(buf, encodeFloat32(v))
}

func decodeFloat32(bits uint32) float32 {
	return math.Float32frombits(bits)
}

func encodeFloat32(v float32) uint32 {
	return math.Float32bits(v)
}
