package pbo

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Archive is a parsed PBO: its properties, its file entries (payload
// included), and the trailing digest as read from the stream.
type Archive struct {
	Properties []Property
	Entries    []Entry
	Checksum   [20]byte
}

// Unpack parses a complete PBO byte stream, the inverse of Pack. It
// exists primarily so Pack's own output is round-trip testable (spec §8)
// and so release tooling can inspect an already-built archive.
func Unpack(data []byte) (*Archive, error) {
	r := &reader{data: data}

	if r.u8() != 0 {
		return nil, fmt.Errorf("pbo: missing leading zero byte")
	}
	magic := r.bytes(4)
	if r.err != nil {
		return nil, r.err
	}
	if string(magic) != "sreV" {
		return nil, fmt.Errorf("pbo: invalid format magic %q", magic)
	}
	r.bytes(20) // reserved header padding

	arc := &Archive{}
	type rawHeader struct {
		name     string
		method   PackingMethod
		origSize uint32
		dataSize uint32
	}
	var headers []rawHeader
	for {
		name := r.cstring()
		method := PackingMethod(r.u32())
		origSize := r.u32()
		r.u32() // reserved
		r.u32() // timestamp
		dataSize := r.u32()
		if r.err != nil {
			return nil, r.err
		}
		if name == "" && method == PackingMethodUncompressed && origSize == 0 && dataSize == 0 {
			break // terminating empty header
		}
		if method == PackingMethodProperty {
			propName := r.cstring()
			value := r.cstring()
			if r.err != nil {
				return nil, r.err
			}
			arc.Properties = append(arc.Properties, Property{Name: propName, Value: value})
			continue
		}
		headers = append(headers, rawHeader{name: name, method: method, origSize: origSize, dataSize: dataSize})
	}

	for _, h := range headers {
		if h.method == PackingMethodCompressed {
			return nil, fmt.Errorf("pbo: entry %q: compressed entries are not supported", h.name)
		}
		data := r.bytes(int(h.dataSize))
		if r.err != nil {
			return nil, r.err
		}
		arc.Entries = append(arc.Entries, Entry{Name: h.name, Data: append([]byte(nil), data...)})
	}

	digest := r.bytes(20)
	if r.err != nil {
		return nil, r.err
	}
	copy(arc.Checksum[:], digest)

	expected := bytes.TrimSuffix(data, digest)
	sum, err := Checksum(bytes.NewReader(expected))
	if err != nil {
		return nil, err
	}
	if sum != arc.Checksum {
		return nil, fmt.Errorf("pbo: checksum mismatch")
	}

	return arc, nil
}

type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.err = fmt.Errorf("pbo: unexpected end of data at offset %d (need %d bytes)", r.pos, n)
		return false
	}
	return true
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) cstring() string {
	start := r.pos
	for r.pos < len(r.data) && r.data[r.pos] != 0 {
		r.pos++
	}
	if r.pos >= len(r.data) {
		r.err = fmt.Errorf("pbo: unterminated string at offset %d", start)
		return ""
	}
	s := string(r.data[start:r.pos])
	r.pos++
	return s
}
