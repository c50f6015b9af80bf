package config

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Rapify serializes a parsed Config to HEMTT's binary "rapified" layout
// (§4.2 Rapified layout): magic, a fixed always-0/always-8 header, a
// placeholder enum offset patched in after the root class body is written,
// the root body itself, an (always empty, for configs this tool produces)
// enum table, and four trailing zero bytes.
func Rapify(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\x00raP")
	writeUint32LE(&buf, 0)
	writeUint32LE(&buf, 8)

	enumPlaceholder := buf.Len()
	writeUint32LE(&buf, 0)

	root := &Class{Kind: ClassDefined, Children: cfg.Root}
	rootOffset := buf.Len()
	if _, err := writeClassBody(&buf, root, rootOffset); err != nil {
		return nil, err
	}

	enumOffsetTarget := buf.Len()
	writeUint32LE(&buf, 0) // enum entry count
	writeUint32LE(&buf, 0) // trailing padding

	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[enumPlaceholder:], uint32(enumOffsetTarget))
	return data, nil
}

func writeUint32LE(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeFloat32LE(buf *bytes.Buffer, f float32) {
	writeUint32LE(buf, math.Float32bits(f))
}

func writeCString(buf *bytes.Buffer, s string) int {
	buf.WriteString(s)
	buf.WriteByte(0)
	return len(s) + 1
}

func compressedIntLen(n uint32) int {
	length := 1
	for n >= 0x80 {
		n >>= 7
		length++
	}
	return length
}

func writeCompressedInt(buf *bytes.Buffer, n uint32) int {
	written := 0
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		written++
		if n == 0 {
			break
		}
	}
	return written
}

// propertyCode is the type-tag byte sequence written immediately before a
// child's name (§4.2: tags 0/1/2/3/4/5).
func propertyCode(p Property) []byte {
	if p.Kind == PropertyEntry {
		switch p.Entry.Kind {
		case EntryScalar:
			switch p.Entry.Value.Kind {
			case KindString:
				return []byte{1, 0}
			case KindFloat32:
				return []byte{1, 1}
			case KindInt32:
				return []byte{1, 2}
			}
		case EntryArray:
			return []byte{2}
		case EntryArrayExpand:
			return []byte{5, 1, 0, 0, 0}
		}
	}
	switch p.Class.Kind {
	case ClassExternal:
		return []byte{3}
	case ClassDeleted:
		return []byte{4}
	default:
		return []byte{0}
	}
}

// propertyLength is the size of one child's record excluding any nested
// class body appended after it (which is accounted for separately via
// classBodyLength), matching the original Rapify::rapified_length split.
func propertyLength(p Property) int {
	code := len(propertyCode(p))
	if p.Kind == PropertyEntry {
		return code + entryValueLength(p.Entry)
	}
	switch p.Class.Kind {
	case ClassDefined:
		return code + 4 // absolute offset pointer to the nested body
	default:
		return code
	}
}

func entryValueLength(e *Entry) int {
	switch e.Kind {
	case EntryScalar:
		switch e.Value.Kind {
		case KindString:
			return len(e.Value.Str) + 1
		default:
			return 4
		}
	case EntryArray, EntryArrayExpand:
		return arrayLength(e.Array)
	}
	return 0
}

func arrayLength(a *Array) int {
	total := compressedIntLen(uint32(len(a.Elements)))
	for _, el := range a.Elements {
		if el.Nested != nil {
			total += 1 + arrayLength(el.Nested)
			continue
		}
		switch el.Value.Kind {
		case KindString:
			total += 1 + len(el.Value.Str) + 1
		default:
			total += 1 + 4
		}
	}
	return total
}

// classBodyLength is the total flattened size of a class's own body,
// including every nested class body within it, or 0 if it has no children
// — a class with an empty body writes nothing and (by the original
// implementation's own behavior, preserved here) any offset pointing at it
// therefore points at whatever immediately follows instead.
func classBodyLength(c *Class) int {
	if len(c.Children) == 0 {
		return 0
	}
	total := len(c.Parent) + 1 + compressedIntLen(uint32(len(c.Children)))
	for _, child := range c.Children {
		total += len(child.Name) + 1 + propertyLength(child)
		if child.Kind == PropertyClass && child.Class.Kind == ClassDefined {
			total += classBodyLength(child.Class)
		}
	}
	return total
}

// writeClassBody writes c's body (parent name, child count, child records,
// then every nested class body in declaration order) starting at absolute
// file offset `at`, and returns the number of bytes written.
func writeClassBody(buf *bytes.Buffer, c *Class, at int) (int, error) {
	if len(c.Children) == 0 {
		return 0, nil
	}

	written := writeCString(buf, c.Parent)
	written += writeCompressedInt(buf, uint32(len(c.Children)))

	childrenLen := 0
	for _, child := range c.Children {
		childrenLen += len(child.Name) + 1 + propertyLength(child)
	}
	classOffset := at + written + childrenLen

	var bodies [][]byte
	preChildren := written
	for _, child := range c.Children {
		code := propertyCode(child)
		buf.Write(code)
		written += len(code)
		written += writeCString(buf, child.Name)

		switch child.Kind {
		case PropertyEntry:
			n, err := writeEntryValue(buf, child.Entry)
			if err != nil {
				return 0, err
			}
			written += n
		case PropertyClass:
			cls := child.Class
			if cls.Kind != ClassDefined {
				continue
			}
			writeUint32LE(buf, uint32(classOffset))
			written += 4

			bodyLen := classBodyLength(cls)
			var sub bytes.Buffer
			subWritten, err := writeClassBody(&sub, cls, classOffset)
			if err != nil {
				return 0, err
			}
			if subWritten != bodyLen {
				return 0, fmt.Errorf("config: rapify length mismatch for class %q: computed %d, wrote %d", cls.Name, bodyLen, subWritten)
			}
			classOffset += subWritten
			bodies = append(bodies, sub.Bytes())
		}
	}
	if written-preChildren != childrenLen {
		return 0, fmt.Errorf("config: rapify child-record length mismatch (expected %d, got %d)", childrenLen, written-preChildren)
	}

	for _, body := range bodies {
		buf.Write(body)
		written += len(body)
	}
	return written, nil
}

func writeEntryValue(buf *bytes.Buffer, e *Entry) (int, error) {
	switch e.Kind {
	case EntryScalar:
		switch e.Value.Kind {
		case KindString:
			return writeCString(buf, e.Value.Str), nil
		case KindFloat32:
			writeFloat32LE(buf, e.Value.Float)
			return 4, nil
		case KindInt32:
			writeUint32LE(buf, uint32(e.Value.Int))
			return 4, nil
		}
	case EntryArray, EntryArrayExpand:
		return writeArray(buf, e.Array), nil
	}
	return 0, fmt.Errorf("config: unhandled entry kind for %q", e.Name)
}

func writeArray(buf *bytes.Buffer, a *Array) int {
	written := writeCompressedInt(buf, uint32(len(a.Elements)))
	for _, el := range a.Elements {
		if el.Nested != nil {
			buf.WriteByte(3)
			written++
			written += writeArray(buf, el.Nested)
			continue
		}
		switch el.Value.Kind {
		case KindString:
			buf.WriteByte(0)
			written++
			written += writeCString(buf, el.Value.Str)
		case KindFloat32:
			buf.WriteByte(1)
			written++
			writeFloat32LE(buf, el.Value.Float)
			written += 4
		case KindInt32:
			buf.WriteByte(2)
			written++
			writeUint32LE(buf, uint32(el.Value.Int))
			written += 4
		}
	}
	return written
}
