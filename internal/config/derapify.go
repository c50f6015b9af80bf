package config

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Derapify reads a binary rapified image back into a Config tree. It exists
// primarily to make the parse/rapify round trip testable (§8): parsing a
// rapified file does not need to recover the original macro text, only the
// same class/entry structure and values.
func Derapify(data []byte) (*Config, error) {
	if len(data) < 16 || string(data[0:4]) != "\x00raP" {
		return nil, fmt.Errorf("config: not a rapified file (bad magic)")
	}
	_, children, _, err := readClass(data, 16)
	if err != nil {
		return nil, err
	}
	return &Config{Root: children}, nil
}

func readClass(data []byte, pos int) (parent string, children []Property, newPos int, err error) {
	parent, pos = readCString(data, pos)
	count, pos := readCompressedInt(data, pos)

	children = make([]Property, 0, count)
	for i := uint32(0); i < count; i++ {
		if pos >= len(data) {
			return "", nil, pos, fmt.Errorf("config: truncated rapified class body")
		}
		tag := data[pos]
		pos++
		var prop Property
		prop, pos, err = readRecord(data, pos, tag)
		if err != nil {
			return "", nil, pos, err
		}
		children = append(children, prop)
	}
	return parent, children, pos, nil
}

func readRecord(data []byte, pos int, tag byte) (Property, int, error) {
	switch tag {
	case 0:
		name, p := readCString(data, pos)
		offset := int(readUint32LE(data, p))
		p += 4
		parent, children, _, err := readClass(data, offset)
		if err != nil {
			return Property{}, p, err
		}
		return Property{
			Name: name, Kind: PropertyClass,
			Class: &Class{Name: name, Parent: parent, Kind: ClassDefined, Children: children},
		}, p, nil
	case 1:
		subtype := data[pos]
		p := pos + 1
		name, p := readCString(data, p)
		var val Value
		switch subtype {
		case 0:
			s, np := readCString(data, p)
			val = Value{Kind: KindString, Str: s}
			p = np
		case 1:
			val = Value{Kind: KindFloat32, Float: readFloat32LE(data, p)}
			p += 4
		case 2:
			val = Value{Kind: KindInt32, Int: readInt32LE(data, p)}
			p += 4
		default:
			return Property{}, p, fmt.Errorf("config: unknown entry subtype %d", subtype)
		}
		return Property{
			Name: name, Kind: PropertyEntry,
			Entry: &Entry{Name: name, Kind: EntryScalar, Value: val},
		}, p, nil
	case 2:
		name, p := readCString(data, pos)
		arr, p, err := readArray(data, p)
		if err != nil {
			return Property{}, p, err
		}
		return Property{
			Name: name, Kind: PropertyEntry,
			Entry: &Entry{Name: name, Kind: EntryArray, Array: arr},
		}, p, nil
	case 3:
		name, p := readCString(data, pos)
		return Property{Name: name, Kind: PropertyClass, Class: &Class{Name: name, Kind: ClassExternal}}, p, nil
	case 4:
		name, p := readCString(data, pos)
		return Property{Name: name, Kind: PropertyClass, Class: &Class{Name: name, Kind: ClassDeleted}}, p, nil
	case 5:
		p := pos + 4 // skip the fixed 01 00 00 00 marker
		name, p := readCString(data, p)
		arr, p, err := readArray(data, p)
		if err != nil {
			return Property{}, p, err
		}
		return Property{
			Name: name, Kind: PropertyEntry,
			Entry: &Entry{Name: name, Kind: EntryArrayExpand, Array: arr},
		}, p, nil
	default:
		return Property{}, pos, fmt.Errorf("config: unknown property tag %d", tag)
	}
}

func readArray(data []byte, pos int) (*Array, int, error) {
	count, pos := readCompressedInt(data, pos)
	arr := &Array{Elements: make([]ArrayElement, 0, count)}
	for i := uint32(0); i < count; i++ {
		if pos >= len(data) {
			return nil, pos, fmt.Errorf("config: truncated array")
		}
		tag := data[pos]
		pos++
		switch tag {
		case 0:
			s, p := readCString(data, pos)
			arr.Elements = append(arr.Elements, ArrayElement{Value: Value{Kind: KindString, Str: s}})
			pos = p
		case 1:
			arr.Elements = append(arr.Elements, ArrayElement{Value: Value{Kind: KindFloat32, Float: readFloat32LE(data, pos)}})
			pos += 4
		case 2:
			arr.Elements = append(arr.Elements, ArrayElement{Value: Value{Kind: KindInt32, Int: readInt32LE(data, pos)}})
			pos += 4
		case 3:
			nested, p, err := readArray(data, pos)
			if err != nil {
				return nil, p, err
			}
			arr.Elements = append(arr.Elements, ArrayElement{Nested: nested})
			pos = p
		default:
			return nil, pos, fmt.Errorf("config: unknown array element tag %d", tag)
		}
	}
	return arr, pos, nil
}

func readCString(data []byte, pos int) (string, int) {
	start := pos
	for pos < len(data) && data[pos] != 0 {
		pos++
	}
	s := string(data[start:pos])
	if pos < len(data) {
		pos++ // skip the terminator
	}
	return s, pos
}

func readCompressedInt(data []byte, pos int) (uint32, int) {
	var result uint32
	var shift uint
	for {
		b := data[pos]
		pos++
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result, pos
}

func readUint32LE(data []byte, pos int) uint32 {
	return binary.LittleEndian.Uint32(data[pos : pos+4])
}

func readInt32LE(data []byte, pos int) int32 {
	return int32(readUint32LE(data, pos))
}

func readFloat32LE(data []byte, pos int) float32 {
	return math.Float32frombits(readUint32LE(data, pos))
}
