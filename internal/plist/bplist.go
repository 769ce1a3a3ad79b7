// Package plist implements a minimal Apple binary property list ("bplist00")
// encoder, sufficient for the /info endpoint's response body (§6). Only the
// object types AirPlay's /info actually emits are supported: dict, string,
// integer, bool, and data.
package plist

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Dict preserves key order, which matters for reproducible test fixtures
// even though plist dictionaries are conceptually unordered.
type Dict struct {
	keys   []string
	values []interface{}

	// populated by flatten(): object-table indices for each key and value.
	keyRefs   []int
	valueRefs []int
}

// NewDict allocates an empty ordered dictionary.
func NewDict() *Dict { return &Dict{} }

// Set appends or replaces a key. Supported value types: string, int64/int,
// bool, []byte, *Dict.
func (d *Dict) Set(key string, value interface{}) *Dict {
	for i, k := range d.keys {
		if k == key {
			d.values[i] = value
			return d
		}
	}
	d.keys = append(d.keys, key)
	d.values = append(d.values, value)
	return d
}

// Get returns the value stored under key, if any.
func (d *Dict) Get(key string) (interface{}, bool) {
	for i, k := range d.keys {
		if k == key {
			return d.values[i], true
		}
	}
	return nil, false
}

const trailerSize = 32

// Marshal encodes d as a binary property list.
func Marshal(d *Dict) ([]byte, error) {
	objs := []interface{}{d} // object 0 is the top-level dict
	flatten(d, &objs)

	offsets := make([]uint64, len(objs))
	var body bytes.Buffer
	body.WriteString("bplist00")

	for i, obj := range objs {
		offsets[i] = uint64(body.Len())
		if err := encodeObject(&body, obj, &objs); err != nil {
			return nil, err
		}
	}

	offsetTableStart := uint64(body.Len())
	offsetIntSize := byteWidthFor(offsetTableStart)
	for _, off := range offsets {
		writeUint(&body, off, offsetIntSize)
	}

	var trailer [trailerSize]byte
	trailer[6] = byte(offsetIntSize)
	trailer[7] = 1 // object ref size: we always use 1 byte (< 256 objects)
	binary.BigEndian.PutUint64(trailer[8:16], uint64(len(objs)))
	binary.BigEndian.PutUint64(trailer[16:24], 0) // top object index
	binary.BigEndian.PutUint64(trailer[24:32], offsetTableStart)

	body.Write(trailer[:])
	return body.Bytes(), nil
}

// flatten performs a depth-first walk, assigning every key string and
// every value its own object-table slot and recording the resulting
// indices on the owning Dict so encodeObject never needs to search for an
// object by equality (values may be non-comparable, e.g. []byte).
func flatten(d *Dict, objs *[]interface{}) {
	d.keyRefs = make([]int, len(d.keys))
	d.valueRefs = make([]int, len(d.values))

	for i, k := range d.keys {
		*objs = append(*objs, k)
		d.keyRefs[i] = len(*objs) - 1
	}
	for i, v := range d.values {
		*objs = append(*objs, v)
		d.valueRefs[i] = len(*objs) - 1
		if child, ok := v.(*Dict); ok {
			flatten(child, objs)
		}
	}
}

func byteWidthFor(n uint64) int {
	switch {
	case n < 1<<8:
		return 1
	case n < 1<<16:
		return 2
	case n < 1<<32:
		return 4
	default:
		return 8
	}
}

func writeUint(buf *bytes.Buffer, v uint64, width int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[8-width:])
}

func encodeObject(buf *bytes.Buffer, obj interface{}, objs *[]interface{}) error {
	switch v := obj.(type) {
	case *Dict:
		if len(v.keys) >= 15 {
			return errors.New("plist: dict too large for minimal encoder")
		}
		buf.WriteByte(0xD0 | byte(clampNibble(len(v.keys))))
		for _, idx := range v.keyRefs {
			buf.WriteByte(byte(idx))
		}
		for _, idx := range v.valueRefs {
			buf.WriteByte(byte(idx))
		}
	case string:
		return encodeString(buf, v)
	case int:
		return encodeInt(buf, int64(v))
	case int64:
		return encodeInt(buf, v)
	case bool:
		if v {
			buf.WriteByte(0x09)
		} else {
			buf.WriteByte(0x08)
		}
	case []byte:
		buf.WriteByte(0x40 | byte(clampNibble(len(v))))
		buf.Write(v)
	default:
		return fmt.Errorf("plist: unsupported type %T", obj)
	}
	return nil
}

func clampNibble(n int) int {
	if n > 14 {
		return 15
	}
	return n
}

func encodeString(buf *bytes.Buffer, s string) error {
	ascii := true
	for _, r := range s {
		if r > 127 {
			ascii = false
			break
		}
	}
	if ascii {
		buf.WriteByte(0x50 | byte(clampNibble(len(s))))
		buf.WriteString(s)
		return nil
	}
	// UTF-16BE fallback.
	buf.WriteByte(0x60 | byte(clampNibble(len([]rune(s)))))
	for _, r := range s {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(r))
		buf.Write(b[:])
	}
	return nil
}

func encodeInt(buf *bytes.Buffer, v int64) error {
	switch {
	case v >= -(1<<7) && v < 1<<7:
		buf.WriteByte(0x10)
		buf.WriteByte(byte(v))
	case v >= -(1<<15) && v < 1<<15:
		buf.WriteByte(0x11)
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(v))
		buf.Write(b[:])
	default:
		buf.WriteByte(0x12)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(v))
		buf.Write(b[:])
	}
	return nil
}
