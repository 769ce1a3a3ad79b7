package plist

import (
	"encoding/binary"
	"fmt"
)

// Unmarshal decodes a binary property list produced by Marshal (or any
// bplist00 using 1-byte object refs, which is what AirPlay peers emit for
// the small dictionaries this codec handles).
func Unmarshal(data []byte) (*Dict, error) {
	if len(data) < 8+trailerSize || string(data[:8]) != "bplist00" {
		return nil, fmt.Errorf("plist: bad header")
	}

	trailer := data[len(data)-trailerSize:]
	offsetIntSize := int(trailer[6])
	refSize := int(trailer[7])
	numObjects := binary.BigEndian.Uint64(trailer[8:16])
	topObject := binary.BigEndian.Uint64(trailer[16:24])
	offsetTableStart := binary.BigEndian.Uint64(trailer[24:32])

	offsets := make([]uint64, numObjects)
	for i := range offsets {
		start := offsetTableStart + uint64(i*offsetIntSize)
		offsets[i] = readUint(data[start:start+uint64(offsetIntSize)], offsetIntSize)
	}

	d := &decoder{data: data, offsets: offsets, refSize: refSize}
	obj, err := d.decodeAt(int(topObject))
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(*Dict)
	if !ok {
		return nil, fmt.Errorf("plist: top object is not a dict")
	}
	return dict, nil
}

type decoder struct {
	data    []byte
	offsets []uint64
	refSize int
}

func readUint(b []byte, width int) uint64 {
	var v uint64
	for _, by := range b[:width] {
		v = (v << 8) | uint64(by)
	}
	return v
}

func (d *decoder) decodeAt(objIdx int) (interface{}, error) {
	if objIdx < 0 || objIdx >= len(d.offsets) {
		return nil, fmt.Errorf("plist: object index out of range")
	}
	off := d.offsets[objIdx]
	marker := d.data[off]
	kind := marker & 0xF0
	size := int(marker & 0x0F)

	switch kind {
	case 0x00:
		switch marker {
		case 0x08:
			return false, nil
		case 0x09:
			return true, nil
		}
		return nil, fmt.Errorf("plist: unsupported singleton marker %#x", marker)

	case 0x10:
		n := 1 << size
		v := int64(readUint(d.data[off+1:off+1+uint64(n)], n))
		return v, nil

	case 0x40:
		start := off + 1
		return append([]byte(nil), d.data[start:start+uint64(size)]...), nil

	case 0x50:
		start := off + 1
		return string(d.data[start : start+uint64(size)]), nil

	case 0x60:
		start := off + 1
		runes := make([]rune, size)
		for i := 0; i < size; i++ {
			runes[i] = rune(binary.BigEndian.Uint16(d.data[start+uint64(i*2) : start+uint64(i*2)+2]))
		}
		return string(runes), nil

	case 0xD0:
		n := size
		start := off + 1
		dict := NewDict()
		keyIdxs := make([]int, n)
		for i := 0; i < n; i++ {
			keyIdxs[i] = int(d.data[start+uint64(i*d.refSize)])
		}
		valIdxs := make([]int, n)
		for i := 0; i < n; i++ {
			valIdxs[i] = int(d.data[start+uint64(n*d.refSize)+uint64(i*d.refSize)])
		}
		for i := 0; i < n; i++ {
			kObj, err := d.decodeAt(keyIdxs[i])
			if err != nil {
				return nil, err
			}
			vObj, err := d.decodeAt(valIdxs[i])
			if err != nil {
				return nil, err
			}
			k, _ := kObj.(string)
			dict.Set(k, vObj)
		}
		return dict, nil

	default:
		return nil, fmt.Errorf("plist: unsupported marker %#x", marker)
	}
}
