// Package dmap implements Apple's DMAP tagged-value metadata framing
// (§4.11, §3 "DmapItem"): a 4-byte ASCII tag, a big-endian u32 length,
// and a value whose type is inferred from a fixed tag table.
package dmap

import "encoding/binary"

// ValueKind is how a tag's value should be interpreted.
type ValueKind int

// Kinds.
const (
	KindString ValueKind = iota
	KindInt
	KindContainer
	KindRaw
)

// tagKinds is the fixed tag table (§3): each known 4-byte tag maps to
// how its value should be decoded. Unknown tags decode as KindRaw.
var tagKinds = map[string]ValueKind{
	"minm": KindString, // track name
	"asar": KindString, // artist
	"asal": KindString, // album
	"astm": KindInt,    // track duration, ms
	"astn": KindInt,    // track number
	"asdt": KindInt,    // description/track size
	"mlit": KindContainer,
	"mlcl": KindContainer,
}

// Item is one decoded DMAP entry.
type Item struct {
	Tag      string
	Kind     ValueKind
	Raw      []byte
	Children []Item // populated when Kind == KindContainer
}

// IntValue interprets Raw as a big-endian signed integer of its natural
// width (1/2/4/8 bytes).
func (it Item) IntValue() int64 {
	switch len(it.Raw) {
	case 1:
		return int64(int8(it.Raw[0]))
	case 2:
		return int64(int16(binary.BigEndian.Uint16(it.Raw)))
	case 4:
		return int64(int32(binary.BigEndian.Uint32(it.Raw)))
	case 8:
		return int64(binary.BigEndian.Uint64(it.Raw))
	default:
		return 0
	}
}

// StringValue interprets Raw as a UTF-8 string.
func (it Item) StringValue() string { return string(it.Raw) }

// EncodeString builds a string-valued tag entry.
func EncodeString(tag, value string) []byte {
	return encodeEntry(tag, []byte(value))
}

// EncodeInt builds an integer-valued tag entry using the narrowest of
// 1/2/4/8 bytes that fits value.
func EncodeInt(tag string, value int64) []byte {
	var raw []byte
	switch {
	case value >= -(1<<7) && value < (1<<7):
		raw = []byte{byte(int8(value))}
	case value >= -(1<<15) && value < (1<<15):
		raw = make([]byte, 2)
		binary.BigEndian.PutUint16(raw, uint16(int16(value)))
	case value >= -(1<<31) && value < (1<<31):
		raw = make([]byte, 4)
		binary.BigEndian.PutUint32(raw, uint32(int32(value)))
	default:
		raw = make([]byte, 8)
		binary.BigEndian.PutUint64(raw, uint64(value))
	}
	return encodeEntry(tag, raw)
}

// EncodeContainer wraps already-encoded children bytes under tag.
func EncodeContainer(tag string, childrenBytes []byte) []byte {
	return encodeEntry(tag, childrenBytes)
}

func encodeEntry(tag string, value []byte) []byte {
	out := make([]byte, 0, 8+len(value))
	out = append(out, []byte(tag)...)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(value)))
	out = append(out, lenBuf[:]...)
	out = append(out, value...)
	return out
}

// Decode parses a sequence of DMAP entries, recursing into containers.
func Decode(data []byte) ([]Item, error) {
	var items []Item
	i := 0
	for i < len(data) {
		if i+8 > len(data) {
			return nil, ErrTruncated
		}
		tag := string(data[i : i+4])
		length := binary.BigEndian.Uint32(data[i+4 : i+8])
		i += 8
		if i+int(length) > len(data) {
			return nil, ErrTruncated
		}
		value := data[i : i+int(length)]
		i += int(length)

		kind := tagKinds[tag]
		if _, known := tagKinds[tag]; !known {
			kind = KindRaw
		}

		item := Item{Tag: tag, Kind: kind, Raw: append([]byte(nil), value...)}
		if kind == KindContainer {
			children, err := Decode(value)
			if err != nil {
				return nil, err
			}
			item.Children = children
		}
		items = append(items, item)
	}
	return items, nil
}
